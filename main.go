package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/depth"
	"github.com/nvr-ai/go-depth/depth/engine"
	"github.com/nvr-ai/go-depth/images"
	"github.com/nvr-ai/go-depth/logging"
	"github.com/nvr-ai/go-depth/profiler"
	"github.com/nvr-ai/go-depth/util"
	"go.uber.org/zap"
)

// InputType represents the type of input being processed
type InputType int

const (
	InputDirectory InputType = iota
	InputImage
)

// InputConfig holds the input configuration
type InputConfig struct {
	Type InputType
	Path string
}

func main() {
	var (
		dirPath   string
		imagePath string
		kind      string
		outputDir string
		root      string
	)
	flag.StringVar(&dirPath, "dir", "", "Directory of frame-<n>.jpg files")
	flag.StringVar(&imagePath, "image", "", "Path to a single JPEG frame")
	flag.StringVar(&kind, "kind", "auto", "Estimator: auto, onnx or graph")
	flag.StringVar(&outputDir, "output-dir", "", "Write depth previews as PNG into this directory")
	flag.StringVar(&root, "root", "", "Installation root holding models/")
	flag.Parse()

	inputConfig, err := validateInputFlags(dirPath, imagePath)
	if err != nil {
		log.Fatal(err)
	}

	cfg := config.Load()
	if root != "" {
		cfg.Root = root
	}
	logger := logging.Must(logging.FromConfig(cfg))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames, err := loadFrames(inputConfig)
	if err != nil {
		logger.Fatal("loading frames", zap.Error(err))
	}

	est, err := engine.NewBuilder().WithConfig(cfg).WithLogger(logger).WithKind(kind).Build(ctx)
	if err != nil {
		logger.Fatal("building depth estimator", zap.Error(err))
	}
	defer est.Close()

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			logger.Fatal("creating output directory", zap.Error(err))
		}
	}

	var total time.Duration
	done := 0
	for _, frame := range frames {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		out, err := est.Estimate(frame.Data)
		elapsed := time.Since(start)
		if err != nil {
			logger.Warn("frame failed", zap.String("path", frame.Path), zap.Error(err))
			continue
		}
		total += elapsed
		done++
		logger.Debug("frame", zap.String("path", frame.Path), zap.Duration("rtt", elapsed))

		if outputDir != "" {
			dst := filepath.Join(outputDir, strings.TrimSuffix(filepath.Base(frame.Path), filepath.Ext(frame.Path))+"-depth.png")
			if err := writePreview(dst, frame.Data, out); err != nil {
				logger.Warn("writing preview", zap.String("path", dst), zap.Error(err))
			}
		}
	}

	fmt.Printf("\nDepth estimation finished\n")
	fmt.Printf("=====================================\n")
	fmt.Printf("   Backend: %s\n", est.Backend().Label)
	fmt.Printf("   Frames: %d/%d\n", done, len(frames))
	if done > 0 {
		fmt.Printf("   Average round trip: %v\n", (total / time.Duration(done)).Round(time.Microsecond))
	}
	if p, ok := est.(*depth.Pipeline); ok {
		for _, stage := range profiler.Stages {
			s := p.Stats().Stat(stage)
			fmt.Printf("   %-10s avg=%-10v min=%-10v max=%v\n", stage, s.Avg, s.Min, s.Max)
		}
	}
}

func validateInputFlags(dirPath, imagePath string) (*InputConfig, error) {
	if dirPath != "" && imagePath != "" {
		return nil, fmt.Errorf("error: cannot specify both --dir and --image flags")
	}
	if dirPath == "" && imagePath == "" {
		return nil, fmt.Errorf("error: one of --dir or --image is required")
	}

	if dirPath != "" {
		info, err := os.Stat(dirPath)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("directory not found: %s", dirPath)
		}
		return &InputConfig{Type: InputDirectory, Path: dirPath}, nil
	}

	if err := validateFile(imagePath, util.FrameExtensions); err != nil {
		return nil, fmt.Errorf("image validation error: %w", err)
	}
	return &InputConfig{Type: InputImage, Path: imagePath}, nil
}

// validateFile checks if the file exists and has a supported extension
func validateFile(filePath string, supportedExtensions []string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supportedExt := range supportedExtensions {
		if ext == supportedExt {
			return nil
		}
	}

	return fmt.Errorf("unsupported file extension: %s. Supported extensions: %v", ext, supportedExtensions)
}

func loadFrames(input *InputConfig) ([]util.ImageFile, error) {
	if input.Type == InputDirectory {
		return util.LoadDirectoryImageFiles(input.Path)
	}
	data, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, err
	}
	return []util.ImageFile{{Path: input.Path, Data: data, Frame: util.FrameNumber(input.Path)}}, nil
}

// writePreview upscales a packed depth map to the source frame size and
// saves it as a grayscale PNG.
func writePreview(dst string, source, packed []byte) error {
	w, h, values, err := depth.Unpack(packed)
	if err != nil {
		return err
	}
	gray := &image.Gray{Pix: values, Stride: w, Rect: image.Rect(0, 0, w, h)}

	if src, _, err := image.DecodeConfig(bytes.NewReader(source)); err == nil {
		gray = images.Upscale(gray, src.Width, src.Height)
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := png.Encode(f, gray); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

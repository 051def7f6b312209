// Package preprocess - Turns decoded frames into normalized model input tensors.
package preprocess

import (
	"encoding/json"
	"image"
	"image/color"
	"os"

	"github.com/nvr-ai/go-depth/images"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ImageNet statistics used by the depth model.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// DefaultPatchSize is the spatial divisibility of the depth transformer.
const DefaultPatchSize = 14

// Config defines preprocessing for the depth model.
type Config struct {
	// TargetSize is the long-edge size frames are scaled to.
	TargetSize int `json:"target_size" yaml:"target_size"`
	// PatchSize constrains both output dimensions to its multiples.
	PatchSize int `json:"patch_size" yaml:"patch_size"`
	// Mean is subtracted per channel after scaling to [0, 1].
	Mean [3]float32 `json:"mean" yaml:"mean"`
	// Std divides each channel after mean subtraction.
	Std [3]float32 `json:"std" yaml:"std"`
}

// DefaultConfig returns the ImageNet configuration for a target size.
func DefaultConfig(target int) Config {
	return Config{
		TargetSize: target,
		PatchSize:  DefaultPatchSize,
		Mean:       ImageNetMean,
		Std:        ImageNetStd,
	}
}

// processorConfig is the subset of a hub preprocessor_config.json in use.
type processorConfig struct {
	ImageMean        []float32 `json:"image_mean"`
	ImageStd         []float32 `json:"image_std"`
	EnsureMultipleOf int       `json:"ensure_multiple_of"`
}

// LoadConfig reads normalization constants from a preprocessor_config.json.
// Fields missing from the file keep their defaults.
//
// Arguments:
//   - path: Path to preprocessor_config.json.
//   - target: Long-edge size; the file's own size is ignored.
//
// Returns:
//   - Config: The merged configuration.
//   - error: If the file cannot be read or parsed.
func LoadConfig(path string, target int) (Config, error) {
	cfg := DefaultConfig(target)

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading preprocessor config")
	}

	var pc processorConfig
	if err := json.Unmarshal(raw, &pc); err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}

	if len(pc.ImageMean) == 3 {
		copy(cfg.Mean[:], pc.ImageMean)
	}
	if len(pc.ImageStd) == 3 {
		copy(cfg.Std[:], pc.ImageStd)
	}
	if pc.EnsureMultipleOf > 0 {
		cfg.PatchSize = pc.EnsureMultipleOf
	}

	return cfg, nil
}

// Preprocessor handles frame preprocessing for the depth model.
type Preprocessor struct {
	config Config
}

// NewPreprocessor creates a new preprocessor. Zero fields take defaults.
func NewPreprocessor(config Config) *Preprocessor {
	if config.PatchSize <= 0 {
		config.PatchSize = DefaultPatchSize
	}
	if config.TargetSize < config.PatchSize {
		config.TargetSize = config.PatchSize
	}
	if config.Std == ([3]float32{}) {
		config.Mean, config.Std = ImageNetMean, ImageNetStd
	}
	return &Preprocessor{config: config}
}

// Config returns the effective configuration.
func (p *Preprocessor) Config() Config {
	return p.config
}

// Size is the working size of a frame of the given dimensions.
func (p *Preprocessor) Size(width, height int) (int, int) {
	return images.PatchAlignedSize(width, height, p.config.TargetSize, p.config.PatchSize)
}

// Preprocess resizes img to its working size and lays it out as a
// normalized (1, 3, H, W) float32 tensor.
//
// Arguments:
//   - img: A decoded RGB frame.
//
// Returns:
//   - *tensor.Dense: The model input.
//   - error: If the image is empty.
func (p *Preprocessor) Preprocess(img image.Image) (*tensor.Dense, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("image has no pixels")
	}

	w, h := p.Size(b.Dx(), b.Dy())
	resized := images.Resize(img, w, h)

	t := tensor.New(tensor.WithShape(1, 3, h, w), tensor.Of(tensor.Float32))
	p.fill(t.Data().([]float32), resized, w, h)
	return t, nil
}

// fill writes normalized planar RGB into data.
func (p *Preprocessor) fill(data []float32, img image.Image, w, h int) {
	plane := w * h
	var scale, bias [3]float32
	for c := 0; c < 3; c++ {
		scale[c] = 1 / (255 * p.config.Std[c])
		bias[c] = p.config.Mean[c] / p.config.Std[c]
	}

	put := func(i int, r, g, b uint8) {
		data[i] = float32(r)*scale[0] - bias[0]
		data[plane+i] = float32(g)*scale[1] - bias[1]
		data[2*plane+i] = float32(b)*scale[2] - bias[2]
	}

	origin := img.Bounds().Min
	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := src.PixOffset(origin.X+x, origin.Y+y)
				put(y*w+x, src.Pix[o], src.Pix[o+1], src.Pix[o+2])
			}
		}
	case *image.YCbCr:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				yi := src.YOffset(origin.X+x, origin.Y+y)
				ci := src.COffset(origin.X+x, origin.Y+y)
				r, g, b := color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				put(y*w+x, r, g, b)
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := img.At(origin.X+x, origin.Y+y).RGBA()
				put(y*w+x, uint8(r>>8), uint8(g>>8), uint8(b>>8))
			}
		}
	}
}

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nvr-ai/go-depth/benchmark"
	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/depth/engine"
	"github.com/nvr-ai/go-depth/logging"
	"github.com/nvr-ai/go-depth/util"
	"go.uber.org/zap"
)

func main() {
	var (
		scenarioFile = flag.String("scenarios", "", "Path to a JSON scenario list")
		outputDir    = flag.String("output", "./benchmark_results", "Output directory for results")
		testImages   = flag.String("images", "", "Optional directory of JPEG frames to resize per scenario")
		kind         = flag.String("kind", "auto", "Estimator: auto, onnx or graph")
		root         = flag.String("root", "", "Installation root holding models/")
		iterations   = flag.Int("iterations", 100, "Timed iterations per scenario")
		warmups      = flag.Int("warmups", 10, "Untimed warmup runs per scenario")
		quick        = flag.Bool("quick", false, "Only benchmark VGA frames")
		all          = flag.Bool("all", false, "Benchmark every supported camera resolution")
		timeout      = flag.Duration("timeout", 30*time.Minute, "Benchmark timeout duration")
	)
	flag.Parse()

	cfg := config.Load()
	if *root != "" {
		cfg.Root = *root
	}
	logger, err := logging.New(logging.FromConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	scenarios, err := loadScenarios(*scenarioFile, *iterations, *warmups, *quick, *all)
	if err != nil {
		logger.Fatal("loading scenarios", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	est, err := engine.NewBuilder().WithConfig(cfg).WithLogger(logger).WithKind(*kind).Build(ctx)
	if err != nil {
		logger.Fatal("building depth estimator", zap.Error(err))
	}
	defer est.Close()

	suite, err := benchmark.NewSuite(benchmark.NewSuiteArgs{
		Estimator: est,
		OutputDir: *outputDir,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("creating suite", zap.Error(err))
	}

	if *testImages != "" {
		if err := addSources(suite, *testImages); err != nil {
			logger.Fatal("loading test images", zap.Error(err))
		}
	}
	for _, s := range scenarios {
		suite.AddScenario(s)
	}
	fmt.Printf("Added %d scenarios\n", len(scenarios))

	fmt.Println("Starting benchmark execution...")
	start := time.Now()
	if err := suite.RunAllScenarios(ctx); err != nil {
		logger.Fatal("benchmark execution failed", zap.Error(err))
	}
	fmt.Printf("Benchmark completed in %v\n", time.Since(start).Round(time.Millisecond))

	results := suite.Results()
	fmt.Printf("\n=== BENCHMARK RESULTS SUMMARY ===\n")
	fmt.Printf("Backend: %s\n", est.Backend().Label)
	fmt.Printf("Total scenarios: %d\n", len(results))
	fmt.Printf("Results saved to: %s\n", *outputDir)

	var bestFPS float64
	var bestScenario string
	for _, result := range results {
		if result.FramesPerSecond > bestFPS {
			bestFPS = result.FramesPerSecond
			bestScenario = result.Scenario.Name
		}
		fmt.Printf("  %s: %.2f FPS (p95 %v, %.2f MB memory)\n",
			result.Scenario.Name,
			result.FramesPerSecond,
			result.Latency.P95.Round(time.Microsecond),
			float64(result.MemoryStats.AllocBytes)/(1024*1024))
	}

	fmt.Printf("\nBest performing scenario: %s (%.2f FPS)\n", bestScenario, bestFPS)
}

func loadScenarios(file string, iterations, warmups int, quick, all bool) ([]benchmark.Scenario, error) {
	switch {
	case file != "":
		return benchmark.LoadScenarios(file)
	case quick:
		return benchmark.ResolutionSweep(iterations, warmups, benchmark.DefaultResolutions()[0]), nil
	case all:
		return benchmark.ResolutionSweep(iterations, warmups, benchmark.SupportedResolutions()...), nil
	}
	return benchmark.ResolutionSweep(iterations, warmups), nil
}

func addSources(suite *benchmark.Suite, dir string) error {
	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		img, _, err := image.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return fmt.Errorf("decoding %s: %w", f.Path, err)
		}
		suite.AddSource(img)
	}
	return nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "Latency benchmark for depth estimation backends.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -quick\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -kind graph -images ./frames -iterations 200\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  %s -scenarios ./scenarios.json\n", filepath.Base(os.Args[0]))
	}
}

package onnx

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/depth"
	"github.com/nvr-ai/go-depth/images"
	"github.com/nvr-ai/go-depth/inference/providers"
	"github.com/nvr-ai/go-depth/models/preprocess"
	"github.com/nvr-ai/go-depth/profiler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

// WarmupRuns is the number of synthetic inferences run before the first frame.
const WarmupRuns = 3

// New builds a ready-to-serve ONNX Runtime estimator.
//
// The model file is resolved before the runtime is touched, so a missing
// model leaves no session behind. Warmup runs complete before New returns.
//
// Arguments:
//   - ctx: Cancels warmup between runs.
//   - cfg: Process configuration.
//   - logger: Parent logger; the estimator logs as DEPTH-ONNX.
//
// Returns:
//   - *depth.Pipeline: The estimator.
//   - error: A *MissingModelError or an initialization failure.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*depth.Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("DEPTH-ONNX")

	modelPath, err := ResolveModel(cfg.ONNXModelDir())
	if err != nil {
		return nil, err
	}

	if err := providers.InitializeEnvironment(providers.GetSharedLibPath(cfg.ORTLibrary)); err != nil {
		return nil, err
	}

	plan := providers.Select(providers.RuntimeAvailability())
	backend := plan.Device()
	logger.Info("Using: "+backend.Label, zap.Any("providers", plan.Providers))
	logger.Info("Model: " + modelPath)

	optimization := providers.DefaultOptimizationConfig()
	optimization.IntraOpNumThreads = cfg.IntraOpThreads
	optimization.InterOpNumThreads = cfg.InterOpThreads

	session, err := providers.NewSession(providers.NewSessionArgs{
		ModelPath:    modelPath,
		Plan:         plan,
		Optimization: optimization,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Input: "+session.Input.Name, zap.Stringer("dims", session.Input.Dimensions))

	runner := NewRunner(session)
	logger.Info("Warming up...", zap.Int("runs", WarmupRuns), zap.Int("size", cfg.WarmupSize()))
	if err := Warmup(ctx, runner, cfg.WarmupSize(), WarmupRuns); err != nil {
		_ = runner.Close()
		return nil, err
	}
	logger.Info("Session ready")

	pipeline, err := depth.NewPipeline(depth.PipelineArgs{
		Decoder:      images.NewDecoder(),
		Preprocessor: preprocess.NewPreprocessor(processorConfig(cfg, logger)),
		Runner:       runner,
		Backend:      backend,
		Logger:       logger,
	})
	if err != nil {
		_ = runner.Close()
		return nil, err
	}
	return pipeline, nil
}

// Warmup runs a depth.Runner on random normal input of shape (1, 3, size, size).
//
// Arguments:
//   - ctx: Checked before every run.
//   - runner: The runner to warm.
//   - size: Square side of the synthetic input.
//   - runs: Number of inferences.
//
// Returns:
//   - error: The first inference failure or the context error.
func Warmup(ctx context.Context, runner depth.Runner, size, runs int) error {
	data := make([]float32, 3*size*size)
	for i := range data {
		data[i] = float32(rand.NormFloat64())
	}
	input := tensor.New(tensor.WithShape(1, 3, size, size), tensor.WithBacking(data))

	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "warmup interrupted")
		}
		if _, err := runner.Run(input, profiler.StartFrame()); err != nil {
			return errors.Wrapf(err, "warmup run %d", i+1)
		}
	}
	return nil
}

// processorConfig reads preprocessor_config.json from the snapshot when it
// is there and falls back to ImageNet statistics otherwise.
func processorConfig(cfg config.Config, logger *zap.Logger) preprocess.Config {
	path := filepath.Join(cfg.ONNXModelDir(), "preprocessor_config.json")
	if _, err := os.Stat(path); err != nil {
		return preprocess.DefaultConfig(cfg.InferenceBase)
	}
	pc, err := preprocess.LoadConfig(path, cfg.InferenceBase)
	if err != nil {
		logger.Warn("ignoring preprocessor config", zap.Error(err))
		return preprocess.DefaultConfig(cfg.InferenceBase)
	}
	return pc
}

//go:build !nogomlx

package graph

import (
	"context"
	"fmt"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	mlctx "github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/onnx-gomlx/onnx"
	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/depth"
	"github.com/nvr-ai/go-depth/images"
	"github.com/nvr-ai/go-depth/inference"
	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/nvr-ai/go-depth/models/hub"
	"github.com/nvr-ai/go-depth/models/preprocess"
	"github.com/nvr-ai/go-depth/profiler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	gtensor "gorgonia.org/tensor"

	// Pure Go engine, registered as "go".
	_ "github.com/gomlx/gomlx/backends/simplego"
)

// Available reports whether the backend is compiled in.
func Available() bool {
	return true
}

// New loads the transformer model and returns a ready-to-serve estimator.
//
// Arguments:
//   - ctx: Cancels the model download.
//   - cfg: Process configuration.
//   - logger: Parent logger; the estimator logs as DEPTH.
//   - opts: Collaborator overrides.
//
// Returns:
//   - *depth.Pipeline: The estimator.
//   - error: If the model cannot be obtained or imported.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*depth.Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("DEPTH")

	selector := opts.Selector
	if selector == nil {
		selector = device.Default(logger)
	}
	backend := selector.Select()

	engine, backend, err := newEngine(backend, logger)
	if err != nil {
		return nil, err
	}
	precision := inference.PrecisionFor(backend)
	logger.Info("Using: "+backend.Label, zap.String("engine", engine.Name()), zap.String("precision", string(precision)))

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = hub.NewHFFetcher(cfg.HFToken)
	}
	repo := opts.Repo
	if repo == "" {
		repo = hub.TransformerRepo
	}
	paths, err := hub.Resolve(ctx, logger, fetcher, cfg.HuggingFaceCacheDir(), repo, PreprocessorConfigFile, ModelFile(precision))
	if err != nil {
		engine.Finalize()
		return nil, err
	}

	pc, err := preprocess.LoadConfig(paths[0], cfg.InferenceBase)
	if err != nil {
		logger.Warn("using default preprocessing", zap.Error(err))
		pc = preprocess.DefaultConfig(cfg.InferenceBase)
	}

	runner, err := NewRunner(engine, paths[1])
	if err != nil {
		engine.Finalize()
		return nil, err
	}

	if backend.IsGPU() {
		size := cfg.WarmupSize()
		if err := runner.Precompile(size); err != nil {
			logger.Warn("graph precompilation failed, continuing unoptimized", zap.Int("size", size), zap.Error(err))
		} else {
			logger.Info("graph precompiled", zap.Int("size", size))
		}
	}

	return depth.NewPipeline(depth.PipelineArgs{
		Decoder:      images.NewDecoder(),
		Preprocessor: preprocess.NewPreprocessor(pc),
		Runner:       runner,
		Backend:      backend,
		Logger:       logger,
	})
}

// newEngine binds the backend to a GoMLX engine, falling back to the pure
// Go engine (and the CPU descriptor) when the device engine cannot start.
func newEngine(backend device.Backend, logger *zap.Logger) (backends.Backend, device.Backend, error) {
	name := EngineConfig(backend)
	engine, err := backends.NewWithConfig(name)
	if err == nil {
		if name == CPUEngine && backend.IsGPU() {
			logger.Warn("no accelerated engine for backend, running on CPU", zap.String("backend", backend.Label))
			return engine, device.CPU(), nil
		}
		return engine, backend, nil
	}

	logger.Warn("device engine unavailable, falling back to CPU", zap.String("engine", name), zap.Error(err))
	engine, err = backends.NewWithConfig(CPUEngine)
	if err != nil {
		return nil, device.Backend{}, errors.Wrap(err, "creating CPU engine")
	}
	return engine, device.CPU(), nil
}

// Runner executes the imported model graph.
type Runner struct {
	engine    backends.Backend
	model     *onnx.Model
	vars      *mlctx.Context
	exec      *mlctx.Exec
	inputName string
	half      bool
}

// NewRunner imports an ONNX export into a graph on engine. Graphs are
// compiled per input shape on first use.
func NewRunner(engine backends.Backend, modelPath string) (*Runner, error) {
	model, err := onnx.ReadFile(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", modelPath)
	}

	vars := mlctx.New()
	if err := model.VariablesToContext(vars); err != nil {
		return nil, errors.Wrap(err, "loading model weights")
	}

	names, shapes := model.Inputs()
	if len(names) == 0 {
		return nil, errors.Errorf("model %s has no inputs", modelPath)
	}

	r := &Runner{
		engine:    engine,
		model:     model,
		vars:      vars,
		inputName: names[0],
		half:      shapes[0].DType == dtypes.Float16,
	}

	r.exec, err = mlctx.NewExecAny(engine, vars, r.build)
	if err != nil {
		return nil, errors.Wrap(err, "creating graph executor")
	}
	return r, nil
}

// build casts float32 frames to the model's input type and the prediction
// back to float32.
func (r *Runner) build(ctx *mlctx.Context, inputs []*graph.Node) []*graph.Node {
	x := inputs[0]
	if r.half {
		x = graph.ConvertDType(x, dtypes.Float16)
	}
	outputs := r.model.CallGraph(ctx.Reuse(), x.Graph(), map[string]*graph.Node{r.inputName: x})
	y := outputs[0]
	if y.DType() != dtypes.Float32 {
		y = graph.ConvertDType(y, dtypes.Float32)
	}
	return []*graph.Node{y}
}

// Run implements depth.Runner.
func (r *Runner) Run(input *gtensor.Dense, frame *profiler.Frame) (*gtensor.Dense, error) {
	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("model input has dtype %v, want float32", input.Dtype())
	}
	in := tensors.FromFlatDataAndDimensions(data, input.Shape()...)
	frame.Mark(profiler.StageToDevice)

	results, err := r.exec.Exec(in)
	if err != nil {
		return nil, errors.Wrap(err, "graph inference")
	}
	if len(results) == 0 {
		return nil, errors.New("graph produced no output")
	}
	frame.Mark(profiler.StageInfer)

	dims := results[0].Shape().Dimensions
	flat, err := flatten(results[0].Value())
	if err != nil {
		return nil, err
	}
	frame.Mark(profiler.StageToCPU)
	return gtensor.New(gtensor.WithShape(dims...), gtensor.WithBacking(flat)), nil
}

// Precompile runs one zero frame of shape (1, 3, size, size) so the graph
// for the default input is compiled before the first request.
func (r *Runner) Precompile(size int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("precompile panicked: %v", p)
		}
	}()
	zero := gtensor.New(gtensor.WithShape(1, 3, size, size), gtensor.Of(gtensor.Float32))
	_, err = r.Run(zero, profiler.StartFrame())
	return err
}

// Close releases the engine.
func (r *Runner) Close() error {
	r.engine.Finalize()
	return nil
}

// flatten turns a host tensor value into row-major float32 data.
func flatten(value any) ([]float32, error) {
	switch v := value.(type) {
	case []float32:
		return v, nil
	case [][]float32:
		var out []float32
		for _, row := range v {
			out = append(out, row...)
		}
		return out, nil
	case [][][]float32:
		var out []float32
		for _, plane := range v {
			for _, row := range plane {
				out = append(out, row...)
			}
		}
		return out, nil
	case [][][][]float32:
		var out []float32
		for _, batch := range v {
			for _, plane := range batch {
				for _, row := range plane {
					out = append(out, row...)
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported graph output %T", value)
	}
}

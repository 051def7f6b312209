package depth

import (
	"io"
	"sync/atomic"

	"github.com/nvr-ai/go-depth/images"
	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/nvr-ai/go-depth/models/preprocess"
	"github.com/nvr-ai/go-depth/profiler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

// logEvery controls how often frame timings are logged.
const logEvery = 100

// Runner executes the depth model on one preprocessed input.
//
// Implementations mark profiler.StageToDevice, profiler.StageInfer and
// profiler.StageToCPU on the frame as they go.
type Runner interface {
	Run(input *tensor.Dense, frame *profiler.Frame) (*tensor.Dense, error)
}

// Pipeline is the backend-independent part of an estimator: decode,
// preprocess, run, normalize and pack.
type Pipeline struct {
	decoder      images.Decoder
	preprocessor *preprocess.Preprocessor
	runner       Runner
	backend      device.Backend
	logger       *zap.Logger
	tracker      *profiler.Tracker
	frames       atomic.Uint64
}

// PipelineArgs holds the parts a Pipeline is assembled from.
type PipelineArgs struct {
	// Decoder defaults to images.NewDecoder().
	Decoder images.Decoder
	// Preprocessor is required.
	Preprocessor *preprocess.Preprocessor
	// Runner is required.
	Runner Runner
	// Backend is reported by Backend().
	Backend device.Backend
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// NewPipeline assembles a pipeline.
//
// Arguments:
//   - args: The pipeline parts.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: If a required part is missing.
func NewPipeline(args PipelineArgs) (*Pipeline, error) {
	if args.Preprocessor == nil || args.Runner == nil {
		return nil, errors.New("pipeline needs a preprocessor and a runner")
	}
	if args.Decoder == nil {
		args.Decoder = images.NewDecoder()
	}
	if args.Logger == nil {
		args.Logger = zap.NewNop()
	}
	return &Pipeline{
		decoder:      args.Decoder,
		preprocessor: args.Preprocessor,
		runner:       args.Runner,
		backend:      args.Backend,
		logger:       args.Logger,
		tracker:      profiler.NewTracker(),
	}, nil
}

// Estimate implements Estimator.
func (p *Pipeline) Estimate(frame []byte) ([]byte, error) {
	timing := profiler.StartFrame()

	img, err := p.decoder.Decode(frame)
	if err != nil {
		return nil, errors.Wrap(err, "decoding frame")
	}
	timing.Mark(profiler.StageDecode)

	input, err := p.preprocessor.Preprocess(img)
	if err != nil {
		return nil, errors.Wrap(err, "preprocessing frame")
	}
	timing.Mark(profiler.StagePreprocess)

	prediction, err := p.runner.Run(input, timing)
	if err != nil {
		return nil, errors.Wrap(err, "running depth model")
	}

	height, width, err := Squeeze(prediction)
	if err != nil {
		return nil, err
	}
	values, ok := prediction.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("depth prediction has dtype %v, want float32", prediction.Dtype())
	}

	pixels := make([]uint8, width*height)
	MinMax(values, pixels)
	out, err := Pack(width, height, pixels)
	if err != nil {
		return nil, err
	}
	timing.Mark(profiler.StageNormalize)

	p.tracker.Record(timing)
	if n := p.frames.Add(1); n%logEvery == 1 {
		fields := append(timing.Fields(),
			zap.Uint64("frame", n),
			zap.Int("width", width),
			zap.Int("height", height),
		)
		p.logger.Info("frame timings", fields...)
	}

	return out, nil
}

// Backend implements Estimator.
func (p *Pipeline) Backend() device.Backend {
	return p.backend
}

// Frames is the number of frames estimated so far.
func (p *Pipeline) Frames() uint64 {
	return p.frames.Load()
}

// Stats returns rolling per-stage timings.
func (p *Pipeline) Stats() *profiler.Tracker {
	return p.tracker
}

// Close implements Estimator and closes the runner when it holds resources.
func (p *Pipeline) Close() error {
	if c, ok := p.runner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

package depth

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"

	"github.com/nvr-ai/go-depth/images"
	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/nvr-ai/go-depth/models/preprocess"
	"github.com/nvr-ai/go-depth/profiler"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorgonia.org/tensor"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}), "encoding test frame")
	return buf.Bytes()
}

// rampRunner predicts a horizontal ramp, or a constant when flat is set.
type rampRunner struct {
	flat   bool
	err    error
	calls  int
	closed bool
}

func (r *rampRunner) Run(input *tensor.Dense, frame *profiler.Frame) (*tensor.Dense, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	shape := input.Shape()
	h, w := shape[2], shape[3]
	data := make([]float32, h*w)
	for i := range data {
		if !r.flat {
			data[i] = float32(i%w) * 0.5
		} else {
			data[i] = 3.25
		}
	}
	frame.Mark(profiler.StageToDevice)
	frame.Mark(profiler.StageInfer)
	frame.Mark(profiler.StageToCPU)
	return tensor.New(tensor.WithShape(1, h, w), tensor.WithBacking(data)), nil
}

func (r *rampRunner) Close() error {
	r.closed = true
	return nil
}

func newTestPipeline(t *testing.T, runner Runner, logger *zap.Logger) *Pipeline {
	t.Helper()
	p, err := NewPipeline(PipelineArgs{
		Decoder:      images.StdDecoder{},
		Preprocessor: preprocess.NewPreprocessor(preprocess.DefaultConfig(280)),
		Runner:       runner,
		Backend:      device.CPU(),
		Logger:       logger,
	})
	require.NoError(t, err, "assembling pipeline")
	return p
}

func TestPackUnpack(t *testing.T) {
	out, err := Pack(3, 2, []uint8{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 3, 0, 2, 1, 2, 3, 4, 5, 6}, out, "header is big-endian width then height")

	w, h, values, err := Unpack(out)
	require.NoError(t, err)
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6}, values)
}

func TestPackRejects(t *testing.T) {
	_, err := Pack(70000, 1, make([]uint8, 70000))
	assert.Error(t, err, "width beyond uint16 must be rejected")

	_, err = Pack(2, 2, make([]uint8, 3))
	assert.Error(t, err, "payload length must match the dimensions")

	_, _, _, err = Unpack([]byte{0, 2})
	assert.ErrorIs(t, err, ErrBadResult, "short buffer")

	_, _, _, err = Unpack([]byte{0, 2, 0, 2, 1})
	assert.ErrorIs(t, err, ErrBadResult, "truncated payload")
}

func TestMinMax(t *testing.T) {
	tests := []struct {
		name   string
		values []float32
		want   []uint8
	}{
		{name: "ramp", values: []float32{0, 1, 2}, want: []uint8{0, 127, 255}},
		{name: "negative range", values: []float32{-4, -2, 0}, want: []uint8{0, 127, 255}},
		{name: "flat", values: []float32{7, 7, 7, 7}, want: []uint8{0, 0, 0, 0}},
		{name: "single", values: []float32{42}, want: []uint8{0}},
		{name: "wide finite range", values: []float32{-3e38, 0, 3e38}, want: []uint8{0, 127, 255}},
		{name: "max float32 extremes", values: []float32{-math.MaxFloat32, math.MaxFloat32}, want: []uint8{0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]uint8, len(tt.values))
			for i := range dst {
				dst[i] = 9
			}
			MinMax(tt.values, dst)
			assert.Equal(t, tt.want, dst, "unexpected normalized bytes")
		})
	}
}

func TestSqueeze(t *testing.T) {
	dense := tensor.New(tensor.WithShape(1, 1, 3, 4), tensor.Of(tensor.Float32))
	h, w, err := Squeeze(dense)
	require.NoError(t, err)
	assert.Equal(t, 3, h)
	assert.Equal(t, 4, w)
	assert.Equal(t, tensor.Shape{3, 4}, dense.Shape(), "singleton dims are dropped in place")

	_, _, err = Squeeze(tensor.New(tensor.WithShape(1, 2, 3, 4), tensor.Of(tensor.Float32)))
	assert.Error(t, err, "three spatial dims is not a depth map")

	_, _, err = Squeeze(tensor.New(tensor.WithShape(1, 1, 5), tensor.Of(tensor.Float32)))
	assert.Error(t, err, "a single row is ambiguous")
}

func TestPipelineEstimate(t *testing.T) {
	runner := &rampRunner{}
	p := newTestPipeline(t, runner, nil)

	out, err := p.Estimate(encodeJPEG(t, 640, 480))
	require.NoError(t, err, "estimating a 640x480 frame")

	assert.Equal(t, []byte{0x01, 0x18, 0x00, 0xD2}, out[:HeaderSize], "280x210 working size")
	assert.Len(t, out, HeaderSize+280*210, "length is header plus one byte per pixel")

	_, _, values, err := Unpack(out)
	require.NoError(t, err)
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	assert.Equal(t, uint8(0), lo, "frame minimum maps to 0")
	assert.Equal(t, uint8(255), hi, "frame maximum maps to 255")
	assert.Equal(t, device.CPU(), p.Backend())
}

func TestPipelineFlatPrediction(t *testing.T) {
	p := newTestPipeline(t, &rampRunner{flat: true}, nil)

	out, err := p.Estimate(encodeJPEG(t, 100, 100))
	require.NoError(t, err)

	w, h, values, err := Unpack(out)
	require.NoError(t, err)
	assert.Equal(t, 280, w, "square frame scales to the target")
	assert.Equal(t, 280, h)
	assert.Equal(t, make([]uint8, 280*280), values, "flat field yields zeros")
}

func TestPipelineErrors(t *testing.T) {
	runner := &rampRunner{}
	p := newTestPipeline(t, runner, nil)

	_, err := p.Estimate([]byte("definitely not a jpeg"))
	assert.ErrorIs(t, err, images.ErrNotJPEG, "non-JPEG payload is a decode error")
	assert.Equal(t, 0, runner.calls, "model must not run on a failed decode")

	runner.err = errors.New("device lost")
	_, err = p.Estimate(encodeJPEG(t, 64, 48))
	assert.ErrorContains(t, err, "device lost", "inference errors propagate")
	assert.Equal(t, uint64(0), p.Frames(), "failed frames are not counted")
}

func TestPipelineLogsEveryHundredthFrame(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := newTestPipeline(t, &rampRunner{}, zap.New(core))
	frame := encodeJPEG(t, 32, 32)

	for i := 0; i < 101; i++ {
		_, err := p.Estimate(frame)
		require.NoError(t, err)
	}

	entries := logs.FilterMessage("frame timings").All()
	require.Len(t, entries, 2, "frames 1 and 101 are logged")
	fields := entries[0].ContextMap()
	assert.Equal(t, uint64(1), fields["frame"])
	assert.Contains(t, fields, "infer_ms")
	assert.Equal(t, 0.0, fields["interp_ms"], "no resize-back happens")
	assert.Equal(t, int64(101), p.Stats().Total().Count)
}

func TestPipelineClose(t *testing.T) {
	runner := &rampRunner{}
	p := newTestPipeline(t, runner, nil)
	require.NoError(t, p.Close())
	assert.True(t, runner.closed, "closing the pipeline closes the runner")

	_, err := NewPipeline(PipelineArgs{})
	assert.Error(t, err, "runner and preprocessor are required")
}

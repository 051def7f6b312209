package onnx

import (
	"github.com/nvr-ai/go-depth/inference/providers"
	"github.com/nvr-ai/go-depth/profiler"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// Runner feeds preprocessed frames to an ONNX Runtime session.
type Runner struct {
	session *providers.Session
	// half is set when the model input is float16.
	half bool
}

// NewRunner wraps a session. The input element type decides whether frames
// are downcast before inference.
func NewRunner(session *providers.Session) *Runner {
	return &Runner{
		session: session,
		half:    session.Input.DataType == ort.TensorElementDataTypeFloat16,
	}
}

// Run implements depth.Runner.
func (r *Runner) Run(input *tensor.Dense, frame *profiler.Frame) (*tensor.Dense, error) {
	in, err := r.newInput(input)
	if err != nil {
		return nil, err
	}
	defer in.Destroy()
	frame.Mark(profiler.StageToDevice)

	outputs := []ort.Value{nil}
	if err := r.session.Session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, errors.Wrap(err, "onnx runtime inference")
	}
	defer outputs[0].Destroy()
	frame.Mark(profiler.StageInfer)

	out, err := toDense(outputs[0])
	if err != nil {
		return nil, err
	}
	frame.Mark(profiler.StageToCPU)
	return out, nil
}

// Close releases the session.
func (r *Runner) Close() error {
	return r.session.Close()
}

func (r *Runner) newInput(input *tensor.Dense) (ort.Value, error) {
	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("model input has dtype %v, want float32", input.Dtype())
	}

	dims := make([]int64, len(input.Shape()))
	for i, d := range input.Shape() {
		dims[i] = int64(d)
	}
	shape := ort.NewShape(dims...)

	if r.half {
		t, err := ort.NewCustomDataTensor(shape, encodeFloat16(data), ort.TensorElementDataTypeFloat16)
		if err != nil {
			return nil, errors.Wrap(err, "creating float16 input tensor")
		}
		return t, nil
	}

	t, err := ort.NewTensor(shape, data)
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}
	return t, nil
}

// toDense copies a runtime-allocated output into a float32 tensor.
func toDense(value ort.Value) (*tensor.Dense, error) {
	dims := value.GetShape()
	size := int(dims.FlattenedSize())

	var data []float32
	switch v := value.(type) {
	case *ort.Tensor[float32]:
		data = append([]float32(nil), v.GetData()...)
	case *ort.CustomDataTensor:
		// Half-float outputs come back as raw bytes.
		raw := v.GetData()
		if len(raw) != 2*size {
			return nil, errors.Errorf("output of %d bytes is not float16 %v", len(raw), dims)
		}
		data = decodeFloat16(raw)
	default:
		return nil, errors.Errorf("unsupported output value %T", value)
	}

	if len(data) != size {
		return nil, errors.Errorf("output shape %v does not match %d values", dims, len(data))
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data)), nil
}

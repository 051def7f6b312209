package graph

import (
	"testing"

	"github.com/nvr-ai/go-depth/inference"
	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/stretchr/testify/assert"
)

func TestEngineConfig(t *testing.T) {
	tests := []struct {
		backend device.Backend
		want    string
	}{
		{backend: device.CUDA(0, "L4"), want: "xla:cuda"},
		{backend: device.ROCm(0, "MI300X"), want: "xla:rocm"},
		{backend: device.Metal(), want: CPUEngine},
		{backend: device.DirectML(0, "Arc"), want: CPUEngine},
		{backend: device.CPU(), want: CPUEngine},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, EngineConfig(tt.backend), "unexpected engine for %s", tt.backend)
		})
	}
}

func TestModelFile(t *testing.T) {
	assert.Equal(t, "onnx/model_fp16.onnx", ModelFile(inference.PrecisionFP16), "half precision export")
	assert.Equal(t, "onnx/model.onnx", ModelFile(inference.PrecisionFP32), "full precision export")
}

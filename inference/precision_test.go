package inference

import (
	"testing"

	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/stretchr/testify/assert"
)

func TestPrecisionFor(t *testing.T) {
	tests := []struct {
		kind device.Kind
		want Precision
	}{
		{kind: device.KindCUDA, want: PrecisionFP16},
		{kind: device.KindROCm, want: PrecisionFP16},
		{kind: device.KindMetal, want: PrecisionFP16},
		{kind: device.KindDirectML, want: PrecisionFP32},
		{kind: device.KindCPU, want: PrecisionFP32},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := PrecisionFor(device.Backend{Kind: tt.kind})
			assert.Equal(t, tt.want, got, "unexpected precision for %s", tt.kind)
		})
	}
}

func TestPrecisionBits(t *testing.T) {
	assert.Equal(t, 16, PrecisionFP16.Bits())
	assert.Equal(t, 32, PrecisionFP32.Bits())
}

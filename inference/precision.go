// Package inference - This file provides common utilities for inference tasks.
package inference

import "github.com/nvr-ai/go-depth/inference/device"

// Precision represents the numeric precision a model runs in.
type Precision string

// Precision constants are the supported precisions for inference.
const (
	PrecisionFP16 Precision = "FP16"
	PrecisionFP32 Precision = "FP32"
)

// PrecisionFor chooses the precision for a backend.
//
// Reduced precision is used on GPU backends that gain from it. DirectML and
// the CPU stay in full precision.
//
// Arguments:
//   - backend: The selected compute backend.
//
// Returns:
//   - Precision: FP16 or FP32.
func PrecisionFor(backend device.Backend) Precision {
	switch backend.Kind {
	case device.KindCUDA, device.KindROCm, device.KindMetal:
		return PrecisionFP16
	default:
		return PrecisionFP32
	}
}

// Bits returns the float width of the precision.
func (p Precision) Bits() int {
	if p == PrecisionFP16 {
		return 16
	}
	return 32
}

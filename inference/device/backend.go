// Package device - Compute backend detection for the depth pipelines.
//
// A Backend is chosen once per process by probing, in order, the primary GPU
// compute API (CUDA, or its ROCm/HIP variant), the Apple unified-memory GPU,
// the DirectML add-on, and finally the CPU.
package device

import "fmt"

// Kind tags the compute backend variants.
type Kind string

// Kind constants in probe priority order.
const (
	KindCUDA     Kind = "cuda"
	KindROCm     Kind = "rocm"
	KindMetal    Kind = "metal"
	KindDirectML Kind = "directml"
	KindCPU      Kind = "cpu"
)

// Backend identifies the selected compute target.
type Backend struct {
	// Kind is the backend variant.
	Kind Kind `json:"kind" yaml:"kind"`
	// Index is the device ordinal for multi-device APIs.
	Index int `json:"index" yaml:"index"`
	// Label is a human-readable device description.
	Label string `json:"label" yaml:"label"`
}

// CUDA returns a CUDA backend for the named device.
func CUDA(index int, name string) Backend {
	return Backend{Kind: KindCUDA, Index: index, Label: fmt.Sprintf("CUDA (%s)", name)}
}

// ROCm returns a ROCm/HIP backend for the named device.
func ROCm(index int, name string) Backend {
	return Backend{Kind: KindROCm, Index: index, Label: fmt.Sprintf("ROCm/HIP (%s)", name)}
}

// Metal returns the Apple Silicon GPU backend.
func Metal() Backend {
	return Backend{Kind: KindMetal, Label: "MPS (Apple Silicon)"}
}

// DirectML returns a DirectML backend for the named adapter.
func DirectML(index int, name string) Backend {
	return Backend{Kind: KindDirectML, Index: index, Label: fmt.Sprintf("DirectML (%s)", name)}
}

// CPU returns the terminal fallback backend.
func CPU() Backend {
	return Backend{Kind: KindCPU, Label: "CPU"}
}

// IsGPU reports whether the backend runs on an accelerator.
func (b Backend) IsGPU() bool {
	return b.Kind != KindCPU && b.Kind != ""
}

// String returns the label.
func (b Backend) String() string {
	return b.Label
}

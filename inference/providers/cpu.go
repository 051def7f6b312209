// Package providers - CPU based execution provider.
package providers

import ort "github.com/yalue/onnxruntime_go"

const (
	// CPUProviderBackend is the default ONNX Runtime provider.
	CPUProviderBackend ProviderBackend = "cpu"
)

// CPUOptions is empty; the CPU provider is always registered implicitly.
type CPUOptions struct{}

func (CPUOptions) isProviderOptions() {}

// CPUProvider implements the ExecutionProvider interface.
type CPUProvider struct{}

// NewCPUProvider creates a new CPU provider.
func NewCPUProvider() *CPUProvider {
	return &CPUProvider{}
}

// Backend returns the backend of the CPU provider.
func (p *CPUProvider) Backend() ProviderBackend {
	return CPUProviderBackend
}

// Options returns the options of the CPU provider.
func (p *CPUProvider) Options() ProviderOptions {
	return CPUOptions{}
}

// Append is a no-op. ONNX Runtime falls back to the CPU provider for every
// node an earlier provider did not claim.
func (p *CPUProvider) Append(*ort.SessionOptions) error {
	return nil
}

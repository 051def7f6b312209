// Package providers - Execution providers for ONNX Runtime sessions.
package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers.
type ProviderBackend string

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend names the provider.
	Backend() ProviderBackend
	// Options returns the provider-specific configuration.
	Options() ProviderOptions
	// Append registers the provider on session options.
	Append(options *ort.SessionOptions) error
}

// Priority is the order in which accelerated providers are preferred. CPU is
// not listed; it is always appended after the chosen provider.
var Priority = []ProviderBackend{
	CUDAProviderBackend,
	CoreMLProviderBackend,
	DirectMLProviderBackend,
}

// NewProvider creates a provider with default options for a backend.
//
// Arguments:
//   - backend: The backend to create.
//
// Returns:
//   - ExecutionProvider: The provider.
//   - error: If the backend is unknown.
func NewProvider(backend ProviderBackend) (ExecutionProvider, error) {
	switch backend {
	case CUDAProviderBackend:
		return NewCUDAProvider(CUDAOptions{}), nil
	case CoreMLProviderBackend:
		return NewCoreMLProvider(CoreMLOptions{}), nil
	case DirectMLProviderBackend:
		return NewDirectMLProvider(DirectMLOptions{}), nil
	case CPUProviderBackend:
		return NewCPUProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported provider backend: %s", backend)
	}
}

// Package providers - DirectML execution provider.
package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// DirectMLProviderBackend uses DirectX 12 compute on Windows.
	DirectMLProviderBackend ProviderBackend = "directml"
)

// DirectMLOptions contains arguments for the DirectML provider.
// See: https://onnxruntime.ai/docs/execution-providers/DirectML-ExecutionProvider.html
type DirectMLOptions struct {
	// DeviceID is the DXGI adapter index.
	DeviceID int `json:"deviceID" yaml:"deviceID"`
}

func (DirectMLOptions) isProviderOptions() {}

// DirectMLProvider implements the ExecutionProvider interface.
type DirectMLProvider struct {
	options DirectMLOptions
}

// NewDirectMLProvider creates a new DirectML provider.
func NewDirectMLProvider(options DirectMLOptions) *DirectMLProvider {
	return &DirectMLProvider{options: options}
}

// Backend returns the backend of the DirectML provider.
func (p *DirectMLProvider) Backend() ProviderBackend {
	return DirectMLProviderBackend
}

// Options returns the options of the DirectML provider.
func (p *DirectMLProvider) Options() ProviderOptions {
	return p.options
}

// Append registers DirectML on the session options.
//
// DirectML cannot run with parallel execution or memory pattern reuse.
// See OptimizationConfig.ForBackend.
func (p *DirectMLProvider) Append(options *ort.SessionOptions) error {
	if err := options.AppendExecutionProviderDirectML(p.options.DeviceID); err != nil {
		return fmt.Errorf("error enabling DirectML: %w", err)
	}
	return nil
}

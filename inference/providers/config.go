// Package providers - Provider selection over runtime-reported availability.
package providers

import "github.com/nvr-ai/go-depth/inference/device"

// Availability reports whether the runtime can register a provider.
type Availability func(ProviderBackend) bool

// Plan is the ordered provider list a session is built with.
type Plan struct {
	// Primary is the preferred provider.
	Primary ProviderBackend `json:"primary" yaml:"primary"`
	// Providers is Primary followed by the CPU fallback.
	Providers []ProviderBackend `json:"providers" yaml:"providers"`
}

// Select walks Priority and keeps the first available provider, then appends
// the CPU provider so operators the primary lacks still run.
//
// Arguments:
//   - available: Runtime-reported availability; nil means nothing but CPU.
//
// Returns:
//   - Plan: The provider list, never empty.
func Select(available Availability) Plan {
	if available != nil {
		for _, backend := range Priority {
			if available(backend) {
				return Plan{
					Primary:   backend,
					Providers: []ProviderBackend{backend, CPUProviderBackend},
				}
			}
		}
	}
	return Plan{Primary: CPUProviderBackend, Providers: []ProviderBackend{CPUProviderBackend}}
}

// Device maps the plan's primary provider onto a device backend descriptor.
func (p Plan) Device() device.Backend {
	switch p.Primary {
	case CUDAProviderBackend:
		return device.CUDA(0, "CUDAExecutionProvider")
	case CoreMLProviderBackend:
		return device.Metal()
	case DirectMLProviderBackend:
		return device.DirectML(0, "DmlExecutionProvider")
	default:
		return device.CPU()
	}
}

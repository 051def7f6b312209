// Package diagnostics - Compute backend capability report.
package diagnostics

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/nvr-ai/go-depth/inference/providers"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Sources are the capability queries behind a report.
type Sources struct {
	// Compute queries the primary GPU API.
	Compute *device.ComputeProbe
	// Metal checks for the Apple Silicon GPU.
	Metal device.Probe
	// DirectML checks for the DirectML add-on.
	DirectML device.Probe
	// Providers lists the ONNX Runtime providers that can register.
	Providers func() ([]string, error)
}

// DefaultSources queries the running machine. libPath locates the ONNX
// Runtime shared library.
func DefaultSources(libPath string) Sources {
	return Sources{
		Compute:   device.NewComputeProbe(),
		Metal:     device.NewMetalProbe(),
		DirectML:  device.NewDirectMLProbe(),
		Providers: RuntimeProviders(providers.GetSharedLibPath(libPath)),
	}
}

// RuntimeProviders initializes ONNX Runtime and reports which execution
// providers register, CPU included.
func RuntimeProviders(libPath string) func() ([]string, error) {
	return func() ([]string, error) {
		if err := providers.InitializeEnvironment(libPath); err != nil {
			return nil, err
		}
		available := providers.RuntimeAvailability()
		var names []string
		for _, backend := range providers.Priority {
			if available(backend) {
				names = append(names, string(backend))
			}
		}
		return append(names, string(providers.CPUProviderBackend)), nil
	}
}

// Report is a snapshot of what the machine can run on.
type Report struct {
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`

	GPU    device.GPUInfo `json:"gpu"`
	GPUErr error          `json:"-"`

	Metal    bool           `json:"metal"`
	DirectML device.Backend `json:"directml"`
	HasDML   bool           `json:"has_directml"`

	Providers    []string `json:"providers"`
	ProvidersErr error    `json:"-"`

	Best device.Backend `json:"best"`
}

// Collect queries every source. It never panics: failing sources are
// reported as absent or with their error.
//
// Arguments:
//   - src: The capability queries.
//   - logger: Receives unexpected probe failures.
//
// Returns:
//   - Report: The capability report.
func Collect(src Sources, logger *zap.Logger) Report {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := Report{
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	var probes []device.Probe
	if src.Compute != nil {
		r.GPU, r.GPUErr = safely(src.Compute.Info)
		if errors.Is(r.GPUErr, device.ErrUnavailable) {
			r.GPUErr = nil
		}
		probes = append(probes, src.Compute)
	}
	if src.Metal != nil {
		_, r.Metal = device.Detect(src.Metal, logger)
		probes = append(probes, src.Metal)
	}
	if src.DirectML != nil {
		r.DirectML, r.HasDML = device.Detect(src.DirectML, logger)
		probes = append(probes, src.DirectML)
	}
	if src.Providers != nil {
		r.Providers, r.ProvidersErr = safely(src.Providers)
	}

	r.Best = device.NewSelector(logger, probes...).Select()
	return r
}

// CUDAAvailable reports whether the primary GPU API found a device.
func (r Report) CUDAAvailable() bool {
	return len(r.GPU.Devices) > 0
}

// Write prints the report in a human-readable layout.
func (r Report) Write(w io.Writer) {
	heading := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	heading.Fprintln(w, "Compute backends")
	fmt.Fprintf(w, "Go: %s\n", r.GoVersion)
	fmt.Fprintf(w, "Platform: %s\n", r.Platform)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "CUDA available: %s\n", yesNo(r.CUDAAvailable()))
	if r.CUDAAvailable() {
		if r.GPU.DriverVersion != "" {
			fmt.Fprintf(w, "  Driver version: %s\n", r.GPU.DriverVersion)
		}
		if r.GPU.CUDAVersion != "" {
			fmt.Fprintf(w, "  CUDA version: %s\n", r.GPU.CUDAVersion)
		}
		fmt.Fprintf(w, "  Device count: %d\n", len(r.GPU.Devices))
		for i, name := range r.GPU.Devices {
			fmt.Fprintf(w, "  Device %d: %s\n", i, name)
		}
	}
	if r.GPUErr != nil {
		color.New(color.FgRed).Fprintf(w, "  GPU probe error: %v\n", r.GPUErr)
	}
	if r.GPU.HIPVersion != "" {
		fmt.Fprintf(w, "ROCm/HIP version: %s\n", r.GPU.HIPVersion)
	}

	fmt.Fprintf(w, "MPS available: %s\n", yesNo(r.Metal))
	if r.Metal {
		fmt.Fprintln(w, "  Device: Apple Silicon GPU")
	}

	fmt.Fprintf(w, "DirectML available: %s\n", yesNo(r.HasDML))
	if r.HasDML {
		fmt.Fprintf(w, "  Device %d: %s\n", r.DirectML.Index, r.DirectML.Label)
	}

	if r.ProvidersErr != nil {
		fmt.Fprintf(w, "ONNX Runtime: %s ", yesNo(false))
		dim.Fprintf(w, "(%v)\n", r.ProvidersErr)
	} else if r.Providers != nil {
		fmt.Fprintf(w, "ONNX Runtime providers: %s\n", strings.Join(r.Providers, ", "))
	}

	fmt.Fprintln(w)
	best := color.New(color.FgGreen, color.Bold)
	if !r.Best.IsGPU() {
		best = color.New(color.FgYellow, color.Bold)
	}
	best.Fprintf(w, "Best backend: %s\n", r.Best.Label)
	if !r.Best.IsGPU() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "To enable GPU acceleration:")
		for _, line := range GPUSetupHint {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// GPUSetupHint is printed when only the CPU is usable.
var GPUSetupHint = []string{
	"Install a GPU build of ONNX Runtime and point " + config.EnvORTLibrary + " at its shared library",
	"Re-run: go run ./cmd/check-gpu",
}

func yesNo(ok bool) string {
	if ok {
		return color.GreenString("True")
	}
	return color.RedString("False")
}

// safely runs a query and turns a panic into an error.
func safely[T any](query func() (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
	}()
	return query()
}

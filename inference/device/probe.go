package device

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrUnavailable marks a backend that is simply not present.
var ErrUnavailable = errors.New("backend unavailable")

// Probe checks for one backend variant.
type Probe interface {
	// Kind is the variant family the probe looks for.
	Kind() Kind
	// Probe returns the backend, ErrUnavailable, or an unexpected error.
	Probe() (Backend, error)
}

// Detect runs a probe and folds every failure mode into absent.
//
// Expected absence is silent. Unexpected errors and panics from native
// bindings are logged with the probe kind and are never returned.
//
// Arguments:
//   - probe: The probe to run.
//   - logger: Receives unexpected probe failures.
//
// Returns:
//   - Backend: The detected backend when present.
//   - bool: Whether the backend is present.
func Detect(probe Probe, logger *zap.Logger) (backend Backend, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("backend probe panicked", zap.String("kind", string(probe.Kind())), zap.Any("panic", r))
			backend, ok = Backend{}, false
		}
	}()

	b, err := probe.Probe()
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			logger.Warn("backend probe failed", zap.String("kind", string(probe.Kind())), zap.Error(err))
		}
		return Backend{}, false
	}
	return b, true
}

// GPUInfo is what the primary compute API reports about the machine.
type GPUInfo struct {
	// Devices holds device names in ordinal order.
	Devices []string `json:"devices"`
	// DriverVersion is the kernel driver version string.
	DriverVersion string `json:"driver_version"`
	// CUDAVersion is the CUDA driver API version, e.g. "12.4".
	CUDAVersion string `json:"cuda_version,omitempty"`
	// HIPVersion is set when the devices are served by ROCm/HIP.
	HIPVersion string `json:"hip_version,omitempty"`
}

// InfoFunc queries one vendor stack of the primary compute API.
type InfoFunc func() (GPUInfo, error)

// ComputeProbe probes the primary GPU compute API.
//
// NVIDIA devices are queried first and AMD devices second. The HIP version
// field distinguishes the ROCm variant from CUDA.
type ComputeProbe struct {
	NVIDIA InfoFunc
	AMD    InfoFunc
}

// NewComputeProbe returns a ComputeProbe bound to the platform vendor stacks.
func NewComputeProbe() *ComputeProbe {
	return &ComputeProbe{
		NVIDIA: nvidiaInfo,
		AMD:    func() (GPUInfo, error) { return rocmInfo(rocmRoot(), "/dev/kfd") },
	}
}

// Kind implements Probe.
func (p *ComputeProbe) Kind() Kind {
	return KindCUDA
}

// Info returns the first vendor stack that reports at least one device.
func (p *ComputeProbe) Info() (GPUInfo, error) {
	var firstErr error
	for _, query := range []InfoFunc{p.NVIDIA, p.AMD} {
		if query == nil {
			continue
		}
		info, err := query()
		if err == nil && len(info.Devices) > 0 {
			return info, nil
		}
		if err != nil && !errors.Is(err, ErrUnavailable) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return GPUInfo{}, firstErr
	}
	return GPUInfo{}, ErrUnavailable
}

// Probe implements Probe.
func (p *ComputeProbe) Probe() (Backend, error) {
	info, err := p.Info()
	if err != nil {
		return Backend{}, err
	}
	if info.HIPVersion != "" {
		return ROCm(0, info.Devices[0]), nil
	}
	return CUDA(0, info.Devices[0]), nil
}

// MetalProbe reports the Apple Silicon GPU.
type MetalProbe struct {
	GOOS   string
	GOARCH string
}

// NewMetalProbe returns a MetalProbe for the running platform.
func NewMetalProbe() *MetalProbe {
	return &MetalProbe{GOOS: runtime.GOOS, GOARCH: runtime.GOARCH}
}

// Kind implements Probe.
func (p *MetalProbe) Kind() Kind {
	return KindMetal
}

// Probe implements Probe.
func (p *MetalProbe) Probe() (Backend, error) {
	if p.GOOS == "darwin" && p.GOARCH == "arm64" {
		return Metal(), nil
	}
	return Backend{}, ErrUnavailable
}

// DirectMLProbe reports the DirectML add-on.
type DirectMLProbe struct {
	// Load reports the adapter name when the DirectML runtime loads.
	Load func() (string, error)
}

// NewDirectMLProbe returns a DirectMLProbe bound to the platform loader.
func NewDirectMLProbe() *DirectMLProbe {
	return &DirectMLProbe{Load: loadDirectML}
}

// Kind implements Probe.
func (p *DirectMLProbe) Kind() Kind {
	return KindDirectML
}

// Probe implements Probe.
func (p *DirectMLProbe) Probe() (Backend, error) {
	if p.Load == nil {
		return Backend{}, ErrUnavailable
	}
	name, err := p.Load()
	if err != nil {
		return Backend{}, err
	}
	return DirectML(0, name), nil
}

// DefaultProbes returns the platform probes in priority order.
func DefaultProbes() []Probe {
	return []Probe{NewComputeProbe(), NewMetalProbe(), NewDirectMLProbe()}
}

func rocmRoot() string {
	if root := os.Getenv("ROCM_PATH"); root != "" {
		return root
	}
	return "/opt/rocm"
}

// rocmInfo reads the HIP version shipped with a ROCm install and requires
// the kernel fusion driver node to exist.
func rocmInfo(root, kfd string) (GPUInfo, error) {
	if _, err := os.Stat(kfd); err != nil {
		return GPUInfo{}, ErrUnavailable
	}

	raw, err := os.ReadFile(filepath.Join(root, ".info", "version"))
	if err != nil {
		if os.IsNotExist(err) {
			return GPUInfo{}, ErrUnavailable
		}
		return GPUInfo{}, errors.Wrap(err, "reading ROCm version")
	}

	version := strings.TrimSpace(string(raw))
	if version == "" {
		return GPUInfo{}, fmt.Errorf("empty ROCm version file under %s", root)
	}
	if i := strings.IndexByte(version, '-'); i > 0 {
		version = version[:i]
	}

	return GPUInfo{
		Devices:    []string{"AMD GPU"},
		HIPVersion: version,
	}, nil
}

// formatCUDAVersion renders the NVML integer form (12040) as "12.4".
func formatCUDAVersion(v int) string {
	return fmt.Sprintf("%d.%d", v/1000, (v%1000)/10)
}

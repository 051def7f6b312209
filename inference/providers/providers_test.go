package providers

import (
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"
)

func only(backends ...ProviderBackend) Availability {
	set := map[ProviderBackend]bool{}
	for _, b := range backends {
		set[b] = true
	}
	return func(b ProviderBackend) bool { return set[b] }
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name      string
		available Availability
		want      []ProviderBackend
	}{
		{
			name:      "cuda first",
			available: only(CUDAProviderBackend, DirectMLProviderBackend, CoreMLProviderBackend),
			want:      []ProviderBackend{CUDAProviderBackend, CPUProviderBackend},
		},
		{
			name:      "coreml before directml",
			available: only(CoreMLProviderBackend, DirectMLProviderBackend),
			want:      []ProviderBackend{CoreMLProviderBackend, CPUProviderBackend},
		},
		{
			name:      "directml",
			available: only(DirectMLProviderBackend),
			want:      []ProviderBackend{DirectMLProviderBackend, CPUProviderBackend},
		},
		{
			name:      "cpu only",
			available: only(),
			want:      []ProviderBackend{CPUProviderBackend},
		},
		{
			name:      "nil availability",
			available: nil,
			want:      []ProviderBackend{CPUProviderBackend},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Select(tt.available)
			assert.Equal(t, tt.want, plan.Providers, "unexpected provider list")
			assert.Equal(t, tt.want[0], plan.Primary, "primary should lead the list")
			assert.Equal(t, CPUProviderBackend, plan.Providers[len(plan.Providers)-1], "CPU is always last")
		})
	}
}

func TestPlanDevice(t *testing.T) {
	assert.Equal(t, device.KindCUDA, Select(only(CUDAProviderBackend)).Device().Kind)
	assert.Equal(t, device.KindMetal, Select(only(CoreMLProviderBackend)).Device().Kind)
	assert.Equal(t, device.KindDirectML, Select(only(DirectMLProviderBackend)).Device().Kind)
	assert.Equal(t, device.CPU(), Select(nil).Device())
}

func TestOptimizationForBackend(t *testing.T) {
	base := DefaultOptimizationConfig()
	base.ExecutionMode = ort.ExecutionModeParallel

	dml := base.ForBackend(DirectMLProviderBackend)
	assert.Equal(t, ort.ExecutionMode(ort.ExecutionModeSequential), dml.ExecutionMode, "DirectML needs sequential execution")
	assert.False(t, dml.EnableMemoryPattern, "DirectML disables memory pattern reuse")

	cuda := base.ForBackend(CUDAProviderBackend)
	assert.Equal(t, base, cuda, "other providers keep the defaults")
	assert.True(t, base.EnableMemoryPattern, "override must not mutate the receiver")
}

func TestDefaultOptimizationConfig(t *testing.T) {
	cfg := DefaultOptimizationConfig()
	assert.Equal(t, ort.GraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll), cfg.GraphOptimizationLevel, "all graph optimizations on")
	assert.Zero(t, cfg.IntraOpNumThreads, "runtime picks the thread count")
}

func TestNewProvider(t *testing.T) {
	for _, backend := range append([]ProviderBackend{CPUProviderBackend}, Priority...) {
		provider, err := NewProvider(backend)
		require.NoError(t, err, "known backend %s", backend)
		assert.Equal(t, backend, provider.Backend())
	}

	_, err := NewProvider("tpu")
	assert.Error(t, err, "unknown backends are rejected")
}

func TestCUDAOptionsToMap(t *testing.T) {
	m := CUDAOptions{DeviceID: 1, CudnnConvAlgoSearch: 1, DoCopyInDefaultStream: true}.ToMap()

	assert.Equal(t, "1", m["device_id"])
	assert.Equal(t, "HEURISTIC", m["cudnn_conv_algo_search"])
	assert.Equal(t, "1", m["do_copy_in_default_stream"])
	assert.NotContains(t, m, "gpu_mem_limit", "zero limit keeps the runtime default")
}

func TestCoreMLFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x011), CoreMLOptions{CPUOnly: true, MLProgram: true}.Flags())
}

func TestGetSharedLibPath(t *testing.T) {
	assert.Equal(t, "/usr/lib/libonnxruntime.so.1.21", GetSharedLibPath("/usr/lib/libonnxruntime.so.1.21"), "override wins")

	t.Setenv("ONNXRUNTIME_ROOT", "/opt/ort")
	assert.Equal(t, filepath.Join("/opt/ort", "lib"), filepath.Dir(GetSharedLibPath("")), "root env var is honored")

	assert.Equal(t, "onnxruntime.dll", sharedLibName("windows", "amd64"))
	assert.Equal(t, "libonnxruntime.dylib", sharedLibName("darwin", "arm64"))
	assert.Equal(t, "onnxruntime_arm64.so", sharedLibName("linux", "arm64"))
}

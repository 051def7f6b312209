//go:build linux

package device

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvidiaInfo queries NVML. A missing driver library reads as absent.
func nvidiaInfo() (GPUInfo, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return GPUInfo{}, ErrUnavailable
	}
	defer nvml.Shutdown()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return GPUInfo{}, fmt.Errorf("nvml device count: %s", nvml.ErrorString(ret))
	}
	if count == 0 {
		return GPUInfo{}, ErrUnavailable
	}

	info := GPUInfo{Devices: make([]string, 0, count)}
	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			return GPUInfo{}, fmt.Errorf("nvml device %d: %s", i, nvml.ErrorString(ret))
		}
		name, ret := dev.GetName()
		if ret != nvml.SUCCESS {
			name = fmt.Sprintf("GPU %d", i)
		}
		info.Devices = append(info.Devices, name)
	}

	if driver, ret := nvml.SystemGetDriverVersion(); ret == nvml.SUCCESS {
		info.DriverVersion = driver
	}
	if version, ret := nvml.SystemGetCudaDriverVersion(); ret == nvml.SUCCESS {
		info.CUDAVersion = formatCUDAVersion(version)
	}

	return info, nil
}

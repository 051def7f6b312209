//go:build !linux

package device

func nvidiaInfo() (GPUInfo, error) {
	return GPUInfo{}, ErrUnavailable
}

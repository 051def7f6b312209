//go:build windows

package device

import "golang.org/x/sys/windows"

func loadDirectML() (string, error) {
	dll := windows.NewLazyDLL("DirectML.dll")
	if err := dll.Load(); err != nil {
		return "", ErrUnavailable
	}
	return "adapter 0", nil
}

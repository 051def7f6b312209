// Package providers - Utility functions.
package providers

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetSharedLibPath returns the path to the ONNX Runtime shared library.
//
// An explicit override wins, then $ONNXRUNTIME_ROOT/lib, then the platform
// default under ./third_party.
//
// Arguments:
//   - override: An explicit library path, usually from configuration.
//
// Returns:
//   - string: The path to the shared library.
func GetSharedLibPath(override string) string {
	if override != "" {
		return override
	}

	name := sharedLibName(runtime.GOOS, runtime.GOARCH)
	if root := os.Getenv("ONNXRUNTIME_ROOT"); root != "" {
		return filepath.Join(root, "lib", name)
	}
	return filepath.Join("third_party", name)
}

func sharedLibName(goos, goarch string) string {
	switch goos {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		if goarch == "arm64" {
			return "onnxruntime_arm64.so"
		}
		return "libonnxruntime.so"
	}
}

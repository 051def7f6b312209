// Package onnx - Depth estimation on ONNX Runtime.
package onnx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrModelNotFound matches every MissingModelError.
var ErrModelNotFound = errors.New("ONNX model not found")

// ProvisionCommand is the operator remedy for a missing model.
const ProvisionCommand = "go run ./cmd/download-models"

// Candidates are the model files checked under <dir>/onnx, in priority order.
var Candidates = []string{"model_fp16.onnx", "model.onnx"}

// MissingModelError names the directory that was searched and the remedy.
type MissingModelError struct {
	Dir string
}

func (e *MissingModelError) Error() string {
	return fmt.Sprintf("ONNX model not found in %s\nRun: %s", e.Dir, ProvisionCommand)
}

// Is reports ErrModelNotFound.
func (e *MissingModelError) Is(target error) bool {
	return target == ErrModelNotFound
}

// ResolveModel returns the first candidate model file present in the
// snapshot directory.
//
// Arguments:
//   - dir: The snapshot directory, e.g. models/onnx/depth-anything-v2-small.
//
// Returns:
//   - string: Path to the model file.
//   - error: A *MissingModelError when nothing matches.
func ResolveModel(dir string) (string, error) {
	onnxDir := filepath.Join(dir, "onnx")
	for _, name := range Candidates {
		path := filepath.Join(onnxDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", &MissingModelError{Dir: onnxDir}
}

// Package graph - Depth estimation on the GoMLX graph compiler.
//
// The transformer model is fetched into the hub cache under
// models/huggingface and imported from its ONNX export into a GoMLX graph.
// Build with the nogomlx tag to leave the backend out.
package graph

import (
	"github.com/nvr-ai/go-depth/inference"
	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/nvr-ai/go-depth/models/hub"
	"github.com/pkg/errors"
)

// ErrNotBuilt is returned by New when the backend is compiled out.
var ErrNotBuilt = errors.New("GoMLX backend not built in")

// CPUEngine is the pure Go engine config, always registered.
const CPUEngine = "go"

// PreprocessorConfigFile holds normalization constants in the repository.
const PreprocessorConfigFile = "preprocessor_config.json"

// Options tune how New obtains its collaborators.
type Options struct {
	// Fetcher downloads cache misses; defaults to the hub with cfg.HFToken.
	Fetcher hub.Fetcher
	// Selector picks the device; defaults to the process-wide selector.
	Selector *device.Selector
	// Repo overrides hub.TransformerRepo.
	Repo string
}

// EngineConfig maps a device backend onto a GoMLX engine config.
// Backends without an accelerated engine run on the pure Go engine.
func EngineConfig(backend device.Backend) string {
	switch backend.Kind {
	case device.KindCUDA:
		return "xla:cuda"
	case device.KindROCm:
		return "xla:rocm"
	default:
		return CPUEngine
	}
}

// ModelFile is the repository file holding the export for a precision.
func ModelFile(precision inference.Precision) string {
	if precision == inference.PrecisionFP16 {
		return "onnx/model_fp16.onnx"
	}
	return "onnx/model.onnx"
}

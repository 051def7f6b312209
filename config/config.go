// Package config - Process configuration read from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment keys recognized by the depth module.
const (
	EnvInferenceBase  = "NEXT_PUBLIC_DEPTH_INFERENCE_BASE"
	EnvModelsRoot     = "DEPTH_MODELS_ROOT"
	EnvIntraOpThreads = "DEPTH_INTRA_OP_THREADS"
	EnvInterOpThreads = "DEPTH_INTER_OP_THREADS"
	EnvORTLibrary     = "ONNXRUNTIME_LIB"
	EnvLogLevel       = "DEPTH_LOG_LEVEL"
	EnvLogFile        = "DEPTH_LOG_FILE"
	EnvHFToken        = "HF_TOKEN"
)

const (
	// DefaultInferenceBase is the long-edge size used when none is configured.
	DefaultInferenceBase = 280
	// PatchSize is the spatial divisibility constraint of the depth transformer.
	PatchSize = 14
)

// Config holds everything the pipelines read from the process environment.
type Config struct {
	// InferenceBase is the long-edge target of preprocessing and the warmup size.
	InferenceBase int `json:"inference_base" yaml:"inference_base"`
	// Root is the installation root that models/ lives under.
	Root string `json:"root" yaml:"root"`
	// IntraOpThreads for ONNX Runtime sessions; 0 lets the runtime decide.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
	// InterOpThreads for ONNX Runtime sessions; 0 lets the runtime decide.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads"`
	// ORTLibrary overrides the ONNX Runtime shared library location.
	ORTLibrary string `json:"ort_library" yaml:"ort_library"`
	// LogLevel is a zap level name.
	LogLevel string `json:"log_level" yaml:"log_level"`
	// LogFile enables a rotating file sink when set.
	LogFile string `json:"log_file" yaml:"log_file"`
	// HFToken authenticates hub downloads; optional for public repos.
	HFToken string `json:"-" yaml:"-"`
}

// Load reads .env.local and .env (first one wins per key) and then the
// process environment.
//
// Returns:
//   - Config: The resolved configuration. Missing files are not an error.
func Load() Config {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() Config {
	base := ParseIntEnv(EnvInferenceBase, DefaultInferenceBase)
	if base < PatchSize {
		base = DefaultInferenceBase
	}

	return Config{
		InferenceBase:  base,
		Root:           GetEnvOrDefault(EnvModelsRoot, "."),
		IntraOpThreads: ParseIntEnv(EnvIntraOpThreads, 0),
		InterOpThreads: ParseIntEnv(EnvInterOpThreads, 0),
		ORTLibrary:     os.Getenv(EnvORTLibrary),
		LogLevel:       strings.ToLower(GetEnvOrDefault(EnvLogLevel, "info")),
		LogFile:        os.Getenv(EnvLogFile),
		HFToken:        os.Getenv(EnvHFToken),
	}
}

// HuggingFaceCacheDir is the cache for the transformer-format model.
func (c Config) HuggingFaceCacheDir() string {
	return filepath.Join(c.Root, "models", "huggingface")
}

// ONNXModelDir is the snapshot directory of the ONNX model repository.
func (c Config) ONNXModelDir() string {
	return filepath.Join(c.Root, "models", "onnx", "depth-anything-v2-small")
}

// WarmupSize is the square side of synthetic warmup inputs, floored to the
// patch size.
func (c Config) WarmupSize() int {
	return max((c.InferenceBase/PatchSize)*PatchSize, PatchSize)
}

// GetEnvOrDefault returns the value of an environment variable or a default value.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ParseIntEnv parses an environment variable as an integer.
// Returns the default value if the variable is not set or cannot be parsed.
func ParseIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

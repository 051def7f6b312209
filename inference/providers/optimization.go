// Package providers - ONNX Runtime session optimization settings.
package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// OptimizationConfig contains ONNX Runtime session settings.
type OptimizationConfig struct {
	// GraphOptimizationLevel controls the level of graph optimization.
	GraphOptimizationLevel ort.GraphOptimizationLevel `json:"graph_optimization_level"`

	// ExecutionMode controls sequential vs parallel execution.
	ExecutionMode ort.ExecutionMode `json:"execution_mode"`

	// EnableMemoryPattern enables memory pattern optimization.
	EnableMemoryPattern bool `json:"enable_memory_pattern"`

	// EnableCPUMemArena enables the CPU memory arena.
	EnableCPUMemArena bool `json:"enable_cpu_mem_arena"`

	// IntraOpNumThreads sets threads for parallelizing ops. 0 keeps the runtime default.
	IntraOpNumThreads int `json:"intra_op_num_threads"`

	// InterOpNumThreads sets threads for parallelizing independent ops. 0 keeps the runtime default.
	InterOpNumThreads int `json:"inter_op_num_threads"`
}

// DefaultOptimizationConfig enables every graph optimization and otherwise
// keeps the runtime defaults.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		GraphOptimizationLevel: ort.GraphOptimizationLevelEnableAll,
		ExecutionMode:          ort.ExecutionModeSequential,
		EnableMemoryPattern:    true,
		EnableCPUMemArena:      true,
	}
}

// ForBackend applies the provider-specific overrides.
//
// DirectML requires sequential execution with memory pattern reuse disabled.
//
// Arguments:
//   - backend: The primary provider of the session.
//
// Returns:
//   - OptimizationConfig: A copy with overrides applied.
func (c OptimizationConfig) ForBackend(backend ProviderBackend) OptimizationConfig {
	if backend == DirectMLProviderBackend {
		c.ExecutionMode = ort.ExecutionModeSequential
		c.EnableMemoryPattern = false
	}
	return c
}

// Apply writes the settings to native session options.
func (c OptimizationConfig) Apply(options *ort.SessionOptions) error {
	if c.IntraOpNumThreads > 0 {
		if err := options.SetIntraOpNumThreads(c.IntraOpNumThreads); err != nil {
			return fmt.Errorf("error setting intra-op threads: %w", err)
		}
	}
	if c.InterOpNumThreads > 0 {
		if err := options.SetInterOpNumThreads(c.InterOpNumThreads); err != nil {
			return fmt.Errorf("error setting inter-op threads: %w", err)
		}
	}
	if err := options.SetGraphOptimizationLevel(c.GraphOptimizationLevel); err != nil {
		return fmt.Errorf("error setting graph optimization level: %w", err)
	}
	if err := options.SetExecutionMode(c.ExecutionMode); err != nil {
		return fmt.Errorf("error setting execution mode: %w", err)
	}
	if err := options.SetMemPattern(c.EnableMemoryPattern); err != nil {
		return fmt.Errorf("error setting memory pattern: %w", err)
	}
	if err := options.SetCpuMemArena(c.EnableCPUMemArena); err != nil {
		return fmt.Errorf("error setting CPU memory arena: %w", err)
	}
	return nil
}

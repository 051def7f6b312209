// Package providers - Inference sessions.
package providers

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// InitializeEnvironment points ONNX Runtime at its shared library and
// initializes the native environment. Only the first call has an effect.
//
// Arguments:
//   - libPath: Path to the ONNX Runtime shared library.
//
// Returns:
//   - error: If the library is missing or the environment fails to start.
func InitializeEnvironment(libPath string) error {
	envOnce.Do(func() {
		if _, err := os.Stat(libPath); err != nil {
			envErr = fmt.Errorf("ONNX Runtime library not found at %s: %w", libPath, err)
			return
		}

		ort.SetEnvironmentLogLevel(ort.LoggingLevelWarning)
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = fmt.Errorf("error initializing ORT environment: %w", err)
		}
	})
	return envErr
}

// RuntimeAvailability asks the runtime which providers it can register by
// appending each one to scratch session options. The environment must be
// initialized.
func RuntimeAvailability() Availability {
	return func(backend ProviderBackend) bool {
		provider, err := NewProvider(backend)
		if err != nil {
			return false
		}

		options, err := ort.NewSessionOptions()
		if err != nil {
			return false
		}
		defer options.Destroy()

		return provider.Append(options) == nil
	}
}

// NewSessionOptions builds native session options for a plan.
//
// The provider-specific override of the primary provider is applied before
// providers are registered in plan order. The caller must Destroy the result.
//
// Arguments:
//   - plan: Ordered provider list.
//   - optimization: Base session settings.
//
// Returns:
//   - *ort.SessionOptions: Ready-to-use session options.
//   - error: If a setting or provider is rejected.
func NewSessionOptions(plan Plan, optimization OptimizationConfig) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}

	if err := optimization.ForBackend(plan.Primary).Apply(options); err != nil {
		options.Destroy()
		return nil, err
	}

	for _, backend := range plan.Providers {
		provider, err := NewProvider(backend)
		if err != nil {
			options.Destroy()
			return nil, err
		}
		if err := provider.Append(options); err != nil {
			options.Destroy()
			return nil, err
		}
	}

	return options, nil
}

// Session represents a model session from the onnxruntime.
type Session struct {
	// Session runs the model. Outputs passed as nil are allocated by the runtime.
	Session *ort.DynamicAdvancedSession
	// Input describes the single model input.
	Input ort.InputOutputInfo
	// Output describes the first model output.
	Output ort.InputOutputInfo
	// Plan is the provider list the session was built with.
	Plan Plan
}

// NewSessionArgs represents the arguments for creating a new session.
type NewSessionArgs struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// Plan is the provider list.
	Plan Plan
	// Optimization is the base session configuration.
	Optimization OptimizationConfig
}

// NewSession creates a dynamic session bound to the first input and output
// of the model.
//
// Arguments:
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The session.
//   - error: An error if the session creation fails.
func NewSession(args NewSessionArgs) (*Session, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(args.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading model inputs and outputs: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has %d inputs and %d outputs", args.ModelPath, len(inputs), len(outputs))
	}

	options, err := NewSessionOptions(args.Plan, args.Optimization)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		args.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &Session{
		Session: session,
		Input:   inputs[0],
		Output:  outputs[0],
		Plan:    args.Plan,
	}, nil
}

// Close releases the native session.
func (s *Session) Close() error {
	if s.Session != nil {
		err := s.Session.Destroy()
		s.Session = nil
		if err != nil {
			return fmt.Errorf("error destroying ORT session: %w", err)
		}
	}
	return nil
}

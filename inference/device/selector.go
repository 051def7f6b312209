package device

import (
	"sync"

	"go.uber.org/zap"
)

// Selector picks the best available backend once and remembers it.
type Selector struct {
	probes []Probe
	logger *zap.Logger

	once    sync.Once
	backend Backend
}

// NewSelector creates a selector over probes in priority order. CPU is
// implied as the last entry.
//
// Arguments:
//   - logger: Receives probe failures and the final choice.
//   - probes: Probes ordered from most to least preferred.
//
// Returns:
//   - *Selector: A selector that has not probed yet.
func NewSelector(logger *zap.Logger, probes ...Probe) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{probes: probes, logger: logger.Named("DEVICE")}
}

// Select returns the first present backend, or CPU.
//
// Probing runs on the first call only; later calls return the same value.
func (s *Selector) Select() Backend {
	s.once.Do(func() {
		s.backend = CPU()
		for _, probe := range s.probes {
			if b, ok := Detect(probe, s.logger); ok {
				s.backend = b
				break
			}
		}
		s.logger.Info("selected backend", zap.String("kind", string(s.backend.Kind)), zap.String("label", s.backend.Label))
	})
	return s.backend
}

var (
	defaultOnce     sync.Once
	defaultSelector *Selector
)

// Default returns the process-wide selector over DefaultProbes. The logger
// of the first caller is kept.
func Default(logger *zap.Logger) *Selector {
	defaultOnce.Do(func() {
		defaultSelector = NewSelector(logger, DefaultProbes()...)
	})
	return defaultSelector
}

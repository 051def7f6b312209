// Package engine - Selects and builds the depth estimator once at startup.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/depth"
	"github.com/nvr-ai/go-depth/depth/graph"
	"github.com/nvr-ai/go-depth/depth/onnx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Kind names an estimator implementation.
type Kind string

// Kind constants.
const (
	// KindAuto tries ONNX Runtime first and the graph backend second.
	KindAuto  Kind = "auto"
	KindONNX  Kind = "onnx"
	KindGraph Kind = "graph"
)

// ParseKind validates a kind name; the empty string means KindAuto.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindAuto, nil
	case KindAuto, KindONNX, KindGraph:
		return k, nil
	default:
		return "", fmt.Errorf("unknown estimator kind %q (want auto, onnx or graph)", s)
	}
}

// Factory constructs one estimator implementation.
type Factory func(ctx context.Context, cfg config.Config, logger *zap.Logger) (depth.Estimator, error)

// Builder helps build an estimator with a fluent API.
type Builder struct {
	cfg       config.Config
	logger    *zap.Logger
	kind      Kind
	graphOpts graph.Options
	factories map[Kind]Factory
	err       error
}

// NewBuilder creates a new estimator builder.
//
// Returns:
//   - *Builder: A builder with configuration from the environment.
func NewBuilder() *Builder {
	b := &Builder{
		cfg:    config.FromEnv(),
		logger: zap.NewNop(),
		kind:   KindAuto,
	}
	b.factories = map[Kind]Factory{
		KindONNX: func(ctx context.Context, cfg config.Config, logger *zap.Logger) (depth.Estimator, error) {
			return onnx.New(ctx, cfg, logger)
		},
		KindGraph: func(ctx context.Context, cfg config.Config, logger *zap.Logger) (depth.Estimator, error) {
			return graph.New(ctx, cfg, logger, b.graphOpts)
		},
	}
	return b
}

// WithConfig sets the process configuration.
func (b *Builder) WithConfig(cfg config.Config) *Builder {
	b.cfg = cfg
	return b
}

// WithLogger sets the parent logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithKind restricts the builder to one implementation.
//
// Arguments:
//   - kind: An estimator kind name, see ParseKind.
//
// Returns:
//   - *Builder: The builder.
func (b *Builder) WithKind(kind string) *Builder {
	if b.HasError() {
		return b
	}
	k, err := ParseKind(kind)
	if err != nil {
		b.err = err
		return b
	}
	b.kind = k
	return b
}

// WithGraphOptions sets collaborators of the graph backend.
func (b *Builder) WithGraphOptions(opts graph.Options) *Builder {
	b.graphOpts = opts
	return b
}

// withFactory replaces an implementation.
func (b *Builder) withFactory(kind Kind, f Factory) *Builder {
	b.factories[kind] = f
	return b
}

// HasError checks if the builder has errors.
func (b *Builder) HasError() bool {
	return b.err != nil
}

// Build constructs the estimator. Initialization is eager: on success the
// model is loaded and warmed.
//
// Arguments:
//   - ctx: Cancels downloads and warmup.
//
// Returns:
//   - depth.Estimator: The estimator.
//   - error: The failure of every attempted implementation.
func (b *Builder) Build(ctx context.Context) (depth.Estimator, error) {
	if b.HasError() {
		return nil, b.err
	}

	order := []Kind{b.kind}
	if b.kind == KindAuto {
		order = []Kind{KindONNX, KindGraph}
	}

	var failures []string
	for i, kind := range order {
		est, err := b.factories[kind](ctx, b.cfg, b.logger)
		if err == nil {
			b.logger.Info("depth estimator ready", zap.String("kind", string(kind)), zap.String("backend", est.Backend().Label))
			return est, nil
		}
		if ctx.Err() != nil {
			return nil, errors.Wrapf(err, "building %s estimator", kind)
		}
		failures = append(failures, fmt.Sprintf("%s: %v", kind, err))
		if i+1 < len(order) {
			b.logger.Warn("estimator unavailable, trying next", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	return nil, errors.Errorf("no depth estimator could be built:\n%s", strings.Join(failures, "\n"))
}

// MustBuild builds the estimator and panics if there is an error.
func (b *Builder) MustBuild(ctx context.Context) depth.Estimator {
	est, err := b.Build(ctx)
	if err != nil {
		panic(err)
	}
	return est
}

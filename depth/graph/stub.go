//go:build nogomlx

package graph

import (
	"context"

	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/depth"
	"go.uber.org/zap"
)

// Available reports whether the backend is compiled in.
func Available() bool {
	return false
}

// New always fails with ErrNotBuilt.
func New(context.Context, config.Config, *zap.Logger, Options) (*depth.Pipeline, error) {
	return nil, ErrNotBuilt
}

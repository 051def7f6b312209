//go:build nogomlx

package graph

import (
	"context"
	"testing"

	"github.com/nvr-ai/go-depth/config"
	"github.com/stretchr/testify/assert"
)

func TestStub(t *testing.T) {
	assert.False(t, Available(), "backend is compiled out")
	_, err := New(context.Background(), config.Config{}, nil, Options{})
	assert.ErrorIs(t, err, ErrNotBuilt)
}

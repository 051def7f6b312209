//go:build !nogomlx

package graph

import (
	"context"
	"testing"

	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingFetcher struct {
	calls int
}

func (f *failingFetcher) Download(context.Context, string, string, ...string) ([]string, error) {
	f.calls++
	return nil, errors.New("network unreachable")
}

func (f *failingFetcher) List(context.Context, string) ([]string, error) {
	return nil, errors.New("network unreachable")
}

func TestFlatten(t *testing.T) {
	got, err := flatten([][][]float32{{{1, 2}, {3, 4}}})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, got, "row-major order")

	got, err = flatten([][]float32{{5}, {6}})
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 6}, got)

	_, err = flatten([][]int64{{1}})
	assert.Error(t, err, "non-float outputs are rejected")
}

func TestNewEngineCPU(t *testing.T) {
	engine, backend, err := newEngine(device.CPU(), zap.NewNop())
	require.NoError(t, err, "pure Go engine is always available")
	defer engine.Finalize()
	assert.Equal(t, device.CPU(), backend)

	engine2, backend, err := newEngine(device.Metal(), zap.NewNop())
	require.NoError(t, err)
	defer engine2.Finalize()
	assert.Equal(t, device.KindCPU, backend.Kind, "backends without an engine are demoted to CPU")
}

func TestNewFailsWhenModelUnobtainable(t *testing.T) {
	fetcher := &failingFetcher{}
	cfg := config.Config{Root: t.TempDir(), InferenceBase: 280}

	est, err := New(context.Background(), cfg, zap.NewNop(), Options{
		Fetcher:  fetcher,
		Selector: device.NewSelector(zap.NewNop()),
	})
	assert.Nil(t, est)
	assert.ErrorContains(t, err, "network unreachable", "combined cache and network failure is fatal")
	assert.Equal(t, 1, fetcher.calls, "network is tried after the cache misses")
}

func TestAvailable(t *testing.T) {
	assert.True(t, Available(), "backend is linked in by default")
}

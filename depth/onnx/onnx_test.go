package onnx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-depth/config"
	"github.com/nvr-ai/go-depth/models/preprocess"
	"github.com/nvr-ai/go-depth/profiler"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("onnx"), 0o644))
}

func TestResolveModelPriority(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "onnx", "model.onnx"))

	path, err := ResolveModel(dir)
	require.NoError(t, err)
	assert.Equal(t, "model.onnx", filepath.Base(path), "full precision model is the fallback")

	touch(t, filepath.Join(dir, "onnx", "model_fp16.onnx"))
	path, err = ResolveModel(dir)
	require.NoError(t, err)
	assert.Equal(t, "model_fp16.onnx", filepath.Base(path), "half precision model is preferred")
}

func TestResolveModelMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "onnx", "model.onnx"), 0o755), "a directory is not a model")

	_, err := ResolveModel(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotFound), "missing model matches the sentinel")
	assert.Contains(t, err.Error(), filepath.Join(dir, "onnx"), "message names the searched directory")
	assert.Contains(t, err.Error(), "Run: go run ./cmd/download-models", "message names the remedy")
}

func TestNewFailsWithoutModel(t *testing.T) {
	cfg := config.Config{Root: t.TempDir(), InferenceBase: 280}

	est, err := New(context.Background(), cfg, zap.NewNop())
	assert.Nil(t, est, "no estimator without a model")
	var missing *MissingModelError
	require.ErrorAs(t, err, &missing, "initialization fails before the runtime is loaded")
	assert.Equal(t, filepath.Join(cfg.ONNXModelDir(), "onnx"), missing.Dir)
}

func TestFloat16RoundTrip(t *testing.T) {
	values := []float32{0, 1, -2.5, 0.199951171875, 65504}
	raw := encodeFloat16(values)
	require.Len(t, raw, 2*len(values), "two bytes per value")
	assert.Equal(t, []byte{0x00, 0x3c}, raw[2:4], "1.0 is 0x3c00 little-endian")
	assert.Equal(t, values, decodeFloat16(raw), "values exactly representable in half precision survive")
}

type countingRunner struct {
	shapes []tensor.Shape
	err    error
}

func (c *countingRunner) Run(input *tensor.Dense, _ *profiler.Frame) (*tensor.Dense, error) {
	c.shapes = append(c.shapes, input.Shape().Clone())
	return input, c.err
}

func TestWarmup(t *testing.T) {
	runner := &countingRunner{}
	require.NoError(t, Warmup(context.Background(), runner, 280, WarmupRuns))

	require.Len(t, runner.shapes, 3, "exactly three warmup runs")
	for _, s := range runner.shapes {
		assert.Equal(t, tensor.Shape{1, 3, 280, 280}, s, "warmup input is a square NCHW frame")
	}
}

func TestWarmupStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &countingRunner{}
	assert.ErrorIs(t, Warmup(ctx, runner, 14, WarmupRuns), context.Canceled)
	assert.Empty(t, runner.shapes, "cancelled warmup runs nothing")

	runner = &countingRunner{err: errors.New("kernel compile failed")}
	assert.ErrorContains(t, Warmup(context.Background(), runner, 14, WarmupRuns), "warmup run 1")
	assert.Len(t, runner.shapes, 1, "warmup stops at the first failure")
}

func TestProcessorConfig(t *testing.T) {
	cfg := config.Config{Root: t.TempDir(), InferenceBase: 518}
	assert.Equal(t, preprocess.DefaultConfig(518), processorConfig(cfg, zap.NewNop()), "defaults without a file")

	path := filepath.Join(cfg.ONNXModelDir(), "preprocessor_config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"image_mean":[0.5,0.5,0.5],"image_std":[0.5,0.5,0.5]}`), 0o644))

	pc := processorConfig(cfg, zap.NewNop())
	assert.Equal(t, [3]float32{0.5, 0.5, 0.5}, pc.Mean, "file statistics win")
	assert.Equal(t, 518, pc.TargetSize, "target comes from configuration")

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	assert.Equal(t, preprocess.DefaultConfig(518), processorConfig(cfg, zap.NewNop()), "broken file falls back")
}

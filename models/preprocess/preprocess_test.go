package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestPreprocessShape(t *testing.T) {
	p := NewPreprocessor(DefaultConfig(280))

	out, err := p.Preprocess(solidImage(640, 480, color.RGBA{R: 128, G: 128, B: 128, A: 255}))
	require.NoError(t, err, "preprocessing a valid frame should succeed")

	assert.Equal(t, []int{1, 3, 210, 280}, []int(out.Shape()), "tensor should be batched channel-first")
	assert.Len(t, out.Data().([]float32), 3*210*280, "tensor data size should match shape")
}

func TestPreprocessImageNetNormalization(t *testing.T) {
	p := NewPreprocessor(DefaultConfig(28))

	out, err := p.Preprocess(solidImage(28, 28, color.RGBA{R: 255, G: 0, B: 255, A: 255}))
	require.NoError(t, err)

	data := out.Data().([]float32)
	plane := 28 * 28
	assert.InDelta(t, (1-0.485)/0.229, data[0], 1e-4, "red plane should be normalized with ImageNet stats")
	assert.InDelta(t, (0-0.456)/0.224, data[plane], 1e-4, "green plane should be normalized with ImageNet stats")
	assert.InDelta(t, (1-0.406)/0.225, data[2*plane+plane-1], 1e-4, "blue plane should be normalized with ImageNet stats")
}

func TestPreprocessYCbCr(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidImage(56, 42, color.RGBA{R: 200, G: 200, B: 200, A: 255}), &jpeg.Options{Quality: 95}))
	img, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	_, isYCbCr := img.(*image.YCbCr)
	require.True(t, isYCbCr, "jpeg should decode to YCbCr")

	out, err := NewPreprocessor(DefaultConfig(56)).Preprocess(img)
	require.NoError(t, err)

	want := (200.0/255 - 0.485) / 0.229
	assert.InDelta(t, want, out.Data().([]float32)[0], 0.05, "YCbCr fast path should yield RGB values")
}

func TestPreprocessSubImage(t *testing.T) {
	full := solidImage(64, 64, color.RGBA{A: 255})
	for y := 32; y < 64; y++ {
		for x := 32; x < 64; x++ {
			full.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	sub := full.SubImage(image.Rect(32, 32, 60, 60))

	out, err := NewPreprocessor(DefaultConfig(28)).Preprocess(sub)
	require.NoError(t, err)
	assert.InDelta(t, (1-0.485)/0.229, out.Data().([]float32)[0], 1e-4, "sub-image origin should be honored")
}

func TestPreprocessEmpty(t *testing.T) {
	_, err := NewPreprocessor(DefaultConfig(280)).Preprocess(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err, "empty images are rejected")
}

func TestNewPreprocessorDefaults(t *testing.T) {
	cfg := NewPreprocessor(Config{}).Config()

	assert.Equal(t, DefaultPatchSize, cfg.PatchSize)
	assert.Equal(t, DefaultPatchSize, cfg.TargetSize, "target is at least one patch")
	assert.Equal(t, ImageNetStd, cfg.Std)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preprocessor_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"do_normalize": true,
		"ensure_multiple_of": 14,
		"image_mean": [0.5, 0.5, 0.5],
		"image_std": [0.25, 0.25, 0.25],
		"size": {"height": 518, "width": 518}
	}`), 0o644))

	cfg, err := LoadConfig(path, 280)
	require.NoError(t, err, "valid config should load")
	assert.Equal(t, 280, cfg.TargetSize, "the configured target overrides the hub size")
	assert.Equal(t, [3]float32{0.5, 0.5, 0.5}, cfg.Mean)
	assert.Equal(t, [3]float32{0.25, 0.25, 0.25}, cfg.Std)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"), 280)
	assert.Error(t, err, "missing file is an error")

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	cfg, err = LoadConfig(path, 280)
	assert.Error(t, err, "malformed file is an error")
	assert.Equal(t, ImageNetMean, cfg.Mean, "defaults survive a parse failure")
}

package images

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	assert.Equal(t, FormatJPEG, Sniff(getTestJPEG(t, 8, 8)))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, getTestImage(8, 8)))
	assert.Equal(t, FormatPNG, Sniff(buf.Bytes()))

	assert.Equal(t, FormatUnknown, Sniff([]byte("not an image")))
	assert.Equal(t, FormatUnknown, Sniff(nil))
}

func TestStdDecoder(t *testing.T) {
	img, err := StdDecoder{}.Decode(getTestJPEG(t, 64, 48))
	require.NoError(t, err, "valid JPEG should decode")
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	r, _, _, _ := img.At(10, 10).RGBA()
	assert.Greater(t, r>>8, uint32(200), "red channel should survive decoding")

	_, err = StdDecoder{}.Decode([]byte("garbage"))
	assert.ErrorIs(t, err, ErrNotJPEG, "non-JPEG payload")

	_, err = StdDecoder{}.Decode([]byte{0xFF, 0xD8, 0xFF, 0x00})
	assert.Error(t, err, "truncated JPEG should fail")
}

func TestNewDecoder(t *testing.T) {
	assert.NotEmpty(t, NewDecoder().Name(), "a decoder is always available")
}

func TestSwapRB(t *testing.T) {
	bgr := []uint8{1, 2, 3, 10, 20, 30}
	SwapRB(bgr, 3)
	assert.Equal(t, []uint8{3, 2, 1, 30, 20, 10}, bgr, "BGR should become RGB")

	SwapRB(bgr, 3)
	assert.Equal(t, []uint8{1, 2, 3, 10, 20, 30}, bgr, "swapping twice is the identity")
}

func TestFromPackedRGB(t *testing.T) {
	img := FromPackedRGB([]uint8{255, 0, 0, 0, 255, 0}, 2, 1)

	assert.Equal(t, []uint8{255, 0, 0, 255, 0, 255, 0, 255}, img.Pix, "pixels should be widened to RGBA")
}

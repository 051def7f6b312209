// Package images - Decoding and resizing of frames ahead of inference.
package images

import "image"

// FromPackedRGB wraps a packed 3-channel RGB buffer as an *image.RGBA.
//
// Arguments:
//   - pix: Row-major RGB bytes, len(pix) == width*height*3.
//   - width: Image width in pixels.
//   - height: Image height in pixels.
//
// Returns:
//   - *image.RGBA: An opaque image with the same pixels.
func FromPackedRGB(pix []uint8, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := width * height
	for i, j := 0, 0; i < n; i, j = i+1, j+3 {
		o := i * 4
		img.Pix[o] = pix[j]
		img.Pix[o+1] = pix[j+1]
		img.Pix[o+2] = pix[j+2]
		img.Pix[o+3] = 0xFF
	}
	return img
}

// SwapRB exchanges the first and third channel of every pixel in place.
// It turns BGR into RGB and back.
func SwapRB(pix []uint8, channels int) {
	for i := 0; i+2 < len(pix); i += channels {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

package images

import (
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// PatchAlignedSize computes the working size of a frame.
//
// The longer side is scaled to target, and each side is floored to a
// multiple of patch with a minimum of one patch.
//
// Arguments:
//   - width: Source width.
//   - height: Source height.
//   - target: Long-edge size.
//   - patch: Divisibility constraint of the model.
//
// Returns:
//   - int: Output width.
//   - int: Output height.
//
// @example
// w, h := PatchAlignedSize(640, 480, 280, 14) // 280, 210
func PatchAlignedSize(width, height, target, patch int) (int, int) {
	longest := max(width, height)
	if longest <= 0 {
		return patch, patch
	}
	scale := float64(target) / float64(longest)
	w := int(float64(width)*scale) / patch * patch
	h := int(float64(height)*scale) / patch * patch
	return max(w, patch), max(h, patch)
}

// Resize scales img to exactly width x height with a bilinear filter.
func Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

// Upscale scales a depth map to width x height for previewing.
func Upscale(src *image.Gray, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

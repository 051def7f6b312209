package depth

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// MinMax rescales values into dst so the frame minimum maps to 0 and the
// maximum to 255. A flat frame (max == min) yields zeros.
//
// Arguments:
//   - values: Raw model output.
//   - dst: Destination of the same length.
func MinMax(values []float32, dst []uint8) {
	lo, hi := math32.Inf(1), math32.Inf(-1)
	for _, v := range values {
		lo = math32.Min(lo, v)
		hi = math32.Max(hi, v)
	}

	// The span of finite float32 values can exceed float32 range.
	base := float64(lo)
	span := float64(hi) - base
	if !(span > 0) || math.IsInf(span, 0) {
		clear(dst)
		return
	}

	for i, v := range values {
		dst[i] = uint8((float64(v) - base) / span * 255)
	}
}

// Squeeze drops every singleton dimension of a depth prediction and
// returns its height and width.
//
// Arguments:
//   - t: A prediction such as (1, H, W) or (1, 1, H, W).
//
// Returns:
//   - int: Height.
//   - int: Width.
//   - error: If more or fewer than two non-singleton dimensions remain.
func Squeeze(t *tensor.Dense) (int, int, error) {
	var dims []int
	for _, d := range t.Shape() {
		if d != 1 {
			dims = append(dims, d)
		}
	}
	if len(dims) != 2 {
		return 0, 0, errors.Errorf("depth prediction has shape %v, want a single 2-D map", t.Shape())
	}
	if err := t.Reshape(dims...); err != nil {
		return 0, 0, errors.Wrap(err, "squeezing depth prediction")
	}
	return dims[0], dims[1], nil
}

// Package depth - Monocular depth estimation over encoded video frames.
//
// An Estimator takes JPEG bytes and returns a packed depth map: a 4-byte
// header holding width and height as big-endian uint16, followed by
// width*height intensity bytes in row-major order. The header dimensions are
// the model's working resolution, not the input resolution.
package depth

import (
	"encoding/binary"
	"math"

	"github.com/nvr-ai/go-depth/inference/device"
	"github.com/pkg/errors"
)

// HeaderSize is the length of the width/height prefix.
const HeaderSize = 4

// Estimator turns encoded frames into packed depth maps.
//
// Calls must not overlap on one instance.
type Estimator interface {
	// Estimate runs the whole pipeline on one JPEG frame.
	Estimate(frame []byte) ([]byte, error)
	// Backend reports the compute target in use.
	Backend() device.Backend
	// Close releases native resources.
	Close() error
}

// ErrBadResult marks a buffer that does not follow the packed layout.
var ErrBadResult = errors.New("malformed depth result")

// Pack prepends the header to row-major depth bytes.
//
// Arguments:
//   - width: Depth map width.
//   - height: Depth map height.
//   - values: width*height bytes.
//
// Returns:
//   - []byte: The packed result.
//   - error: If the dimensions do not fit the header or the payload.
func Pack(width, height int, values []uint8) ([]byte, error) {
	if width <= 0 || height <= 0 || width > math.MaxUint16 || height > math.MaxUint16 {
		return nil, errors.Errorf("depth map size %dx%d does not fit the header", width, height)
	}
	if len(values) != width*height {
		return nil, errors.Errorf("depth map has %d values, want %d", len(values), width*height)
	}

	out := make([]byte, HeaderSize+len(values))
	binary.BigEndian.PutUint16(out[0:2], uint16(width))
	binary.BigEndian.PutUint16(out[2:4], uint16(height))
	copy(out[HeaderSize:], values)
	return out, nil
}

// Unpack splits a packed result into its dimensions and payload. The
// payload aliases buf.
func Unpack(buf []byte) (width, height int, values []uint8, err error) {
	if len(buf) < HeaderSize {
		return 0, 0, nil, errors.Wrapf(ErrBadResult, "%d bytes is shorter than the header", len(buf))
	}
	width = int(binary.BigEndian.Uint16(buf[0:2]))
	height = int(binary.BigEndian.Uint16(buf[2:4]))
	if len(buf) != HeaderSize+width*height {
		return 0, 0, nil, errors.Wrapf(ErrBadResult, "%d bytes for a %dx%d map", len(buf), width, height)
	}
	return width, height, buf[HeaderSize:], nil
}

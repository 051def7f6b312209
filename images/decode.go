package images

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/pkg/errors"
)

// ErrNotJPEG is returned for payloads that do not carry a JPEG signature.
var ErrNotJPEG = errors.New("payload is not a JPEG image")

// Decoder turns encoded frame bytes into an RGB image.
type Decoder interface {
	// Name identifies the decoder in logs.
	Name() string
	// Decode returns an image whose color model is RGB.
	Decode(data []byte) (image.Image, error)
}

// NewDecoder returns the fast decoder when it is compiled in, else the
// standard library decoder.
func NewDecoder() Decoder {
	if d, ok := fastDecoder(); ok {
		return d
	}
	return StdDecoder{}
}

// StdDecoder decodes with image/jpeg. The YCbCr result is handed to the
// resizer as is.
type StdDecoder struct{}

// Name implements Decoder.
func (StdDecoder) Name() string {
	return "image/jpeg"
}

// Decode implements Decoder.
func (StdDecoder) Decode(data []byte) (image.Image, error) {
	if Sniff(data) != FormatJPEG {
		return nil, ErrNotJPEG
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decoding jpeg")
	}
	return img, nil
}

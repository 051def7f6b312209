//go:build gocv

package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// GoCVDecoder decodes with OpenCV. OpenCV yields BGR, which is flipped to RGB.
type GoCVDecoder struct{}

func fastDecoder() (Decoder, bool) {
	return GoCVDecoder{}, true
}

// Name implements Decoder.
func (GoCVDecoder) Name() string {
	return "gocv"
}

// Decode implements Decoder.
func (GoCVDecoder) Decode(data []byte) (image.Image, error) {
	if Sniff(data) != FormatJPEG {
		return nil, ErrNotJPEG
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, errors.Wrap(err, "decoding jpeg with gocv")
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, errors.New("gocv decoded an empty frame")
	}

	pix := mat.ToBytes()
	SwapRB(pix, mat.Channels())
	return FromPackedRGB(pix, mat.Cols(), mat.Rows()), nil
}

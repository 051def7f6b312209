//go:build !gocv

package images

func fastDecoder() (Decoder, bool) {
	return nil, false
}

package onnx

import (
	"encoding/binary"

	"github.com/x448/float16"
)

// encodeFloat16 packs float32 values as little-endian IEEE half floats.
func encodeFloat16(values []float32) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], float16.Fromfloat32(v).Bits())
	}
	return out
}

// decodeFloat16 widens little-endian half floats to float32.
func decodeFloat16(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		out[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[2*i:])).Float32()
	}
	return out
}

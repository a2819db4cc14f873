// Package wav renders normalized samples into canonical PCM WAV bytes.
//
// The output format is fixed: RIFF/WAVE with a single fmt chunk followed by a
// single data chunk, mono, 16-bit little-endian PCM. Encoding is a pure
// function of its inputs, so the same samples always produce the same bytes.
package wav

import (
	"encoding/binary"
	"math"
)

// HeaderSize is the byte length of the canonical header. An encode of zero
// samples produces exactly this many bytes.
const HeaderSize = 44

// Encode renders samples into a complete WAV byte sequence at the given
// sample rate. Samples are clamped to [-1, 1] and quantized to int16.
func Encode(samples []float32, sampleRate uint32) []byte {
	dataSize := uint32(len(samples) * 2)
	out := make([]byte, HeaderSize+int(dataSize))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], 36+dataSize)
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(out[24:28], sampleRate)
	binary.LittleEndian.PutUint32(out[28:32], sampleRate*2) // byte rate
	binary.LittleEndian.PutUint16(out[32:34], 2)            // block align
	binary.LittleEndian.PutUint16(out[34:36], 16)           // bits per sample

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], dataSize)

	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[HeaderSize+2*i:], uint16(quantize(s)))
	}
	return out
}

// quantize maps a normalized sample to int16 full scale. Values outside
// [-1, 1] clamp to the range bounds; ties round away from zero. NaN samples
// encode as silence.
func quantize(x float32) int16 {
	if x != x {
		return 0
	}
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	v := math.Round(float64(x) * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

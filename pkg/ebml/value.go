package ebml

import (
	"encoding/binary"
	"math"
)

// UintWidth returns the number of bytes needed for value in big-endian form,
// at least one.
func UintWidth(value uint64) int {
	width := 1
	for value > 0xFF {
		value >>= 8
		width++
	}
	return width
}

// IntWidth returns the number of bytes needed for value in two's complement.
func IntWidth(value int64) int {
	width := 1
	for width < 8 {
		limit := int64(1) << (8*uint(width) - 1)
		if value >= -limit && value < limit {
			break
		}
		width++
	}
	return width
}

// PutUint encodes value big-endian into exactly width bytes, dropping high
// bytes that do not fit.
func PutUint(value uint64, width int) []byte {
	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(value)
		value >>= 8
	}
	return b
}

func PutInt(value int64, width int) []byte {
	return PutUint(uint64(value), width)
}

func PutFloat64(value float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(value))
	return b
}

func PutFloat32(value float32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, math.Float32bits(value))
	return b
}

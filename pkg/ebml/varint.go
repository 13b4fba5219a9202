package ebml

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidVarInt = errors.New("invalid EBML variable-length integer")
	ErrValueTooWide  = errors.New("value does not fit in the requested width")
)

// MaxWidth is the widest variable-length integer EBML allows.
const MaxWidth = 8

// unknownValue reports whether a decoded value has all of its value bits set,
// which EBML reserves for "unknown size".
func unknownValue(value uint64, width int) bool {
	return value == (uint64(1)<<(7*uint(width)))-1
}

// widthOf returns the total byte width announced by the position of the
// first set bit of the leading byte.
func widthOf(first byte) int {
	for i := 7; i >= 0; i-- {
		if first&(1<<uint(i)) != 0 {
			return 8 - i
		}
	}
	return 0
}

// ReadValue decodes an unsigned variable-length integer, masking the width
// marker. It returns the value and the number of bytes consumed.
func ReadValue(r io.Reader) (uint64, int, error) {
	var buf [MaxWidth]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, 0, err
	}

	width := widthOf(buf[0])
	if width == 0 {
		return 0, 1, ErrInvalidVarInt
	}

	if width > 1 {
		if _, err := io.ReadFull(r, buf[1:width]); err != nil {
			return 0, 1, fmt.Errorf("truncated variable-length integer: %w", unexpected(err))
		}
	}

	value, _, err := DecodeValue(buf[:width])
	return value, width, err
}

// ReadSignedValue decodes a signed variable-length integer as used by EBML
// lacing: the unsigned value biased by 2^(7*width-1)-1.
func ReadSignedValue(r io.Reader) (int64, int, error) {
	value, width, err := ReadValue(r)
	if err != nil {
		return 0, width, err
	}
	return unbias(value, width), width, nil
}

// ReadTag decodes an element id. Unlike sizes, ids keep their width marker.
func ReadTag(r io.Reader) (uint32, int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, 0, err
	}

	width := widthOf(buf[0])
	if width == 0 || width > 4 {
		return 0, 1, ErrInvalidVarInt
	}

	if width > 1 {
		if _, err := io.ReadFull(r, buf[1:width]); err != nil {
			return 0, 1, fmt.Errorf("truncated element id: %w", unexpected(err))
		}
	}

	var id uint32
	for _, b := range buf[:width] {
		id = id<<8 | uint32(b)
	}
	return id, width, nil
}

// DecodeValue is the in-memory counterpart of ReadValue.
func DecodeValue(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, io.ErrUnexpectedEOF
	}

	width := widthOf(b[0])
	if width == 0 {
		return 0, 0, ErrInvalidVarInt
	}
	if len(b) < width {
		return 0, 0, io.ErrUnexpectedEOF
	}

	value := uint64(b[0]) & (0xFF >> uint(width))
	for _, c := range b[1:width] {
		value = value<<8 | uint64(c)
	}
	return value, width, nil
}

// DecodeSignedValue is the in-memory counterpart of ReadSignedValue.
func DecodeSignedValue(b []byte) (int64, int, error) {
	value, width, err := DecodeValue(b)
	if err != nil {
		return 0, 0, err
	}
	return unbias(value, width), width, nil
}

func unbias(value uint64, width int) int64 {
	bias := int64(1)<<(7*uint(width)-1) - 1
	return int64(value) - bias
}

// ValueWidth returns the smallest width able to hold value without colliding
// with the reserved all-ones pattern.
func ValueWidth(value uint64) int {
	for width := 1; width < MaxWidth; width++ {
		if value < (uint64(1)<<(7*uint(width)))-1 {
			return width
		}
	}
	return MaxWidth
}

// EncodeValue encodes value as a variable-length integer. A width of zero
// selects the minimal width.
func EncodeValue(value uint64, width int) ([]byte, error) {
	if width == 0 {
		width = ValueWidth(value)
	}
	if width < 1 || width > MaxWidth {
		return nil, fmt.Errorf("width %d: %w", width, ErrValueTooWide)
	}
	if value >= (uint64(1)<<(7*uint(width)))-1 {
		return nil, fmt.Errorf("%d in %d bytes: %w", value, width, ErrValueTooWide)
	}

	b := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		b[i] = byte(value)
		value >>= 8
	}
	b[0] |= 0x80 >> uint(width-1)
	return b, nil
}

// EncodeSignedValue encodes a lacing delta. A width of zero selects the
// minimal width.
func EncodeSignedValue(value int64, width int) ([]byte, error) {
	if width == 0 {
		width = 1
		for width < MaxWidth {
			limit := int64(1)<<(7*uint(width)-1) - 1
			if value >= -limit && value <= limit {
				break
			}
			width++
		}
	}
	if width < 1 || width > MaxWidth {
		return nil, fmt.Errorf("width %d: %w", width, ErrValueTooWide)
	}

	bias := int64(1)<<(7*uint(width)-1) - 1
	biased := value + bias
	if biased < 0 {
		return nil, fmt.Errorf("%d in %d bytes: %w", value, width, ErrValueTooWide)
	}
	return EncodeValue(uint64(biased), width)
}

// WriteTag writes an element id verbatim, marker bits included.
func WriteTag(w io.Writer, id uint32) (int, error) {
	switch {
	case id > 0xFFFFFF:
		return w.Write([]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)})
	case id > 0xFFFF:
		return w.Write([]byte{byte(id >> 16), byte(id >> 8), byte(id)})
	case id > 0xFF:
		return w.Write([]byte{byte(id >> 8), byte(id)})
	default:
		return w.Write([]byte{byte(id)})
	}
}

// TagWidth returns the number of bytes WriteTag emits for id.
func TagWidth(id uint32) int {
	switch {
	case id > 0xFFFFFF:
		return 4
	case id > 0xFFFF:
		return 3
	case id > 0xFF:
		return 2
	default:
		return 1
	}
}

// Write emits value as a variable-length integer, minimal when width is 0.
func Write(w io.Writer, value uint64, width int) (int, error) {
	b, err := EncodeValue(value, width)
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

// Prepare reserves width placeholder bytes for a length field that is
// filled in later with Fill.
func Prepare(w io.Writer, width int) (int, error) {
	if width < 1 || width > MaxWidth {
		return 0, fmt.Errorf("width %d: %w", width, ErrValueTooWide)
	}
	return w.Write(make([]byte, width))
}

// Fill writes the final value of a field reserved by Prepare. The caller
// positions w at the reserved bytes.
func Fill(w io.Writer, value uint64, width int) error {
	if width < 1 {
		return fmt.Errorf("width %d: %w", width, ErrValueTooWide)
	}
	_, err := Write(w, value, width)
	return err
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

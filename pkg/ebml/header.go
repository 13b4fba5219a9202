package ebml

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// UnknownSize is the declared size of an element whose length field has all
// value bits set.
const UnknownSize int64 = -1

var ErrInvalidLeaf = errors.New("invalid EBML leaf value")

// Header is the decoded id and length of one element, together with the
// absolute stream offsets needed to revisit it.
type Header struct {
	ID         uint32
	Size       int64
	Offset     int64
	DataOffset int64
}

// ReadHeader decodes the element header at the current position of r.
func ReadHeader(r io.ReadSeeker) (*Header, error) {
	offset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	id, idWidth, err := ReadTag(r)
	if err != nil {
		return nil, err
	}

	size, sizeWidth, err := ReadValue(r)
	if err != nil {
		return nil, fmt.Errorf("element %#x at %d: %w", id, offset, unexpected(err))
	}

	h := &Header{
		ID:         id,
		Size:       int64(size),
		Offset:     offset,
		DataOffset: offset + int64(idWidth+sizeWidth),
	}
	if unknownValue(size, sizeWidth) {
		h.Size = UnknownSize
	}
	return h, nil
}

func (h *Header) Unknown() bool {
	return h.Size == UnknownSize
}

// End returns the offset one past the payload. It is only meaningful for
// elements of known size.
func (h *Header) End() int64 {
	return h.DataOffset + h.Size
}

// SeekHeader moves r back to the first byte of the element id.
func (h *Header) SeekHeader(r io.Seeker) error {
	_, err := r.Seek(h.Offset, io.SeekStart)
	return err
}

// SeekData moves r to the first byte of the payload.
func (h *Header) SeekData(r io.Seeker) error {
	_, err := r.Seek(h.DataOffset, io.SeekStart)
	return err
}

// ReadBytes reads the whole payload.
func (h *Header) ReadBytes(r io.ReadSeeker) ([]byte, error) {
	if h.Size < 0 || h.Size > math.MaxInt32 {
		return nil, fmt.Errorf("element %#x payload of %d bytes: %w", h.ID, h.Size, ErrInvalidLeaf)
	}
	if err := h.SeekData(r); err != nil {
		return nil, err
	}
	data := make([]byte, h.Size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, unexpected(err)
	}
	return data, nil
}

func (h *Header) ReadUint(r io.ReadSeeker) (uint64, error) {
	if h.Size > 8 {
		return 0, fmt.Errorf("unsigned integer %#x of %d bytes: %w", h.ID, h.Size, ErrInvalidLeaf)
	}
	data, err := h.ReadBytes(r)
	if err != nil {
		return 0, err
	}
	return Uint(data), nil
}

func (h *Header) ReadInt(r io.ReadSeeker) (int64, error) {
	if h.Size > 8 {
		return 0, fmt.Errorf("signed integer %#x of %d bytes: %w", h.ID, h.Size, ErrInvalidLeaf)
	}
	data, err := h.ReadBytes(r)
	if err != nil {
		return 0, err
	}
	return Int(data), nil
}

func (h *Header) ReadFloat(r io.ReadSeeker) (float64, error) {
	data, err := h.ReadBytes(r)
	if err != nil {
		return 0, err
	}
	return Float(data)
}

// ReadUTF8 reads a string payload, dropping trailing zero padding.
func (h *Header) ReadUTF8(r io.ReadSeeker) (string, error) {
	data, err := h.ReadBytes(r)
	if err != nil {
		return "", err
	}
	for len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	return string(data), nil
}

// Uint decodes a big-endian unsigned integer of up to 8 bytes.
func Uint(data []byte) uint64 {
	var value uint64
	for _, b := range data {
		value = value<<8 | uint64(b)
	}
	return value
}

// Int decodes a big-endian two's complement integer of up to 8 bytes.
func Int(data []byte) int64 {
	if len(data) == 0 {
		return 0
	}
	var value int64
	if data[0]&0x80 != 0 {
		value = -1
	}
	for _, b := range data {
		value = value<<8 | int64(b)
	}
	return value
}

// Float decodes a 0, 4 or 8 byte big-endian IEEE 754 value.
func Float(data []byte) (float64, error) {
	switch len(data) {
	case 0:
		return 0, nil
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(data))), nil
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	default:
		return 0, fmt.Errorf("float of %d bytes: %w", len(data), ErrInvalidLeaf)
	}
}

package matroska

import (
	"bytes"
	"errors"
	"io"

	"github.com/luispater/matroska-tree-go/pkg/ebml"
)

// seekBuffer is an in-memory io.WriteSeeker.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		b.data = append(b.data, make([]byte, end-int64(len(b.data)))...)
	}
	copy(b.data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += b.pos
	case io.SeekEnd:
		offset += int64(len(b.data))
	}
	if offset < 0 {
		return 0, errors.New("negative position")
	}
	b.pos = offset
	return offset, nil
}

func (b *seekBuffer) Bytes() []byte {
	return b.data
}

// countingReadSeeker counts the calls that reach the stream.
type countingReadSeeker struct {
	r     io.ReadSeeker
	reads int
	seeks int
}

func (c *countingReadSeeker) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

func (c *countingReadSeeker) Seek(offset int64, whence int) (int64, error) {
	c.seeks++
	return c.r.Seek(offset, whence)
}

func el(id uint32, parts ...[]byte) []byte {
	var payload []byte
	for _, p := range parts {
		payload = append(payload, p...)
	}
	var buf bytes.Buffer
	_, _ = ebml.WriteTag(&buf, id)
	_, _ = ebml.Write(&buf, uint64(len(payload)), 0)
	buf.Write(payload)
	return buf.Bytes()
}

func uintEl(id uint32, value uint64) []byte {
	return el(id, ebml.PutUint(value, ebml.UintWidth(value)))
}

func strEl(id uint32, value string) []byte {
	return el(id, []byte(value))
}

// unknownEl writes id with an all-ones 8-byte size.
func unknownEl(id uint32, parts ...[]byte) []byte {
	var buf bytes.Buffer
	_, _ = ebml.WriteTag(&buf, id)
	buf.Write([]byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	for _, p := range parts {
		buf.Write(p)
	}
	return buf.Bytes()
}

func trackEntry(number uint64, codec string) []byte {
	return el(TrackEntryID,
		uintEl(TrackNumberID, number),
		uintEl(TrackTypeID, TrackTypeAudio),
		strEl(CodecIDID, codec),
	)
}

package matroska

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/icza/bitio"

	"github.com/luispater/matroska-tree-go/pkg/ebml"
)

var (
	ErrLacing        = errors.New("inconsistent block lacing")
	ErrFrameTooLarge = errors.New("frame does not fit in a block")
)

// Lacing is the frame packing scheme of a block, as the masked flag bits.
type Lacing byte

const (
	LacingNone  Lacing = 0x00
	LacingXiph  Lacing = 0x02
	LacingFixed Lacing = 0x04
	LacingEBML  Lacing = 0x06
)

func (l Lacing) String() string {
	switch l {
	case LacingNone:
		return "none"
	case LacingXiph:
		return "xiph"
	case LacingFixed:
		return "fixed"
	case LacingEBML:
		return "ebml"
	}
	return fmt.Sprintf("Lacing(%#x)", byte(l))
}

// BlockFlags is the decoded flags byte of a (Simple)Block.
type BlockFlags struct {
	Keyframe    bool
	Invisible   bool
	Lacing      Lacing
	Discardable bool
}

// ParseBlockFlags decodes, from the most significant bit: keyframe, three
// reserved bits, invisible, two lacing bits and discardable.
func ParseBlockFlags(b byte) (BlockFlags, error) {
	var f BlockFlags
	br := bitio.NewReader(bytes.NewReader([]byte{b}))

	var err error
	if f.Keyframe, err = br.ReadBool(); err != nil {
		return f, err
	}
	if _, err = br.ReadBits(3); err != nil {
		return f, err
	}
	if f.Invisible, err = br.ReadBool(); err != nil {
		return f, err
	}
	lacing, err := br.ReadBits(2)
	if err != nil {
		return f, err
	}
	f.Lacing = Lacing(lacing << 1)
	if f.Discardable, err = br.ReadBool(); err != nil {
		return f, err
	}
	return f, nil
}

// Byte encodes the flags back into their wire form.
func (f BlockFlags) Byte() (byte, error) {
	var buf bytes.Buffer
	bw := bitio.NewWriter(&buf)

	if err := bw.WriteBool(f.Keyframe); err != nil {
		return 0, err
	}
	if err := bw.WriteBits(0, 3); err != nil {
		return 0, err
	}
	if err := bw.WriteBool(f.Invisible); err != nil {
		return 0, err
	}
	if err := bw.WriteBits(uint64(f.Lacing>>1)&0x03, 2); err != nil {
		return 0, err
	}
	if err := bw.WriteBool(f.Discardable); err != nil {
		return 0, err
	}
	if err := bw.Close(); err != nil {
		return 0, err
	}
	return buf.Bytes()[0], nil
}

// Block is a view over one Block or SimpleBlock element: its header fields
// and the byte range of every laced frame.
type Block struct {
	BlockFlags

	Track     int64
	Timestamp int16

	r          io.ReadSeeker
	dataOffset int64
	frames     []int64
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// NewBlock decodes the header and lacing table of a Block or SimpleBlock
// element. Frame payloads are left in the stream.
func NewBlock(t *Tree) (*Block, error) {
	if err := t.SeekData(t.r); err != nil {
		return nil, err
	}
	size := t.DataSize()
	cr := &countingReader{r: t.r}

	track, _, err := ebml.ReadValue(cr)
	if err != nil {
		return nil, fmt.Errorf("block track: %w", err)
	}

	var ts [2]byte
	if _, err = io.ReadFull(cr, ts[:]); err != nil {
		return nil, fmt.Errorf("block timestamp: %w", unexpectedEOF(err))
	}

	flagByte, err := cr.readByte()
	if err != nil {
		return nil, fmt.Errorf("block flags: %w", unexpectedEOF(err))
	}
	flags, err := ParseBlockFlags(flagByte)
	if err != nil {
		return nil, err
	}

	b := &Block{
		BlockFlags: flags,
		Track:      int64(track),
		Timestamp:  int16(binary.BigEndian.Uint16(ts[:])),
		r:          t.r,
	}

	if flags.Lacing == LacingNone {
		b.frames = []int64{size - cr.n}
	} else {
		count, errCount := cr.readByte()
		if errCount != nil {
			return nil, fmt.Errorf("block frame count: %w", unexpectedEOF(errCount))
		}
		if err = b.readLacing(cr, int(count)+1, size); err != nil {
			return nil, err
		}
	}

	for i, n := range b.frames {
		if n < 0 {
			return nil, fmt.Errorf("frame %d of %d has size %d: %w", i, len(b.frames), n, ErrLacing)
		}
	}
	b.dataOffset = t.DataOffset + cr.n
	return b, nil
}

// readLacing fills b.frames. Every scheme derives the last frame from what
// remains of the payload, so the sizes always add up to it.
func (b *Block) readLacing(cr *countingReader, count int, size int64) error {
	b.frames = make([]int64, count)
	var total int64

	switch b.Lacing {
	case LacingXiph:
		for i := 0; i < count-1; i++ {
			var n int64
			for {
				c, err := cr.readByte()
				if err != nil {
					return fmt.Errorf("xiph lacing: %w", unexpectedEOF(err))
				}
				n += int64(c)
				if c != 0xFF {
					break
				}
			}
			b.frames[i] = n
			total += n
		}
	case LacingFixed:
		remaining := size - cr.n
		if remaining%int64(count) != 0 {
			return fmt.Errorf("%d bytes over %d frames: %w", remaining, count, ErrLacing)
		}
		for i := range b.frames {
			b.frames[i] = remaining / int64(count)
		}
		return nil
	case LacingEBML:
		if count > 1 {
			first, _, err := ebml.ReadValue(cr)
			if err != nil {
				return fmt.Errorf("ebml lacing: %w", err)
			}
			b.frames[0] = int64(first)
			total = b.frames[0]
			for i := 1; i < count-1; i++ {
				delta, _, errDelta := ebml.ReadSignedValue(cr)
				if errDelta != nil {
					return fmt.Errorf("ebml lacing: %w", errDelta)
				}
				b.frames[i] = b.frames[i-1] + delta
				total += b.frames[i]
			}
		}
	}

	b.frames[count-1] = size - cr.n - total
	return nil
}

// FrameCount returns the number of laced frames, 1 for an unlaced block.
func (b *Block) FrameCount() int {
	return len(b.frames)
}

// FrameSizes returns a copy of the per-frame byte lengths.
func (b *Block) FrameSizes() []int64 {
	sizes := make([]int64, len(b.frames))
	copy(sizes, b.frames)
	return sizes
}

// DataOffset returns the absolute offset of the first frame.
func (b *Block) DataOffset() int64 {
	return b.dataOffset
}

func (b *Block) dataSize() int64 {
	var total int64
	for _, n := range b.frames {
		total += n
	}
	return total
}

// GetData reads all frames as one contiguous buffer.
func (b *Block) GetData() ([]byte, error) {
	if _, err := b.r.Seek(b.dataOffset, io.SeekStart); err != nil {
		return nil, err
	}
	data := make([]byte, b.dataSize())
	if _, err := io.ReadFull(b.r, data); err != nil {
		return nil, unexpectedEOF(err)
	}
	return data, nil
}

// GetFrames reads every frame into its own buffer.
func (b *Block) GetFrames() ([][]byte, error) {
	if _, err := b.r.Seek(b.dataOffset, io.SeekStart); err != nil {
		return nil, err
	}
	frames := make([][]byte, len(b.frames))
	for i, n := range b.frames {
		frames[i] = make([]byte, n)
		if _, err := io.ReadFull(b.r, frames[i]); err != nil {
			return nil, unexpectedEOF(err)
		}
	}
	return frames, nil
}

// WriteBlock writes one unlaced SimpleBlock holding data.
func WriteBlock(tw *TreeWriter, keyframe bool, track uint64, timestamp int16, data []byte) error {
	if len(data) > math.MaxInt32-16 {
		return ErrFrameTooLarge
	}
	flags, err := BlockFlags{Keyframe: keyframe}.Byte()
	if err != nil {
		return err
	}

	if err = tw.OpenSequence(SimpleBlockID, DefaultSequenceWidth); err != nil {
		return err
	}
	if _, err = ebml.Write(tw, track, 0); err != nil {
		return err
	}

	var header [3]byte
	binary.BigEndian.PutUint16(header[:2], uint16(timestamp))
	header[2] = flags
	if _, err = tw.Write(header[:]); err != nil {
		return err
	}
	if _, err = tw.Write(data); err != nil {
		return err
	}
	return tw.CloseSequence()
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

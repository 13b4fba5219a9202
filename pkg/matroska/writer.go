package matroska

import (
	"errors"
	"fmt"
	"io"

	"github.com/luispater/matroska-tree-go/pkg/ebml"
)

var ErrUnbalancedSequence = errors.New("unbalanced EBML sequence")

// DefaultSequenceWidth reserves enough length bytes for any element size.
const DefaultSequenceWidth = 8

type sequence struct {
	start int64
	width int
}

// TreeWriter writes nested EBML elements without knowing their sizes in
// advance. OpenSequence reserves a length field and CloseSequence seeks
// back to fill it in, so the sink must be seekable.
type TreeWriter struct {
	w     io.WriteSeeker
	stack []sequence
}

func NewTreeWriter(w io.WriteSeeker) *TreeWriter {
	return &TreeWriter{w: w}
}

// Position returns the current write offset.
func (tw *TreeWriter) Position() (int64, error) {
	return tw.w.Seek(0, io.SeekCurrent)
}

// Depth returns the number of open sequences.
func (tw *TreeWriter) Depth() int {
	return len(tw.stack)
}

// Write writes raw payload bytes inside the current sequence.
func (tw *TreeWriter) Write(p []byte) (int, error) {
	return tw.w.Write(p)
}

// Seek exposes the underlying sink for callers that backpatch fixed-width
// fields of their own.
func (tw *TreeWriter) Seek(offset int64, whence int) (int64, error) {
	return tw.w.Seek(offset, whence)
}

// OpenSequence writes id followed by width placeholder length bytes.
func (tw *TreeWriter) OpenSequence(id uint32, width int) error {
	if _, err := ebml.WriteTag(tw.w, id); err != nil {
		return err
	}
	if _, err := ebml.Prepare(tw.w, width); err != nil {
		return err
	}

	start, err := tw.Position()
	if err != nil {
		return err
	}
	tw.stack = append(tw.stack, sequence{start: start, width: width})
	return nil
}

// CloseSequence backpatches the length of the most recently opened sequence
// and returns to the end of the written data.
func (tw *TreeWriter) CloseSequence() error {
	if len(tw.stack) == 0 {
		return ErrUnbalancedSequence
	}
	seq := tw.stack[len(tw.stack)-1]
	tw.stack = tw.stack[:len(tw.stack)-1]

	end, err := tw.Position()
	if err != nil {
		return err
	}

	if _, err = tw.w.Seek(seq.start-int64(seq.width), io.SeekStart); err != nil {
		return err
	}
	if err = ebml.Fill(tw.w, uint64(end-seq.start), seq.width); err != nil {
		return fmt.Errorf("sequence of %d bytes: %w", end-seq.start, err)
	}
	_, err = tw.w.Seek(end, io.SeekStart)
	return err
}

// Close reports sequences left open.
func (tw *TreeWriter) Close() error {
	if len(tw.stack) != 0 {
		return fmt.Errorf("%d open: %w", len(tw.stack), ErrUnbalancedSequence)
	}
	return nil
}

func (tw *TreeWriter) writeLeaf(id uint32, payload []byte) error {
	if _, err := ebml.WriteTag(tw.w, id); err != nil {
		return err
	}
	if _, err := ebml.Write(tw.w, uint64(len(payload)), 0); err != nil {
		return err
	}
	_, err := tw.w.Write(payload)
	return err
}

// WriteUint writes an unsigned integer element in the fewest bytes.
func (tw *TreeWriter) WriteUint(id uint32, value uint64) error {
	return tw.writeLeaf(id, ebml.PutUint(value, ebml.UintWidth(value)))
}

// WriteFixedUint writes an unsigned integer element in exactly width bytes.
func (tw *TreeWriter) WriteFixedUint(id uint32, value uint64, width int) error {
	if width < 8 && value>>(8*uint(width)) != 0 {
		return fmt.Errorf("%d in %d bytes: %w", value, width, ebml.ErrValueTooWide)
	}
	return tw.writeLeaf(id, ebml.PutUint(value, width))
}

func (tw *TreeWriter) WriteInt(id uint32, value int64) error {
	return tw.writeLeaf(id, ebml.PutInt(value, ebml.IntWidth(value)))
}

func (tw *TreeWriter) WriteFloat(id uint32, value float64) error {
	return tw.writeLeaf(id, ebml.PutFloat64(value))
}

func (tw *TreeWriter) WriteFloat32(id uint32, value float32) error {
	return tw.writeLeaf(id, ebml.PutFloat32(value))
}

func (tw *TreeWriter) WriteString(id uint32, value string) error {
	return tw.writeLeaf(id, []byte(value))
}

func (tw *TreeWriter) WriteBytes(id uint32, value []byte) error {
	return tw.writeLeaf(id, value)
}

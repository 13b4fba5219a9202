package matroska

import (
	"errors"
	"fmt"
	"io"

	"github.com/luispater/matroska-tree-go/pkg/ebml"
)

var ErrNotSegment = errors.New("element is not a Segment")

// Segment is the root Tree of a Matroska file, indexed by its SeekHead so
// top-level elements can be reached without scanning past the Clusters.
type Segment struct {
	*Tree

	seeks map[uint32]int64
}

// NewSegment parses the Segment header at the current position of r and
// records the entries of its SeekHead, if any. r is left past the segment.
func NewSegment(r io.ReadSeeker) (*Segment, error) {
	t, err := NewTree(r)
	if err != nil {
		return nil, err
	}
	if t.ID != SegmentID {
		return nil, fmt.Errorf("%s at %d: %w", ElementName(t.ID), t.Offset, ErrNotSegment)
	}

	s := &Segment{Tree: t}
	head, err := t.GetChild(SeekHeadID)
	if err != nil {
		return nil, err
	}
	if head != nil {
		s.seeks = make(map[uint32]int64)
		visited := map[int64]bool{head.Offset - t.DataOffset: true}
		if err = s.readSeekHead(head, visited); err != nil {
			return nil, err
		}
	}

	if _, err = r.Seek(t.End(), io.SeekStart); err != nil {
		return nil, err
	}
	return s, nil
}

// readSeekHead records every Seek entry of head. An entry pointing at
// another SeekHead is followed once.
func (s *Segment) readSeekHead(head *Tree, visited map[int64]bool) error {
	seeks, err := head.GetChildren(SeekID)
	if err != nil {
		return err
	}

	for _, seek := range seeks {
		rawID, errID := seek.GetChildBytes(SeekIDID)
		if errID != nil {
			return errID
		}
		position, errPos := seek.GetChildValue(SeekPositionID)
		if errPos != nil {
			return errPos
		}
		if len(rawID) == 0 || len(rawID) > 4 || position < 0 {
			continue
		}

		id := uint32(ebml.Uint(rawID))
		if id == SeekHeadID {
			if visited[position] {
				continue
			}
			visited[position] = true
			next, errNext := readTree(s.r, s.DataOffset+position, s.End())
			if errNext != nil {
				return errNext
			}
			if next.ID == SeekHeadID {
				if err = s.readSeekHead(next, visited); err != nil {
					return err
				}
			}
			continue
		}

		if _, ok := s.seeks[id]; !ok {
			s.seeks[id] = position
		}
	}
	return nil
}

// Indexed reports whether a SeekHead was found.
func (s *Segment) Indexed() bool {
	return s.seeks != nil
}

// SeekPosition returns the recorded offset of id, relative to the segment
// payload.
func (s *Segment) SeekPosition(id uint32) (int64, bool) {
	position, ok := s.seeks[id]
	return position, ok
}

// GetChildFromSeek jumps straight to the element recorded for id in the
// SeekHead and parses it as a fresh node, separate from the children cache.
// Without an entry, or when the entry does not point at id, it falls back
// to GetChild.
func (s *Segment) GetChildFromSeek(id uint32) (*Tree, error) {
	position, ok := s.seeks[id]
	if !ok {
		return s.GetChild(id)
	}

	child, err := readTree(s.r, s.DataOffset+position, s.End())
	if err != nil {
		return nil, fmt.Errorf("seek to %s at %d: %w", ElementName(id), position, err)
	}
	if child.ID != id {
		return s.GetChild(id)
	}
	return child, nil
}

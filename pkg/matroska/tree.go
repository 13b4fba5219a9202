package matroska

import (
	"fmt"
	"io"

	"github.com/luispater/matroska-tree-go/pkg/ebml"
)

// Tree is one EBML element whose children are discovered lazily. Children
// are parsed at most once, in document order, and cached for the lifetime
// of the node.
type Tree struct {
	ebml.Header

	r   io.ReadSeeker
	end int64

	children []*Tree
	index    map[uint32][]int
	cursor   int64
}

// NewTree reads the element header at the current position of r and leaves
// r positioned just past the element. Children are not read.
func NewTree(r io.ReadSeeker) (*Tree, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	return readTree(r, pos, end)
}

// readTree parses the header at offset. An element of unknown size extends
// to parentEnd.
func readTree(r io.ReadSeeker, offset, parentEnd int64) (*Tree, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	h, err := ebml.ReadHeader(r)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		Header: *h,
		r:      r,
		end:    h.End(),
		cursor: h.DataOffset,
	}
	if h.Unknown() {
		t.end = parentEnd
	}

	if _, err = r.Seek(t.end, io.SeekStart); err != nil {
		return nil, err
	}
	return t, nil
}

// Reader returns the stream the tree was parsed from.
func (t *Tree) Reader() io.ReadSeeker {
	return t.r
}

// End returns the offset one past the payload.
func (t *Tree) End() int64 {
	return t.end
}

// DataSize returns the payload length, resolving an unknown size to the
// space the element was allotted.
func (t *Tree) DataSize() int64 {
	return t.end - t.DataOffset
}

func (t *Tree) String() string {
	return fmt.Sprintf("%s@%d(%d)", ElementName(t.ID), t.Offset, t.DataSize())
}

// next parses the child at the cursor and appends it to the cache. It
// returns nil once the payload is exhausted or the element is a leaf.
func (t *Tree) next() (*Tree, error) {
	if t.cursor >= t.end || !IsContainer(t.ID) {
		return nil, nil
	}

	child, err := readTree(t.r, t.cursor, t.end)
	if err == io.EOF {
		// Truncated file: the stream ends before the declared payload does.
		t.cursor = t.end
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s child at %d: %w", ElementName(t.ID), t.cursor, err)
	}

	if child.end <= t.cursor {
		return nil, fmt.Errorf("%s child at %d does not advance", ElementName(t.ID), t.cursor)
	}
	t.cursor = child.end

	if t.index == nil {
		t.index = make(map[uint32][]int)
	}
	t.index[child.ID] = append(t.index[child.ID], len(t.children))
	t.children = append(t.children, child)
	return child, nil
}

// GetChild returns the first child with the given id, or nil when there is
// none.
func (t *Tree) GetChild(id uint32) (*Tree, error) {
	return t.GetChildAt(id, 0)
}

// GetChildAt returns the index-th (0-based) child with the given id. The scan
// resumes where the previous one stopped, so occurrences already found are
// returned without touching the stream.
func (t *Tree) GetChildAt(id uint32, index int) (*Tree, error) {
	if index < 0 {
		return nil, nil
	}
	if slots := t.index[id]; index < len(slots) {
		return t.children[slots[index]], nil
	}

	for {
		child, err := t.next()
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, nil
		}
		if child.ID == id {
			if slots := t.index[id]; index < len(slots) {
				return t.children[slots[index]], nil
			}
		}
	}
}

// scanAll reads every remaining child.
func (t *Tree) scanAll() error {
	for {
		child, err := t.next()
		if err != nil {
			return err
		}
		if child == nil {
			return nil
		}
	}
}

// GetChildren returns every child with the given id in document order.
func (t *Tree) GetChildren(id uint32) ([]*Tree, error) {
	if err := t.scanAll(); err != nil {
		return nil, err
	}

	slots := t.index[id]
	children := make([]*Tree, 0, len(slots))
	for _, slot := range slots {
		children = append(children, t.children[slot])
	}
	return children, nil
}

// Children returns every child in document order.
func (t *Tree) Children() ([]*Tree, error) {
	if err := t.scanAll(); err != nil {
		return nil, err
	}
	children := make([]*Tree, len(t.children))
	copy(children, t.children)
	return children, nil
}

// GetChildByPath descends one first-match child per id.
func (t *Tree) GetChildByPath(path ...uint32) (*Tree, error) {
	node := t
	for _, id := range path {
		child, err := node.GetChild(id)
		if err != nil || child == nil {
			return nil, err
		}
		node = child
	}
	return node, nil
}

// GetChildrenByPath returns every element reachable through path, level by
// level.
func (t *Tree) GetChildrenByPath(path ...uint32) ([]*Tree, error) {
	nodes := []*Tree{t}
	for _, id := range path {
		var next []*Tree
		for _, node := range nodes {
			children, err := node.GetChildren(id)
			if err != nil {
				return nil, err
			}
			next = append(next, children...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		nodes = next
	}
	return nodes, nil
}

// GetChildValue returns the unsigned value of the first child with id, or -1
// when it is absent.
func (t *Tree) GetChildValue(id uint32) (int64, error) {
	child, err := t.GetChild(id)
	if err != nil || child == nil {
		return -1, err
	}
	value, err := child.ReadUint(t.r)
	if err != nil {
		return -1, err
	}
	return int64(value), nil
}

// GetChildUint returns the unsigned value of the first child with id, or def
// when it is absent.
func (t *Tree) GetChildUint(id uint32, def uint64) (uint64, error) {
	child, err := t.GetChild(id)
	if err != nil || child == nil {
		return def, err
	}
	return child.ReadUint(t.r)
}

// GetChildInt returns the signed value of the first child with id, or def
// when it is absent.
func (t *Tree) GetChildInt(id uint32, def int64) (int64, error) {
	child, err := t.GetChild(id)
	if err != nil || child == nil {
		return def, err
	}
	return child.ReadInt(t.r)
}

// GetChildFloatBE returns the big-endian float value of the first child with
// id, or -1 when it is absent.
func (t *Tree) GetChildFloatBE(id uint32) (float64, error) {
	child, err := t.GetChild(id)
	if err != nil || child == nil {
		return -1, err
	}
	value, err := child.ReadFloat(t.r)
	if err != nil {
		return -1, err
	}
	return value, nil
}

// GetChildUTF8 returns the string value of the first child with id, or ""
// when it is absent.
func (t *Tree) GetChildUTF8(id uint32) (string, error) {
	child, err := t.GetChild(id)
	if err != nil || child == nil {
		return "", err
	}
	return child.ReadUTF8(t.r)
}

// GetChildBytes returns the payload of the first child with id, or nil when
// it is absent.
func (t *Tree) GetChildBytes(id uint32) ([]byte, error) {
	child, err := t.GetChild(id)
	if err != nil || child == nil {
		return nil, err
	}
	return child.GetRawData()
}

// GetRawData reads the payload verbatim.
func (t *Tree) GetRawData() ([]byte, error) {
	if t.Unknown() {
		h := t.Header
		h.Size = t.DataSize()
		return h.ReadBytes(t.r)
	}
	return t.ReadBytes(t.r)
}

// Walk visits t and its descendants depth-first, descending into containers
// only. Returning false from fn skips the children of that node.
func (t *Tree) Walk(depth int, fn func(node *Tree, depth int) bool) error {
	if !fn(t, depth) {
		return nil
	}
	children, err := t.Children()
	if err != nil {
		return err
	}
	for _, child := range children {
		if err = child.Walk(depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Package probe cross-checks a Matroska file with an independent streaming
// parser, so problems in one reader show up as disagreements with the other.
package probe

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/remko/go-mkvparse"

	"github.com/luispater/matroska-tree-go/pkg/ebml"
	"github.com/luispater/matroska-tree-go/pkg/errors"
	"github.com/luispater/matroska-tree-go/pkg/matroska"
)

// Counts summarizes what a full streaming pass saw
type Counts struct {
	DocType        string
	TimestampScale uint64
	Tracks         int
	Clusters       int
	Blocks         int
	CuePoints      int
	TrackBlocks    map[uint64]int
}

// Scan streams r through go-mkvparse and counts elements
func Scan(r io.Reader) (*Counts, error) {
	handler := &countHandler{
		counts: &Counts{
			TimestampScale: matroska.DefaultTimestampScale,
			TrackBlocks:    make(map[uint64]int),
		},
	}
	if err := mkvparse.Parse(r, handler); err != nil {
		return nil, errors.NewFormatError("streaming parse failed", err)
	}
	return handler.counts, nil
}

// countHandler implements mkvparse.Handler
type countHandler struct {
	counts  *Counts
	inBlock bool
}

func (h *countHandler) HandleMasterBegin(id mkvparse.ElementID, _ mkvparse.ElementInfo) (bool, error) {
	switch id {
	case mkvparse.TrackEntryElement:
		h.counts.Tracks++
	case mkvparse.ClusterElement:
		h.counts.Clusters++
	case mkvparse.CuePointElement:
		h.counts.CuePoints++
	case mkvparse.BlockGroupElement:
		h.inBlock = true
	}
	return true, nil
}

func (h *countHandler) HandleMasterEnd(id mkvparse.ElementID, _ mkvparse.ElementInfo) error {
	if id == mkvparse.BlockGroupElement {
		h.inBlock = false
	}
	return nil
}

func (h *countHandler) HandleString(id mkvparse.ElementID, value string, _ mkvparse.ElementInfo) error {
	if id == mkvparse.DocTypeElement {
		h.counts.DocType = value
	}
	return nil
}

func (h *countHandler) HandleInteger(id mkvparse.ElementID, value int64, _ mkvparse.ElementInfo) error {
	if id == mkvparse.TimecodeScaleElement && value > 0 {
		h.counts.TimestampScale = uint64(value)
	}
	return nil
}

func (h *countHandler) HandleFloat(_ mkvparse.ElementID, _ float64, _ mkvparse.ElementInfo) error {
	return nil
}

func (h *countHandler) HandleDate(_ mkvparse.ElementID, _ time.Time, _ mkvparse.ElementInfo) error {
	return nil
}

func (h *countHandler) HandleBinary(id mkvparse.ElementID, value []byte, _ mkvparse.ElementInfo) error {
	if id == mkvparse.SimpleBlockElement || (id == mkvparse.BlockElement && h.inBlock) {
		track, _, err := ebml.DecodeValue(value)
		if err != nil {
			return fmt.Errorf("block track number: %w", err)
		}
		h.counts.Blocks++
		h.counts.TrackBlocks[track]++
	}
	return nil
}

// Mismatch is one quantity the two parsers disagree on
type Mismatch struct {
	Field   string
	Stream  int
	Demuxer int
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: streaming parser saw %d, demuxer saw %d", m.Field, m.Stream, m.Demuxer)
}

// Compare checks c against what d reports. Packets are counted on copies of
// the tracks, so the cursors of d's tracks are left alone.
func Compare(c *Counts, d *matroska.Demuxer) ([]Mismatch, error) {
	var mismatches []Mismatch
	check := func(field string, stream, demuxer int) {
		if stream != demuxer {
			mismatches = append(mismatches, Mismatch{Field: field, Stream: stream, Demuxer: demuxer})
		}
	}

	check("tracks", c.Tracks, len(d.Tracks()))
	check("cue points", c.CuePoints, len(d.Cues()))

	clusters, err := d.Segment().GetChildren(matroska.ClusterID)
	if err != nil {
		return nil, errors.NewFormatError("cannot list clusters", err)
	}
	check("clusters", c.Clusters, len(clusters))

	var total int
	numbers := make([]uint64, 0, len(d.Tracks()))
	for _, t := range d.Tracks() {
		numbers = append(numbers, t.Number)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	for _, number := range numbers {
		t, errTrack := d.Track(number)
		if errTrack != nil {
			return nil, errTrack
		}
		cursor := *t
		cursor.LastCluster, cursor.LastBlock = 0, 0

		var n int
		for {
			_, errPacket := d.ReadPacket(&cursor)
			if errPacket == io.EOF {
				break
			}
			if errPacket != nil {
				return nil, errors.NewFormatError("cannot read packet", errPacket).WithContext("track", number)
			}
			n++
		}
		check(fmt.Sprintf("blocks of track %d", number), c.TrackBlocks[number], n)
		total += n
	}

	var orphans int
	for number, n := range c.TrackBlocks {
		if _, err = d.Track(number); err != nil {
			orphans += n
		}
	}
	check("blocks", c.Blocks, total+orphans)

	return mismatches, nil
}

package matroska

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/pborman/uuid"

	"github.com/luispater/matroska-tree-go/pkg/ebml"
)

var (
	ErrMuxerClosed   = errors.New("muxer is closed")
	ErrUnknownTrack  = errors.New("frame for undeclared track")
	ErrTimestampBack = errors.New("timestamp before cluster start")
)

const (
	DefaultClusterSize     = 5 << 20
	DefaultClusterDuration = 5000 // in TimestampScale units at the default scale, 5s
	MuxingApp              = "matroska-tree-go"
)

// MuxerOptions bounds cluster growth. Zero values select the defaults.
type MuxerOptions struct {
	ClusterSize     int64  // payload bytes before a new cluster is started
	ClusterDuration int64  // TimestampScale units before a new cluster is started
	CueTrack        uint64 // track whose keyframes get cues; 0 picks one
	SequenceWidth   int    // length bytes reserved for Segment and Cluster
}

// seekSlot is a SeekPosition payload written as zeros and filled on Close.
type seekSlot struct {
	id     uint32
	offset int64
}

// Muxer writes a seekable Matroska file: header elements first, then
// clusters of SimpleBlocks, then Cues. Close backpatches the SeekHead, the
// Duration and every open length field.
type Muxer struct {
	tw     *TreeWriter
	opts   MuxerOptions
	info   *Info
	tracks map[uint64]*Track
	closed bool

	segmentData    int64
	slots          []seekSlot
	positions      map[uint32]int64
	durationOffset int64

	clusterOpen  bool
	clusterStart int64
	clusterTime  int64
	lastTime     int64
	cues         []*Cue
}

// NewMuxer writes everything up to the first cluster. info may be nil.
func NewMuxer(w io.WriteSeeker, info *Info, tracks []*Track, opts MuxerOptions) (*Muxer, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no tracks: %w", ErrUnknownTrack)
	}
	if opts.ClusterSize <= 0 {
		opts.ClusterSize = DefaultClusterSize
	}
	if opts.ClusterDuration <= 0 {
		opts.ClusterDuration = DefaultClusterDuration
	}
	if opts.SequenceWidth <= 0 || opts.SequenceWidth > ebml.MaxWidth {
		opts.SequenceWidth = DefaultSequenceWidth
	}

	m := &Muxer{
		tw:        NewTreeWriter(w),
		opts:      opts,
		info:      &Info{TimestampScale: DefaultTimestampScale},
		tracks:    make(map[uint64]*Track, len(tracks)),
		positions: make(map[uint32]int64),
		lastTime:  -1,
	}
	if info != nil {
		copied := *info
		m.info = &copied
	}
	if m.info.TimestampScale == 0 {
		m.info.TimestampScale = DefaultTimestampScale
	}
	if len(m.info.SegmentUID) != 16 {
		m.info.SegmentUID = uuid.NewRandom()
	}
	if m.info.MuxingApp == "" {
		m.info.MuxingApp = MuxingApp
	}
	if m.info.WritingApp == "" {
		m.info.WritingApp = MuxingApp
	}

	for _, t := range tracks {
		m.tracks[t.Number] = t
	}
	if m.opts.CueTrack == 0 {
		m.opts.CueTrack = pickCueTrack(tracks)
	}

	if err := m.writeHeader(tracks); err != nil {
		return nil, err
	}
	return m, nil
}

// pickCueTrack prefers the first video track.
func pickCueTrack(tracks []*Track) uint64 {
	for _, t := range tracks {
		if t.Type == TrackTypeVideo {
			return t.Number
		}
	}
	return tracks[0].Number
}

func (m *Muxer) writeHeader(tracks []*Track) error {
	tw := m.tw
	if err := tw.OpenSequence(EBMLHeaderID, DefaultSequenceWidth); err != nil {
		return err
	}
	for _, field := range []struct {
		id    uint32
		value uint64
	}{
		{EBMLVersionID, 1},
		{EBMLReadVersionID, 1},
		{EBMLMaxIDLengthID, 4},
		{EBMLMaxSizeLengthID, 8},
	} {
		if err := tw.WriteUint(field.id, field.value); err != nil {
			return err
		}
	}
	if err := tw.WriteString(DocTypeID, "matroska"); err != nil {
		return err
	}
	if err := tw.WriteUint(DocTypeVersionID, 4); err != nil {
		return err
	}
	if err := tw.WriteUint(DocTypeReadVersionID, 2); err != nil {
		return err
	}
	if err := tw.CloseSequence(); err != nil {
		return err
	}

	if err := tw.OpenSequence(SegmentID, m.opts.SequenceWidth); err != nil {
		return err
	}
	var err error
	if m.segmentData, err = tw.Position(); err != nil {
		return err
	}

	if err = m.writeSeekHead(InfoID, TracksID, CuesID); err != nil {
		return err
	}
	if err = m.writeInfo(); err != nil {
		return err
	}

	if err = m.mark(TracksID); err != nil {
		return err
	}
	if err = tw.OpenSequence(TracksID, DefaultSequenceWidth); err != nil {
		return err
	}
	for _, t := range tracks {
		if err = writeTrackEntry(tw, t); err != nil {
			return fmt.Errorf("track %d: %w", t.Number, err)
		}
	}
	return tw.CloseSequence()
}

// writeSeekHead reserves an 8-byte SeekPosition for each id.
func (m *Muxer) writeSeekHead(ids ...uint32) error {
	tw := m.tw
	if err := tw.OpenSequence(SeekHeadID, DefaultSequenceWidth); err != nil {
		return err
	}
	for _, id := range ids {
		if err := tw.OpenSequence(SeekID, DefaultSequenceWidth); err != nil {
			return err
		}
		if err := tw.WriteBytes(SeekIDID, ebml.PutUint(uint64(id), ebml.TagWidth(id))); err != nil {
			return err
		}
		if err := tw.WriteFixedUint(SeekPositionID, 0, 8); err != nil {
			return err
		}
		end, err := tw.Position()
		if err != nil {
			return err
		}
		m.slots = append(m.slots, seekSlot{id: id, offset: end - 8})
		if err = tw.CloseSequence(); err != nil {
			return err
		}
	}
	return tw.CloseSequence()
}

// mark records where id starts, relative to the segment payload.
func (m *Muxer) mark(id uint32) error {
	pos, err := m.tw.Position()
	if err != nil {
		return err
	}
	m.positions[id] = pos - m.segmentData
	return nil
}

func (m *Muxer) writeInfo() error {
	tw := m.tw
	if err := m.mark(InfoID); err != nil {
		return err
	}
	if err := tw.OpenSequence(InfoID, DefaultSequenceWidth); err != nil {
		return err
	}
	if err := tw.WriteUint(TimestampScaleID, m.info.TimestampScale); err != nil {
		return err
	}
	if err := tw.WriteFloat(DurationID, 0); err != nil {
		return err
	}
	end, err := tw.Position()
	if err != nil {
		return err
	}
	m.durationOffset = end - 8

	if m.info.Title != "" {
		if err = tw.WriteString(TitleID, m.info.Title); err != nil {
			return err
		}
	}
	if err = tw.WriteString(MuxingAppID, m.info.MuxingApp); err != nil {
		return err
	}
	if err = tw.WriteString(WritingAppID, m.info.WritingApp); err != nil {
		return err
	}
	if err = tw.WriteBytes(SegmentUIDID, m.info.SegmentUID); err != nil {
		return err
	}
	return tw.CloseSequence()
}

// Info returns the segment information as written.
func (m *Muxer) Info() *Info {
	return m.info
}

// WriteFrame writes data as one SimpleBlock. ts is absolute, in
// TimestampScale units, and must not go back past the start of the current
// cluster.
func (m *Muxer) WriteFrame(track uint64, ts int64, keyframe bool, data []byte) error {
	if m.closed {
		return ErrMuxerClosed
	}
	if _, ok := m.tracks[track]; !ok {
		return fmt.Errorf("track %d: %w", track, ErrUnknownTrack)
	}
	if ts < 0 {
		return fmt.Errorf("timestamp %d: %w", ts, ErrTimestampBack)
	}

	cue := keyframe && track == m.opts.CueTrack
	if err := m.ensureCluster(ts, cue); err != nil {
		return err
	}

	relative := ts - m.clusterTime
	if relative < math.MinInt16 {
		return fmt.Errorf("timestamp %d in cluster at %d: %w", ts, m.clusterTime, ErrTimestampBack)
	}

	if cue && (len(m.cues) == 0 || m.cues[len(m.cues)-1].Position != m.clusterStart) {
		m.cues = append(m.cues, &Cue{Time: uint64(ts), Track: track, Position: m.clusterStart})
	}

	if err := WriteBlock(m.tw, keyframe, track, int16(relative), data); err != nil {
		return fmt.Errorf("track %d at %d: %w", track, ts, err)
	}
	if ts > m.lastTime {
		m.lastTime = ts
	}
	return nil
}

// ensureCluster starts a new cluster when none is open, when the current one
// is full or too long, or when ts no longer fits the 16-bit block offset. A
// cue keyframe also starts a new cluster once the current one holds data, so
// every cue points at a cluster that begins with a keyframe.
func (m *Muxer) ensureCluster(ts int64, cue bool) error {
	if m.clusterOpen {
		pos, err := m.tw.Position()
		if err != nil {
			return err
		}
		size := pos - m.segmentData - m.clusterStart
		relative := ts - m.clusterTime
		full := size >= m.opts.ClusterSize || relative >= m.opts.ClusterDuration || relative > math.MaxInt16
		if !full && !(cue && relative > 0) {
			return nil
		}
		if err = m.closeCluster(); err != nil {
			return err
		}
	}

	if err := m.mark(ClusterID); err != nil {
		return err
	}
	m.clusterStart = m.positions[ClusterID]
	m.clusterTime = ts
	if err := m.tw.OpenSequence(ClusterID, m.opts.SequenceWidth); err != nil {
		return err
	}
	if err := m.tw.WriteUint(TimestampID, uint64(ts)); err != nil {
		return err
	}
	m.clusterOpen = true
	return nil
}

func (m *Muxer) closeCluster() error {
	if !m.clusterOpen {
		return nil
	}
	m.clusterOpen = false
	return m.tw.CloseSequence()
}

// Cues returns the cues collected so far, with positions relative to the
// segment payload.
func (m *Muxer) Cues() []*Cue {
	return m.cues
}

// Close writes the Cues, fills in the SeekHead and Duration, and closes the
// Segment. The underlying writer is left open.
func (m *Muxer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	if err := m.closeCluster(); err != nil {
		return err
	}

	tw := m.tw
	if len(m.cues) > 0 {
		if err := m.mark(CuesID); err != nil {
			return err
		}
		if err := tw.OpenSequence(CuesID, DefaultSequenceWidth); err != nil {
			return err
		}
		for _, cue := range m.cues {
			if err := cue.Write(tw); err != nil {
				return err
			}
		}
		if err := tw.CloseSequence(); err != nil {
			return err
		}
	}

	end, err := tw.Position()
	if err != nil {
		return err
	}
	for _, slot := range m.slots {
		position, ok := m.positions[slot.id]
		if !ok {
			// Keeps the entry parseable; readers fall back to a scan.
			position = 0
		}
		if err = m.patch(slot.offset, ebml.PutUint(uint64(position), 8)); err != nil {
			return err
		}
	}
	if m.lastTime >= 0 {
		m.info.Duration = float64(m.lastTime)
		if err = m.patch(m.durationOffset, ebml.PutFloat64(m.info.Duration)); err != nil {
			return err
		}
	}
	if _, err = tw.Seek(end, io.SeekStart); err != nil {
		return err
	}

	if err = tw.CloseSequence(); err != nil {
		return err
	}
	return tw.Close()
}

func (m *Muxer) patch(offset int64, b []byte) error {
	if _, err := m.tw.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	_, err := m.tw.Write(b)
	return err
}

package matroska

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pborman/uuid"
)

var (
	ErrNotMatroska    = errors.New("not a Matroska or WebM file")
	ErrDemuxerClosed  = errors.New("demuxer is closed")
	ErrTrackNotFound  = errors.New("track not found")
	ErrMissingCluster = errors.New("cluster has no timestamp")
)

// Packet is one block's worth of frames for a single track.
type Packet struct {
	Track     uint64
	Timestamp int64 // absolute, in TimestampScale units
	Time      time.Duration
	Duration  int64 // BlockDuration, -1 when absent
	Keyframe  bool
	Frames    [][]byte
}

// Data returns the frames concatenated.
func (p *Packet) Data() []byte {
	if len(p.Frames) == 1 {
		return p.Frames[0]
	}
	var n int
	for _, f := range p.Frames {
		n += len(f)
	}
	data := make([]byte, 0, n)
	for _, f := range p.Frames {
		data = append(data, f...)
	}
	return data
}

// Demuxer reads packets track by track. Each Track keeps its own cluster and
// block cursor, so tracks can be consumed independently and at different
// rates over the same stream.
type Demuxer struct {
	r       io.ReadSeeker
	key     string
	closed  bool
	docType string

	segment  *Segment
	info     *Info
	tracks   []*Track
	cues     []*Cue
	clusters map[int]*Cluster

	// offsets maps the absolute offset of every Cluster header seen so far
	// to its index; scanned is the number of Clusters recorded there.
	offsets map[int64]int
	scanned int
}

// NewDemuxer checks the EBML header at the start of r and loads the segment
// metadata. Clusters are read on demand.
func NewDemuxer(r io.ReadSeeker) (*Demuxer, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	header, err := NewTree(r)
	if err != nil {
		return nil, fmt.Errorf("EBML header: %w", err)
	}
	if header.ID != EBMLHeaderID {
		return nil, fmt.Errorf("%s at start of file: %w", ElementName(header.ID), ErrNotMatroska)
	}
	docType, err := header.GetChildUTF8(DocTypeID)
	if err != nil {
		return nil, err
	}
	if docType == "" {
		docType = "matroska"
	}
	if docType != "matroska" && docType != "webm" {
		return nil, fmt.Errorf("doc type %q: %w", docType, ErrNotMatroska)
	}

	if _, err = r.Seek(header.End(), io.SeekStart); err != nil {
		return nil, err
	}
	segment, err := NewSegment(r)
	if err != nil {
		return nil, err
	}

	d := &Demuxer{
		r:        r,
		key:      uuid.New(),
		docType:  docType,
		segment:  segment,
		clusters: make(map[int]*Cluster),
		offsets:  make(map[int64]int),
	}
	if d.info, err = ReadInfo(segment); err != nil {
		return nil, fmt.Errorf("segment info: %w", err)
	}
	if d.tracks, err = ReadTracks(segment); err != nil {
		return nil, fmt.Errorf("tracks: %w", err)
	}
	if d.cues, err = GetCues(segment); err != nil {
		return nil, fmt.Errorf("cues: %w", err)
	}
	return d, nil
}

// Key identifies this demuxer instance, e.g. in logs.
func (d *Demuxer) Key() string {
	return d.key
}

func (d *Demuxer) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.clusters = nil
	d.offsets = nil
}

func (d *Demuxer) DocType() string {
	return d.docType
}

func (d *Demuxer) Segment() *Segment {
	return d.segment
}

func (d *Demuxer) Info() *Info {
	return d.info
}

func (d *Demuxer) Tracks() []*Track {
	return d.tracks
}

func (d *Demuxer) Cues() []*Cue {
	return d.cues
}

// Track returns the track with the given TrackNumber.
func (d *Demuxer) Track(number uint64) (*Track, error) {
	for _, t := range d.tracks {
		if t.Number == number {
			return t, nil
		}
	}
	return nil, fmt.Errorf("track %d: %w", number, ErrTrackNotFound)
}

// Scale converts a timestamp in TimestampScale units to a duration.
func (d *Demuxer) Scale(ts int64) time.Duration {
	return time.Duration(ts * int64(d.info.TimestampScale))
}

// cluster returns the index-th Cluster of the segment, or nil past the last.
func (d *Demuxer) cluster(index int) (*Cluster, error) {
	if c, ok := d.clusters[index]; ok {
		return c, nil
	}
	t, err := d.segment.GetChildAt(ClusterID, index)
	if err != nil || t == nil {
		return nil, err
	}
	c, err := NewCluster(t)
	if err != nil {
		return nil, err
	}
	if c.Timestamp < 0 {
		return nil, fmt.Errorf("%s: %w", t, ErrMissingCluster)
	}
	d.clusters[index] = c
	return c, nil
}

// ReadPacket returns the next packet of track and advances its cursors. It
// returns io.EOF after the last cluster.
func (d *Demuxer) ReadPacket(track *Track) (*Packet, error) {
	if d.closed {
		return nil, ErrDemuxerClosed
	}

	for {
		c, err := d.cluster(track.LastCluster)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, io.EOF
		}

		children, err := c.Children()
		if err != nil {
			return nil, err
		}
		for track.LastBlock < len(children) {
			child := children[track.LastBlock]
			track.LastBlock++

			packet, errPacket := d.readPacket(c, child, track)
			if errPacket != nil {
				return nil, errPacket
			}
			if packet != nil {
				return packet, nil
			}
		}

		track.LastCluster++
		track.LastBlock = 0
	}
}

// readPacket decodes child when it is a block of the wanted track, and
// returns nil otherwise.
func (d *Demuxer) readPacket(c *Cluster, child *Tree, track *Track) (*Packet, error) {
	var (
		node     *Tree
		group    *Tree
		duration int64 = -1
	)
	switch child.ID {
	case SimpleBlockID:
		node = child
	case BlockGroupID:
		var err error
		if node, err = child.GetChild(BlockID); err != nil {
			return nil, err
		}
		group = child
	}
	if node == nil {
		return nil, nil
	}

	block, err := NewBlock(node)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node, err)
	}
	if uint64(block.Track) != track.Number {
		return nil, nil
	}

	keyframe := block.Keyframe
	if group != nil {
		if duration, err = group.GetChildValue(BlockDurationID); err != nil {
			return nil, err
		}
		ref, errRef := group.GetChild(ReferenceBlockID)
		if errRef != nil {
			return nil, errRef
		}
		keyframe = ref == nil
	}

	frames, err := block.GetFrames()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node, err)
	}
	if track.Compression.HeaderStripping() && len(track.Compression.Settings) > 0 {
		frames = restoreHeader(frames, track.Compression.Settings)
	}

	ts := c.Timestamp + int64(block.Timestamp)
	return &Packet{
		Track:     track.Number,
		Timestamp: ts,
		Time:      d.Scale(ts),
		Duration:  duration,
		Keyframe:  keyframe,
		Frames:    frames,
	}, nil
}

// Seek moves the cursors of track to the cluster holding the last cue at or
// before ts (in TimestampScale units). Without a usable cue the cursors go
// back to the first cluster. Packets before ts may still be returned by the
// next ReadPacket; callers drop them.
func (d *Demuxer) Seek(track *Track, ts uint64) error {
	if d.closed {
		return ErrDemuxerClosed
	}

	track.LastCluster = 0
	track.LastBlock = 0

	cue := Find(d.cuesFor(track.Number), ts)
	if cue == nil {
		return nil
	}

	index, err := d.clusterAt(cue.Position)
	if err != nil {
		return err
	}
	if index >= 0 {
		track.LastCluster = index
	}
	return nil
}

// clusterAt returns the index of the Cluster whose header starts at the
// absolute offset position, or -1 when there is none. Only element headers
// are read while looking, and every Cluster found on the way is remembered,
// so repeated seeks touch the stream at most once per Cluster.
func (d *Demuxer) clusterAt(position int64) (int, error) {
	if index, ok := d.offsets[position]; ok {
		return index, nil
	}
	for {
		t, err := d.segment.GetChildAt(ClusterID, d.scanned)
		if err != nil || t == nil {
			return -1, err
		}
		d.offsets[t.Offset] = d.scanned
		d.scanned++
		if t.Offset == position {
			return d.scanned - 1, nil
		}
		if t.Offset > position {
			return -1, nil
		}
	}
}

// restoreHeader prefixes every frame with the stripped bytes.
func restoreHeader(frames [][]byte, header []byte) [][]byte {
	restored := make([][]byte, len(frames))
	for i, f := range frames {
		frame := make([]byte, 0, len(header)+len(f))
		frame = append(frame, header...)
		restored[i] = append(frame, f...)
	}
	return restored
}

// cuesFor returns the cues of one track, or every cue when none names it.
func (d *Demuxer) cuesFor(number uint64) []*Cue {
	var own []*Cue
	for _, cue := range d.cues {
		if cue.Track == number {
			own = append(own, cue)
		}
	}
	if len(own) == 0 {
		return d.cues
	}
	return own
}

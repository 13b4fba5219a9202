package matroska

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	cues := []*Cue{{Time: 0}, {Time: 10}, {Time: 20}}

	tests := []struct {
		name   string
		cues   []*Cue
		target uint64
		want   *Cue
	}{
		{"empty", nil, 15, nil},
		{"between", cues, 15, cues[1]},
		{"exact", cues, 10, cues[1]},
		{"first", cues, 0, cues[0]},
		{"past end", cues, 99, cues[2]},
		{"before first", []*Cue{{Time: 5}}, 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Same(t, tt.want, Find(tt.cues, tt.target))
		})
	}
}

// writeCueSegment writes an unindexed Segment holding one empty Cluster and
// the given cues. It returns the file and the segment payload offset.
func writeCueSegment(t *testing.T, cues []*Cue) ([]byte, int64) {
	t.Helper()
	buf := &seekBuffer{}
	tw := NewTreeWriter(buf)

	require.NoError(t, tw.OpenSequence(SegmentID, 8))
	dataOffset, err := tw.Position()
	require.NoError(t, err)

	require.NoError(t, tw.OpenSequence(ClusterID, 8))
	require.NoError(t, tw.WriteUint(TimestampID, 0))
	require.NoError(t, tw.CloseSequence())

	require.NoError(t, tw.OpenSequence(CuesID, 8))
	for _, cue := range cues {
		require.NoError(t, cue.Write(tw))
	}
	require.NoError(t, tw.CloseSequence())
	require.NoError(t, tw.CloseSequence())
	require.NoError(t, tw.Close())
	return buf.Bytes(), dataOffset
}

func TestCueWriteAndLoad(t *testing.T) {
	written := []*Cue{
		{Time: 0, Track: 1, Position: 0},
		{Time: 5000, Track: 1, Position: 4096},
		{Time: 9000, Track: 300, Position: 1 << 40},
	}
	data, dataOffset := writeCueSegment(t, written)

	r := bytes.NewReader(data)
	segment, err := NewSegment(r)
	require.NoError(t, err)
	require.False(t, segment.Indexed())

	cues, err := GetCues(segment)
	require.NoError(t, err)
	require.Len(t, cues, len(written))
	for i, cue := range cues {
		require.Equal(t, written[i].Time, cue.Time)
		require.Equal(t, written[i].Track, cue.Track)
		require.Equal(t, dataOffset+written[i].Position, cue.Position)
	}

	// The cue at 0 points at the cluster.
	_, err = r.Seek(cues[0].Position, io.SeekStart)
	require.NoError(t, err)
	cluster, err := NewTree(r)
	require.NoError(t, err)
	require.Equal(t, uint32(ClusterID), cluster.ID)
}

func TestCueTrackWidth(t *testing.T) {
	for _, tt := range []struct {
		track uint64
		width int64
	}{
		{1, 1},
		{127, 1},
		{128, 2},
	} {
		buf := &seekBuffer{}
		tw := NewTreeWriter(buf)
		require.NoError(t, (&Cue{Time: 1, Track: tt.track}).Write(tw))

		point, err := NewTree(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		track, err := point.GetChildByPath(CueTrackPositionsID, CueTrackID)
		require.NoError(t, err)
		require.Equal(t, tt.width, track.Size)
		position, err := point.GetChildByPath(CueTrackPositionsID, CueClusterPositionID)
		require.NoError(t, err)
		require.Equal(t, int64(8), position.Size)
	}
}

func TestGetCuesMissing(t *testing.T) {
	data := el(SegmentID, el(InfoID, uintEl(TimestampScaleID, 1000000)))
	segment, err := NewSegment(bytes.NewReader(data))
	require.NoError(t, err)

	cues, err := GetCues(segment)
	require.NoError(t, err)
	require.Empty(t, cues)
}

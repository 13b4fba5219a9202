package matroska

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luispater/matroska-tree-go/pkg/ebml"
)

func seekEntry(id uint32, position int) []byte {
	return el(SeekID,
		el(SeekIDID, ebml.PutUint(uint64(id), ebml.TagWidth(id))),
		el(SeekPositionID, ebml.PutUint(uint64(position), 8)),
	)
}

func testClusters(n int) []byte {
	var clusters []byte
	for i := 0; i < n; i++ {
		clusters = append(clusters, el(ClusterID,
			uintEl(TimestampID, uint64(i*1000)),
			el(SimpleBlockID, append([]byte{0x81, 0x00, 0x00, 0x80}, frame(64, byte(i))...)),
		)...)
	}
	return clusters
}

// indexedSegment lays out SeekHead, Info, 40 Clusters, Cues. The Cues entry
// of the SeekHead points at cuesTarget.
func indexedSegment(cuesTarget uint32) []byte {
	info := el(InfoID, uintEl(TimestampScaleID, 1000000), strEl(TitleID, "indexed"))
	clusters := testClusters(40)
	cues := el(CuesID, el(CuePointID,
		uintEl(CueTimeID, 0),
		el(CueTrackPositionsID, uintEl(CueTrackID, 1), el(CueClusterPositionID, ebml.PutUint(0, 8))),
	))

	headLen := len(el(SeekHeadID, seekEntry(InfoID, 0), seekEntry(CuesID, 0)))
	infoPos := headLen
	cuesPos := headLen + len(info) + len(clusters)
	if cuesTarget == InfoID {
		cuesPos = infoPos
	}
	head := el(SeekHeadID, seekEntry(InfoID, infoPos), seekEntry(CuesID, cuesPos))
	return el(SegmentID, head, info, clusters, cues)
}

func TestNewSegmentSkipsClusters(t *testing.T) {
	data := indexedSegment(CuesID)
	cr := &countingReadSeeker{r: bytes.NewReader(data)}

	segment, err := NewSegment(cr)
	require.NoError(t, err)
	require.True(t, segment.Indexed())

	pos, err := cr.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	require.Equal(t, segment.End(), pos)

	// Only the SeekHead was scanned.
	require.Len(t, segment.children, 1)
	require.Equal(t, uint32(SeekHeadID), segment.children[0].ID)

	position, ok := segment.SeekPosition(InfoID)
	require.True(t, ok)
	require.Equal(t, segment.children[0].End()-segment.DataOffset, position)
}

func TestGetChildFromSeekMatchesLinearScan(t *testing.T) {
	data := indexedSegment(CuesID)

	seekReader := &countingReadSeeker{r: bytes.NewReader(data)}
	indexed, err := NewSegment(seekReader)
	require.NoError(t, err)
	before := seekReader.reads
	viaSeek, err := indexed.GetChildFromSeek(CuesID)
	require.NoError(t, err)
	seekReads := seekReader.reads - before

	scanReader := &countingReadSeeker{r: bytes.NewReader(data)}
	linear, err := NewSegment(scanReader)
	require.NoError(t, err)
	before = scanReader.reads
	viaScan, err := linear.GetChild(CuesID)
	require.NoError(t, err)
	scanReads := scanReader.reads - before

	require.NotNil(t, viaSeek)
	require.NotNil(t, viaScan)
	require.Equal(t, viaScan.Header, viaSeek.Header)
	require.Less(t, seekReads, scanReads)

	// The seek path does not populate the segment's own cache.
	require.Len(t, indexed.children, 1)
}

func TestGetChildFromSeekWrongTarget(t *testing.T) {
	segment, err := NewSegment(bytes.NewReader(indexedSegment(InfoID)))
	require.NoError(t, err)

	cues, err := segment.GetChildFromSeek(CuesID)
	require.NoError(t, err)
	require.NotNil(t, cues)
	require.Equal(t, uint32(CuesID), cues.ID)
}

func TestNestedSeekHead(t *testing.T) {
	info := el(InfoID, uintEl(TimestampScaleID, 1000))
	tracks := el(TracksID, trackEntry(1, "A_OPUS"))

	firstLen := len(el(SeekHeadID, seekEntry(InfoID, 0), seekEntry(SeekHeadID, 0)))
	secondPos := firstLen + len(info)
	second := el(SeekHeadID, seekEntry(TracksID, secondPos+len(el(SeekHeadID, seekEntry(TracksID, 0)))))
	first := el(SeekHeadID, seekEntry(InfoID, firstLen), seekEntry(SeekHeadID, secondPos))
	data := el(SegmentID, first, info, second, tracks)

	segment, err := NewSegment(bytes.NewReader(data))
	require.NoError(t, err)

	_, ok := segment.SeekPosition(TracksID)
	require.True(t, ok)

	entries, err := ReadTracks(segment)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "A_OPUS", entries[0].CodecID)

	infoData, err := ReadInfo(segment)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), infoData.TimestampScale)
}

func TestSegmentWithoutSeekHead(t *testing.T) {
	data := el(SegmentID, el(InfoID, strEl(TitleID, "plain")), testClusters(2))
	segment, err := NewSegment(bytes.NewReader(data))
	require.NoError(t, err)
	require.False(t, segment.Indexed())

	info, err := ReadInfo(segment)
	require.NoError(t, err)
	require.Equal(t, "plain", info.Title)
	require.Equal(t, uint64(DefaultTimestampScale), info.TimestampScale)
	require.Equal(t, -1.0, info.Duration)

	clusters, err := segment.GetChildren(ClusterID)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	c, err := NewCluster(clusters[1])
	require.NoError(t, err)
	require.Equal(t, int64(1000), c.Timestamp)
}

func TestNotSegment(t *testing.T) {
	_, err := NewSegment(bytes.NewReader(el(InfoID)))
	require.ErrorIs(t, err, ErrNotSegment)
}

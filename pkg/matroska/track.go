package matroska

const (
	TrackTypeVideo    = 1
	TrackTypeAudio    = 2
	TrackTypeSubtitle = 17
)

const DefaultTimestampScale = 1000000

// ContentCompAlgo values.
const (
	CompressionZlib            = 0
	CompressionBzlib           = 1
	CompressionLZO             = 2
	CompressionHeaderStripping = 3
)

// Info is the subset of Segment Info the demuxer needs.
type Info struct {
	TimestampScale uint64
	Duration       float64
	Title          string
	MuxingApp      string
	WritingApp     string
	SegmentUID     []byte
}

// ReadInfo loads the Info element of s. Missing fields keep their Matroska
// defaults, and a missing Duration is -1.
func ReadInfo(s *Segment) (*Info, error) {
	info := &Info{TimestampScale: DefaultTimestampScale, Duration: -1}

	node, err := s.GetChildFromSeek(InfoID)
	if err != nil || node == nil {
		return info, err
	}

	scale, err := node.GetChildValue(TimestampScaleID)
	if err != nil {
		return nil, err
	}
	if scale > 0 {
		info.TimestampScale = uint64(scale)
	}
	if info.Duration, err = node.GetChildFloatBE(DurationID); err != nil {
		return nil, err
	}
	if info.Title, err = node.GetChildUTF8(TitleID); err != nil {
		return nil, err
	}
	if info.MuxingApp, err = node.GetChildUTF8(MuxingAppID); err != nil {
		return nil, err
	}
	if info.WritingApp, err = node.GetChildUTF8(WritingAppID); err != nil {
		return nil, err
	}
	if info.SegmentUID, err = node.GetChildBytes(SegmentUIDID); err != nil {
		return nil, err
	}
	return info, nil
}

type AudioInfo struct {
	SamplingFrequency float64
	Channels          uint64
	BitDepth          uint64
}

type VideoInfo struct {
	PixelWidth  uint64
	PixelHeight uint64
}

// Compression is the ContentCompression of a track. With header stripping,
// Settings holds the bytes removed from the front of every frame; the
// demuxer puts them back, so packets always carry whole frames.
type Compression struct {
	Algo     uint64
	Settings []byte
}

// HeaderStripping reports whether frames of the track were stored without
// their common prefix.
func (c *Compression) HeaderStripping() bool {
	return c != nil && c.Algo == CompressionHeaderStripping
}

// Track is one TrackEntry plus the read cursors a demux loop keeps for it.
// LastCluster and LastBlock are owned by that loop; nothing else in this
// package changes them.
type Track struct {
	Number          uint64
	UID             uint64
	Type            uint64
	Name            string
	Language        string
	CodecID         string
	CodecPrivate    []byte
	DefaultDuration uint64
	Audio           *AudioInfo
	Video           *VideoInfo
	Compression     *Compression

	LastCluster int
	LastBlock   int
}

// ReadTracks loads every TrackEntry of s.
func ReadTracks(s *Segment) ([]*Track, error) {
	node, err := s.GetChildFromSeek(TracksID)
	if err != nil || node == nil {
		return nil, err
	}

	entries, err := node.GetChildren(TrackEntryID)
	if err != nil {
		return nil, err
	}

	tracks := make([]*Track, 0, len(entries))
	for _, entry := range entries {
		track, errTrack := readTrackEntry(entry)
		if errTrack != nil {
			return nil, errTrack
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func readTrackEntry(entry *Tree) (*Track, error) {
	track := &Track{Language: "eng"}

	var value int64
	var err error
	if value, err = entry.GetChildValue(TrackNumberID); err != nil {
		return nil, err
	}
	track.Number = nonNegative(value)
	if track.UID, err = entry.GetChildUint(TrackUIDID, 0); err != nil {
		return nil, err
	}
	if value, err = entry.GetChildValue(TrackTypeID); err != nil {
		return nil, err
	}
	track.Type = nonNegative(value)
	if value, err = entry.GetChildValue(DefaultDurationID); err != nil {
		return nil, err
	}
	track.DefaultDuration = nonNegative(value)

	if track.Name, err = entry.GetChildUTF8(NameID); err != nil {
		return nil, err
	}
	language, err := entry.GetChildUTF8(LanguageID)
	if err != nil {
		return nil, err
	}
	if language != "" {
		track.Language = language
	}
	if track.CodecID, err = entry.GetChildUTF8(CodecIDID); err != nil {
		return nil, err
	}
	if track.CodecPrivate, err = entry.GetChildBytes(CodecPrivateID); err != nil {
		return nil, err
	}

	audio, err := entry.GetChild(AudioID)
	if err != nil {
		return nil, err
	}
	if audio != nil {
		track.Audio = &AudioInfo{Channels: 1}
		if track.Audio.SamplingFrequency, err = audio.GetChildFloatBE(SamplingFrequencyID); err != nil {
			return nil, err
		}
		if track.Audio.SamplingFrequency < 0 {
			track.Audio.SamplingFrequency = 8000
		}
		if value, err = audio.GetChildValue(ChannelsID); err != nil {
			return nil, err
		}
		if value > 0 {
			track.Audio.Channels = uint64(value)
		}
		if value, err = audio.GetChildValue(BitDepthID); err != nil {
			return nil, err
		}
		track.Audio.BitDepth = nonNegative(value)
	}

	video, err := entry.GetChild(VideoID)
	if err != nil {
		return nil, err
	}
	if video != nil {
		track.Video = &VideoInfo{}
		if value, err = video.GetChildValue(PixelWidthID); err != nil {
			return nil, err
		}
		track.Video.PixelWidth = nonNegative(value)
		if value, err = video.GetChildValue(PixelHeightID); err != nil {
			return nil, err
		}
		track.Video.PixelHeight = nonNegative(value)
	}

	if track.Compression, err = readCompression(entry); err != nil {
		return nil, err
	}
	return track, nil
}

// readCompression reads the ContentCompression of the first ContentEncoding.
// Encryption-only encodings yield nil.
func readCompression(entry *Tree) (*Compression, error) {
	node, err := entry.GetChildByPath(ContentEncodingsID, ContentEncodingID, ContentCompressionID)
	if err != nil || node == nil {
		return nil, err
	}

	c := &Compression{}
	if c.Algo, err = node.GetChildUint(ContentCompAlgoID, CompressionZlib); err != nil {
		return nil, err
	}
	if c.Settings, err = node.GetChildBytes(ContentCompSettingsID); err != nil {
		return nil, err
	}
	return c, nil
}

func nonNegative(value int64) uint64 {
	if value < 0 {
		return 0
	}
	return uint64(value)
}

// writeTrackEntry emits t as a TrackEntry. A header-stripping Compression is
// dropped because the frames handed to the muxer are already whole; any other
// algorithm is kept so the still-compressed frames stay decodable.
func writeTrackEntry(tw *TreeWriter, t *Track) error {
	if err := tw.OpenSequence(TrackEntryID, DefaultSequenceWidth); err != nil {
		return err
	}
	if err := tw.WriteUint(TrackNumberID, t.Number); err != nil {
		return err
	}
	if err := tw.WriteUint(TrackUIDID, t.UID); err != nil {
		return err
	}
	if err := tw.WriteUint(TrackTypeID, t.Type); err != nil {
		return err
	}
	if err := tw.WriteUint(FlagLacingID, 0); err != nil {
		return err
	}
	if t.DefaultDuration > 0 {
		if err := tw.WriteUint(DefaultDurationID, t.DefaultDuration); err != nil {
			return err
		}
	}
	if t.Name != "" {
		if err := tw.WriteString(NameID, t.Name); err != nil {
			return err
		}
	}
	if t.Language != "" {
		if err := tw.WriteString(LanguageID, t.Language); err != nil {
			return err
		}
	}
	if err := tw.WriteString(CodecIDID, t.CodecID); err != nil {
		return err
	}
	if len(t.CodecPrivate) > 0 {
		if err := tw.WriteBytes(CodecPrivateID, t.CodecPrivate); err != nil {
			return err
		}
	}

	if t.Audio != nil {
		if err := tw.OpenSequence(AudioID, DefaultSequenceWidth); err != nil {
			return err
		}
		if err := tw.WriteFloat(SamplingFrequencyID, t.Audio.SamplingFrequency); err != nil {
			return err
		}
		if err := tw.WriteUint(ChannelsID, t.Audio.Channels); err != nil {
			return err
		}
		if t.Audio.BitDepth > 0 {
			if err := tw.WriteUint(BitDepthID, t.Audio.BitDepth); err != nil {
				return err
			}
		}
		if err := tw.CloseSequence(); err != nil {
			return err
		}
	}

	if t.Video != nil {
		if err := tw.OpenSequence(VideoID, DefaultSequenceWidth); err != nil {
			return err
		}
		if err := tw.WriteUint(PixelWidthID, t.Video.PixelWidth); err != nil {
			return err
		}
		if err := tw.WriteUint(PixelHeightID, t.Video.PixelHeight); err != nil {
			return err
		}
		if err := tw.CloseSequence(); err != nil {
			return err
		}
	}

	if t.Compression != nil && !t.Compression.HeaderStripping() {
		if err := writeCompression(tw, t.Compression); err != nil {
			return err
		}
	}

	return tw.CloseSequence()
}

func writeCompression(tw *TreeWriter, c *Compression) error {
	for _, id := range []uint32{ContentEncodingsID, ContentEncodingID, ContentCompressionID} {
		if err := tw.OpenSequence(id, DefaultSequenceWidth); err != nil {
			return err
		}
	}
	if err := tw.WriteUint(ContentCompAlgoID, c.Algo); err != nil {
		return err
	}
	if len(c.Settings) > 0 {
		if err := tw.WriteBytes(ContentCompSettingsID, c.Settings); err != nil {
			return err
		}
	}
	for i := 0; i < 3; i++ {
		if err := tw.CloseSequence(); err != nil {
			return err
		}
	}
	return nil
}

package matroska

import (
	"fmt"
	"sort"
)

const (
	EBMLHeaderID         = 0x1A45DFA3
	EBMLVersionID        = 0x4286
	EBMLReadVersionID    = 0x42F7
	EBMLMaxIDLengthID    = 0x42F2
	EBMLMaxSizeLengthID  = 0x42F3
	DocTypeID            = 0x4282
	DocTypeVersionID     = 0x4287
	DocTypeReadVersionID = 0x4285
	VoidID               = 0xEC
	CRC32ID              = 0xBF

	SegmentID     = 0x18538067
	SeekHeadID    = 0x114D9B74
	InfoID        = 0x1549A966
	TracksID      = 0x1654AE6B
	CuesID        = 0x1C53BB6B
	AttachmentsID = 0x1941A469
	ChaptersID    = 0x1043A770
	TagsID        = 0x1254C367
	ClusterID     = 0x1F43B675

	SeekID         = 0x4DBB
	SeekIDID       = 0x53AB
	SeekPositionID = 0x53AC

	TimestampScaleID   = 0x2AD7B1
	DurationID         = 0x4489
	ChapterTranslateID = 0x6924
	TitleID            = 0x7BA9
	MuxingAppID        = 0x4D80
	WritingAppID       = 0x5741
	SegmentUIDID       = 0x73A4

	TrackEntryID          = 0xAE
	TrackNumberID         = 0xD7
	TrackUIDID            = 0x73C5
	TrackTypeID           = 0x83
	FlagLacingID          = 0x9C
	DefaultDurationID     = 0x23E383
	NameID                = 0x536E
	LanguageID            = 0x22B59C
	CodecIDID             = 0x86
	CodecPrivateID        = 0x63A2
	VideoID               = 0xE0
	PixelWidthID          = 0xB0
	PixelHeightID         = 0xBA
	AudioID               = 0xE1
	SamplingFrequencyID   = 0xB5
	ChannelsID            = 0x9F
	BitDepthID            = 0x6264
	ContentEncodingsID    = 0x6D80
	ContentEncodingID     = 0x6240
	ContentCompressionID  = 0x5034
	ContentCompAlgoID     = 0x4254
	ContentCompSettingsID = 0x4255

	TimestampID      = 0xE7
	PositionID       = 0xA7
	PrevSizeID       = 0xAB
	SimpleBlockID    = 0xA3
	BlockGroupID     = 0xA0
	BlockID          = 0xA1
	BlockDurationID  = 0x9B
	ReferenceBlockID = 0xFB
	BlockAdditionsID = 0x75A1
	BlockMoreID      = 0xA6
	SlicesID         = 0x8E
	TimeSliceID      = 0xE8

	CuePointID           = 0xBB
	CueTimeID            = 0xB3
	CueTrackPositionsID  = 0xB7
	CueTrackID           = 0xF7
	CueClusterPositionID = 0xF1
	CueReferenceID       = 0xDB

	AttachedFileID      = 0x61A7
	EditionEntryID      = 0x45B9
	ChapterAtomID       = 0xB6
	ChapterDisplayID    = 0x80
	TagID               = 0x7373
	TargetsID           = 0x63C0
	SimpleTagID         = 0x67C8
	ColourID            = 0x55B0
	MasteringMetadataID = 0x55D0
)

// containerIDs lists the master elements whose payload is a sequence of
// child elements. It must stay sorted ascending: IsContainer binary-searches it.
var containerIDs = []uint32{
	ChapterDisplayID,
	SlicesID,
	BlockGroupID,
	BlockMoreID,
	TrackEntryID,
	ChapterAtomID,
	CueTrackPositionsID,
	CuePointID,
	CueReferenceID,
	VideoID,
	AudioID,
	TimeSliceID,
	EditionEntryID,
	SeekID,
	ContentCompressionID,
	ColourID,
	MasteringMetadataID,
	AttachedFileID,
	ContentEncodingID,
	TargetsID,
	SimpleTagID,
	ChapterTranslateID,
	ContentEncodingsID,
	TagID,
	BlockAdditionsID,
	ChaptersID,
	SeekHeadID,
	TagsID,
	InfoID,
	TracksID,
	SegmentID,
	AttachmentsID,
	EBMLHeaderID,
	CuesID,
	ClusterID,
}

// IsContainer reports whether elements with this id hold children rather
// than an opaque payload.
func IsContainer(id uint32) bool {
	i := sort.Search(len(containerIDs), func(i int) bool { return containerIDs[i] >= id })
	return i < len(containerIDs) && containerIDs[i] == id
}

var elementNames = map[uint32]string{
	EBMLHeaderID:         "EBML",
	EBMLVersionID:        "EBMLVersion",
	EBMLReadVersionID:    "EBMLReadVersion",
	EBMLMaxIDLengthID:    "EBMLMaxIDLength",
	EBMLMaxSizeLengthID:  "EBMLMaxSizeLength",
	DocTypeID:            "DocType",
	DocTypeVersionID:     "DocTypeVersion",
	DocTypeReadVersionID: "DocTypeReadVersion",
	VoidID:               "Void",
	CRC32ID:              "CRC-32",

	SegmentID:     "Segment",
	SeekHeadID:    "SeekHead",
	InfoID:        "Info",
	TracksID:      "Tracks",
	CuesID:        "Cues",
	AttachmentsID: "Attachments",
	ChaptersID:    "Chapters",
	TagsID:        "Tags",
	ClusterID:     "Cluster",

	SeekID:         "Seek",
	SeekIDID:       "SeekID",
	SeekPositionID: "SeekPosition",

	TimestampScaleID:   "TimestampScale",
	DurationID:         "Duration",
	ChapterTranslateID: "ChapterTranslate",
	TitleID:            "Title",
	MuxingAppID:        "MuxingApp",
	WritingAppID:       "WritingApp",
	SegmentUIDID:       "SegmentUID",

	TrackEntryID:          "TrackEntry",
	TrackNumberID:         "TrackNumber",
	TrackUIDID:            "TrackUID",
	TrackTypeID:           "TrackType",
	FlagLacingID:          "FlagLacing",
	DefaultDurationID:     "DefaultDuration",
	NameID:                "Name",
	LanguageID:            "Language",
	CodecIDID:             "CodecID",
	CodecPrivateID:        "CodecPrivate",
	VideoID:               "Video",
	PixelWidthID:          "PixelWidth",
	PixelHeightID:         "PixelHeight",
	AudioID:               "Audio",
	SamplingFrequencyID:   "SamplingFrequency",
	ChannelsID:            "Channels",
	BitDepthID:            "BitDepth",
	ContentEncodingsID:    "ContentEncodings",
	ContentEncodingID:     "ContentEncoding",
	ContentCompressionID:  "ContentCompression",
	ContentCompAlgoID:     "ContentCompAlgo",
	ContentCompSettingsID: "ContentCompSettings",

	TimestampID:      "Timestamp",
	PositionID:       "Position",
	PrevSizeID:       "PrevSize",
	SimpleBlockID:    "SimpleBlock",
	BlockGroupID:     "BlockGroup",
	BlockID:          "Block",
	BlockDurationID:  "BlockDuration",
	ReferenceBlockID: "ReferenceBlock",
	BlockAdditionsID: "BlockAdditions",
	BlockMoreID:      "BlockMore",
	SlicesID:         "Slices",
	TimeSliceID:      "TimeSlice",

	CuePointID:           "CuePoint",
	CueTimeID:            "CueTime",
	CueTrackPositionsID:  "CueTrackPositions",
	CueTrackID:           "CueTrack",
	CueClusterPositionID: "CueClusterPosition",
	CueReferenceID:       "CueReference",

	AttachedFileID:      "AttachedFile",
	EditionEntryID:      "EditionEntry",
	ChapterAtomID:       "ChapterAtom",
	ChapterDisplayID:    "ChapterDisplay",
	TagID:               "Tag",
	TargetsID:           "Targets",
	SimpleTagID:         "SimpleTag",
	ColourID:            "Colour",
	MasteringMetadataID: "MasteringMetadata",
}

// ElementName returns the Matroska name of id, or its hex form when unknown.
func ElementName(id uint32) string {
	if name, ok := elementNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%X", id)
}

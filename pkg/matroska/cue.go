package matroska

// Cue is one seek table entry. Position is an absolute file offset.
type Cue struct {
	Time     uint64
	Track    uint64
	Position int64
}

// GetCues loads the seek table of s, in file order. A file without Cues
// yields an empty table.
func GetCues(s *Segment) ([]*Cue, error) {
	cues, err := s.GetChildFromSeek(CuesID)
	if err != nil || cues == nil {
		return nil, err
	}

	points, err := cues.GetChildren(CuePointID)
	if err != nil {
		return nil, err
	}

	table := make([]*Cue, 0, len(points))
	for _, point := range points {
		cueTime, errTime := point.GetChildValue(CueTimeID)
		if errTime != nil {
			return nil, errTime
		}
		positions, errPos := point.GetChild(CueTrackPositionsID)
		if errPos != nil {
			return nil, errPos
		}
		if cueTime < 0 || positions == nil {
			continue
		}

		track, errTrack := positions.GetChildValue(CueTrackID)
		if errTrack != nil {
			return nil, errTrack
		}
		cluster, errCluster := positions.GetChildValue(CueClusterPositionID)
		if errCluster != nil {
			return nil, errCluster
		}
		if track < 0 || cluster < 0 {
			continue
		}

		table = append(table, &Cue{
			Time:     uint64(cueTime),
			Track:    uint64(track),
			Position: s.DataOffset + cluster,
		})
	}
	return table, nil
}

// Find returns the last cue whose time does not exceed target, assuming
// cues is sorted by time. It returns nil when no cue qualifies.
func Find(cues []*Cue, target uint64) *Cue {
	if len(cues) == 0 || cues[0].Time > target {
		return nil
	}
	for i, cue := range cues {
		if cue.Time > target {
			return cues[i-1]
		}
	}
	return cues[len(cues)-1]
}

// Write emits c as a CuePoint. Position must already be relative to the
// segment payload, matching what GetCues expects to read back.
func (c *Cue) Write(tw *TreeWriter) error {
	if err := tw.OpenSequence(CuePointID, DefaultSequenceWidth); err != nil {
		return err
	}
	if err := tw.WriteUint(CueTimeID, c.Time); err != nil {
		return err
	}
	if err := tw.OpenSequence(CueTrackPositionsID, DefaultSequenceWidth); err != nil {
		return err
	}

	trackWidth := 1
	if c.Track >= 128 {
		trackWidth = 2
	}
	if err := tw.WriteFixedUint(CueTrackID, c.Track, trackWidth); err != nil {
		return err
	}
	if err := tw.WriteFixedUint(CueClusterPositionID, uint64(c.Position), 8); err != nil {
		return err
	}

	if err := tw.CloseSequence(); err != nil {
		return err
	}
	return tw.CloseSequence()
}

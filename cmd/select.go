package main

import (
	"strings"

	"github.com/luispater/matroska-tree-go/pkg/languages"
	"github.com/luispater/matroska-tree-go/pkg/matroska"
)

// selectTrack picks the track to extract when only a language is given.
// Tracks of that language are preferred, then non-SDH subtitle tracks, then
// the first candidate.
func selectTrack(tracks []*matroska.Track, language string) *matroska.Track {
	var candidates []*matroska.Track
	for _, t := range tracks {
		if languages.Matches(t.Language, language) {
			candidates = append(candidates, t)
		}
	}

	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	// Prefer non-SDH tracks
	for _, t := range candidates {
		if !isSDHTrack(t.Name) {
			return t
		}
	}
	return candidates[0]
}

// isSDHTrack checks if a track is marked as SDH (Subtitles for the Deaf and Hard of hearing)
func isSDHTrack(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "sdh") ||
		strings.Contains(name, "deaf") ||
		strings.Contains(name, "hard of hearing") ||
		strings.Contains(name, "closed caption")
}

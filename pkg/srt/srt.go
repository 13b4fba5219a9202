// Package srt writes text subtitle tracks as SubRip files.
package srt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// OpenEndedDuration is how long a subtitle without a duration stays up when
// no later subtitle ends it.
const OpenEndedDuration = 2 * time.Second

// Subtitle represents a single subtitle entry
type Subtitle struct {
	Index   int
	Start   time.Duration
	End     time.Duration
	Content string
}

// Writer numbers subtitles and writes them in SubRip form. A subtitle added
// without a duration is held until the next one, whose start ends it.
type Writer struct {
	w       *bufio.Writer
	index   int
	pending *Subtitle
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Add queues text shown from start for duration. A negative duration leaves
// the end open.
func (sw *Writer) Add(start, duration time.Duration, text string) error {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	if err := sw.release(start); err != nil {
		return err
	}

	sw.index++
	sub := &Subtitle{Index: sw.index, Start: start, End: -1, Content: text}
	if duration >= 0 {
		sub.End = start + duration
		return sw.write(sub)
	}
	sw.pending = sub
	return nil
}

// release writes the open-ended subtitle, ending it at next.
func (sw *Writer) release(next time.Duration) error {
	if sw.pending == nil {
		return nil
	}
	sub := sw.pending
	sw.pending = nil
	sub.End = next
	if limit := sub.Start + OpenEndedDuration; next < sub.Start || next > limit {
		sub.End = limit
	}
	return sw.write(sub)
}

func (sw *Writer) write(sub *Subtitle) error {
	if sub.Index > 1 {
		if _, err := sw.w.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err := sw.w.WriteString(Format(*sub))
	return err
}

// Count returns the number of subtitles added so far.
func (sw *Writer) Count() int {
	return sw.index
}

// Flush writes any held subtitle and flushes the underlying writer.
func (sw *Writer) Flush() error {
	if sw.pending != nil {
		if err := sw.release(sw.pending.Start + OpenEndedDuration); err != nil {
			return err
		}
	}
	return sw.w.Flush()
}

// Format renders one SubRip block
func Format(sub Subtitle) string {
	return fmt.Sprintf("%d\n%s --> %s\n%s\n",
		sub.Index,
		formatDuration(sub.Start),
		formatDuration(sub.End),
		sub.Content,
	)
}

// formatDuration formats duration to SRT format "00:00:00,000"
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalMillis := int64(d / time.Millisecond)
	hours := totalMillis / 3600000
	minutes := (totalMillis % 3600000) / 60000
	seconds := (totalMillis % 60000) / 1000
	millis := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

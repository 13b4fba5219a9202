package srt

import (
	"bytes"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{1500 * time.Millisecond, "00:00:01,500"},
		{time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond, "01:02:03,004"},
		{-time.Second, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	steps := []struct {
		start, duration time.Duration
		text            string
	}{
		{time.Second, 3 * time.Second, "Hello world!"},
		{5 * time.Second, -1, "Open ended"},
		{6 * time.Second, time.Second, "Ends the previous one"},
		{7 * time.Second, 0, "   "},
		{20 * time.Second, -1, "Multiple lines\r\nof text here."},
	}
	for _, s := range steps {
		if err := w.Add(s.start, s.duration, s.text); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	expected := `1
00:00:01,000 --> 00:00:04,000
Hello world!

2
00:00:05,000 --> 00:00:06,000
Open ended

3
00:00:06,000 --> 00:00:07,000
Ends the previous one

4
00:00:20,000 --> 00:00:22,000
Multiple lines
of text here.
`
	if buf.String() != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, buf.String())
	}
	if w.Count() != 4 {
		t.Errorf("Expected 4 subtitles, got %d", w.Count())
	}
}

func TestOpenEndedCappedByNextStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Add(0, -1, "a"); err != nil {
		t.Fatal(err)
	}
	if err := w.Add(10*time.Second, time.Second, "b"); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	want := "1\n00:00:00,000 --> 00:00:02,000\na\n\n2\n00:00:10,000 --> 00:00:11,000\nb\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

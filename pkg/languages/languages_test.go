package languages

import "testing"

func TestCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"eng", "eng", true},
		{"en", "eng", true},
		{"English", "eng", true},
		{"deu", "ger", true},
		{"Deutsch", "ger", true},
		{" fr ", "fre", true},
		{"und", "und", true},
		{"klingon", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Code(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Code(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestName(t *testing.T) {
	if got := Name("jpn"); got != "Japanese" {
		t.Errorf("Name(jpn) = %q", got)
	}
	if got := Name("zho"); got != "Chinese" {
		t.Errorf("Name(zho) = %q", got)
	}
	if got := Name("xyz"); got != "xyz" {
		t.Errorf("Name(xyz) = %q", got)
	}
}

func TestMatches(t *testing.T) {
	if !Matches("ger", "de") {
		t.Error("ger should match de")
	}
	if Matches("eng", "fre") {
		t.Error("eng should not match fre")
	}
	if Matches("xyz", "xyz") {
		t.Error("unknown codes should not match")
	}
}

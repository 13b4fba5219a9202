// Package languages maps the ISO 639-2 codes Matroska stores in a track's
// Language element to names, and names or two-letter codes back to them.
package languages

import "strings"

type language struct {
	code  string // ISO 639-2/B, as written by muxers
	short string // ISO 639-1
	name  string
}

var table = []language{
	// Major World Languages
	{"ara", "ar", "Arabic"},
	{"chi", "zh", "Chinese"},
	{"eng", "en", "English"},
	{"fre", "fr", "French"},
	{"ger", "de", "German"},
	{"hin", "hi", "Hindi"},
	{"ita", "it", "Italian"},
	{"jpn", "ja", "Japanese"},
	{"kor", "ko", "Korean"},
	{"por", "pt", "Portuguese"},
	{"rus", "ru", "Russian"},
	{"spa", "es", "Spanish"},

	// European Languages
	{"cze", "cs", "Czech"},
	{"dan", "da", "Danish"},
	{"dut", "nl", "Dutch"},
	{"fin", "fi", "Finnish"},
	{"gre", "el", "Greek"},
	{"hun", "hu", "Hungarian"},
	{"nor", "no", "Norwegian"},
	{"pol", "pl", "Polish"},
	{"rum", "ro", "Romanian"},
	{"swe", "sv", "Swedish"},
	{"tur", "tr", "Turkish"},
	{"ukr", "uk", "Ukrainian"},

	// Asian Languages
	{"ind", "id", "Indonesian"},
	{"may", "ms", "Malay"},
	{"tha", "th", "Thai"},
	{"vie", "vi", "Vietnamese"},
	{"heb", "he", "Hebrew"},
	{"per", "fa", "Persian"},

	{"und", "", "Undetermined"},
}

// ISO 639-2/T codes some muxers write instead of the bibliographic ones
var terminology = map[string]string{
	"zho": "chi",
	"fra": "fre",
	"deu": "ger",
	"ces": "cze",
	"nld": "dut",
	"ell": "gre",
	"ron": "rum",
	"msa": "may",
	"fas": "per",
}

// native names accepted by Code
var native = map[string]string{
	"español":   "spa",
	"français":  "fre",
	"deutsch":   "ger",
	"italiano":  "ita",
	"português": "por",
	"русский":   "rus",
	"日本語":       "jpn",
	"한국어":       "kor",
	"中文":        "chi",
	"العربية":   "ara",
	"हिन्दी":    "hin",
}

// Code resolves a language name, a two-letter code or a three-letter code
// to the ISO 639-2/B code Matroska uses.
func Code(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if code, ok := terminology[value]; ok {
		return code, true
	}
	if code, ok := native[value]; ok {
		return code, true
	}
	for _, l := range table {
		if value == l.code || value == strings.ToLower(l.name) || (l.short != "" && value == l.short) {
			return l.code, true
		}
	}
	return "", false
}

// Name returns the English name for a track language code, or the code
// itself when it is unknown.
func Name(code string) string {
	if resolved, ok := Code(code); ok {
		code = resolved
	}
	for _, l := range table {
		if l.code == code {
			return l.name
		}
	}
	return code
}

// Matches reports whether a track's Language element names want, which may
// be given in any form Code accepts.
func Matches(trackLanguage, want string) bool {
	a, okA := Code(trackLanguage)
	b, okB := Code(want)
	return okA && okB && a == b
}

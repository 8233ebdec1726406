// Package metadata resolves and normalizes the (title, artist) pair that
// names every artifact of a run.
package metadata

import (
	"regexp"
	"strings"

	"recpub/internal/textutil"
)

// Metadata is the validated (title, artist) pair for one run.
type Metadata struct {
	// Title is the raw title as supplied by the user or the title file.
	Title string
	// NormalizedTitle is Title with a leading date token rewritten to the
	// compact YYYYMMDD form when present.
	NormalizedTitle string
	// Artist attributes the recording.
	Artist string
}

// New builds Metadata from a raw title and artist, applying date
// normalization.
func New(title, artist string) Metadata {
	title = strings.TrimSpace(title)
	return Metadata{
		Title:           title,
		NormalizedTitle: NormalizeLeadingDate(title),
		Artist:          strings.TrimSpace(artist),
	}
}

// Valid reports whether both fields are non-empty, the invariant required
// before a run may proceed.
func (m Metadata) Valid() bool {
	return strings.TrimSpace(m.Title) != "" && strings.TrimSpace(m.Artist) != ""
}

// SafeTitle returns the sanitized normalized title suitable for filenames.
func (m Metadata) SafeTitle() string {
	return textutil.SanitizeFileName(m.NormalizedTitle)
}

var (
	leadingDateSeparated = regexp.MustCompile(`^\s*(\d{4})[-/\s\\]+(\d{1,2})[-/\s\\]+(\d{1,2})(\s.*|$)`)
	leadingDateToken     = regexp.MustCompile(`^\s*(\d{8}|\d{4}[-/\s\\]?\d{2}[-/\s\\]?\d{2})`)
)

// NormalizeLeadingDate rewrites a leading YYYY<sep>MM<sep>DD token
// (separators: dash, slash, space, or backslash) to the compact YYYYMMDD
// form. Month and day are zero-padded. Titles without a leading date are
// returned unchanged.
func NormalizeLeadingDate(title string) string {
	m := leadingDateSeparated.FindStringSubmatch(title)
	if m == nil {
		return title
	}
	year, month, day, rest := m[1], m[2], m[3], m[4]
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return year + month + day + rest
}

// HasLeadingDateToken reports whether the title already starts with a date
// token, compact or separated.
func HasLeadingDateToken(title string) bool {
	return leadingDateToken.MatchString(title)
}

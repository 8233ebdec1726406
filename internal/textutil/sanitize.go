package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer maps filesystem-illegal characters to spaces so that
// sanitized names keep their word boundaries.
var fileNameReplacer = strings.NewReplacer(
	"<", " ",
	">", " ",
	":", " ",
	"\"", " ",
	"/", " ",
	"\\", " ",
	"|", " ",
	"?", " ",
	"*", " ",
)

// SanitizeFileName replaces filesystem-illegal characters with spaces and
// collapses runs of whitespace into single spaces. Input is normalized to
// NFC first so composed and decomposed titles sanitize identically.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	name = fileNameReplacer.Replace(name)
	return CollapseWhitespace(name)
}

// CollapseWhitespace trims the string and collapses interior whitespace
// runs into single spaces.
func CollapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

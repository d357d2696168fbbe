package scribe

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// invalidFilenameChars matches characters that are invalid or problematic in
// file names, plus whitespace runs. Unicode word characters (including CJK)
// are preserved.
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\s]+`)

// Slugify converts a job title into a safe transcript file name. Non-ASCII
// characters are kept; only filename-hostile characters and whitespace are
// replaced with underscores.
func Slugify(text string) string {
	text = norm.NFC.String(text)
	text = invalidFilenameChars.ReplaceAllString(text, "_")
	return strings.Trim(text, "_")
}

package analytics

import (
	"regexp"
	"strings"
)

// Normalization regexes: volatile fragments are replaced with stable tokens
// so that grouping survives dates, ids, numbers, and paths.
var (
	isoTimestampRe = regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}[T ]?\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)
	dateRe         = regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}`)
	guidRe         = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	pathRe         = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[\\/][\w.\-]+){2,}`)
	numberRe       = regexp.MustCompile(`\b\d+\b`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// NormalizeMessage strips dates, GUIDs, paths, and numbers so that messages
// differing only in those fragments group together.
func NormalizeMessage(msg string) string {
	out := isoTimestampRe.ReplaceAllString(msg, "<ts>")
	out = dateRe.ReplaceAllString(out, "<date>")
	out = guidRe.ReplaceAllString(out, "<guid>")
	out = pathRe.ReplaceAllString(out, "<path>")
	out = numberRe.ReplaceAllString(out, "<n>")
	out = spaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// meaningfulTokens returns up to n tokens longer than three characters that
// are not numeric placeholders.
func meaningfulTokens(msg string, n int) []string {
	var out []string
	for _, tok := range strings.Fields(NormalizeMessage(msg)) {
		tok = strings.Trim(tok, ".,:;!?()[]{}'\"")
		if len(tok) <= 3 || strings.HasPrefix(tok, "<") {
			continue
		}
		out = append(out, strings.ToLower(tok))
		if len(out) == n {
			break
		}
	}
	return out
}

package reconcile

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	bracketedYear = regexp.MustCompile(`[\(\[\{]\d{4}[\)\]\}]`)
	episodeMarker = regexp.MustCompile(`\b[Ss]\d{1,2}[Ee]\d{1,2}\b`)
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "at": {}, "by": {}, "for": {}, "with": {},
}

// CleanTitle normalizes a title for comparison. Punctuation is removed, not
// replaced, so "The.Matrix" becomes "thematrix".
func CleanTitle(title string) string {
	title = norm.NFKC.String(title)
	title = bracketedYear.ReplaceAllString(title, "")
	title = episodeMarker.ReplaceAllString(title, "")

	title = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, title)

	words := strings.Fields(strings.ToLower(title))
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			kept = append(kept, w)
		}
	}

	return strings.Join(kept, " ")
}

// TitleMatch reports whether a history title and a queue title refer to the same item.
// Titles that clean down to nothing never match.
func TitleMatch(historyTitle, queueTitle string) bool {
	if historyTitle == "" || queueTitle == "" {
		return false
	}

	a, b := CleanTitle(historyTitle), CleanTitle(queueTitle)
	if a == "" || b == "" {
		return false
	}

	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}

	aWords := wordSet(a)
	bWords := wordSet(b)

	common := 0
	for w := range aWords {
		if _, ok := bWords[w]; ok {
			common++
		}
	}

	return float64(common)/float64(max(len(aWords), len(bWords))) > 0.5
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

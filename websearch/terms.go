package websearch

import (
	"regexp"
	"strings"

	"kurogo/nlp"
)

const maxTerms = 5

// Go's \b is ASCII only, so the boundaries are spelled out to work next
// to accented letters.
var questionWordRegex = regexp.MustCompile(
	`(?i)(^|[^\p{L}\p{N}_])(o que é|como|quando|onde|por que|quem|qual|me fale sobre|pesquise|busque)([^\p{L}\p{N}_]|$)`)

var spaceRegex = regexp.MustCompile(`\s+`)

// SearchTerms turns a question into engine search terms: question words
// are removed, at most five content tokens are kept when more than two
// remain, and a modifier is appended for definition, how-to and date
// questions.
func SearchTerms(question string) string {
	terms := question
	for {
		next := questionWordRegex.ReplaceAllString(terms, "$1$3")
		if next == terms {
			break
		}
		terms = next
	}
	terms = strings.TrimSpace(spaceRegex.ReplaceAllString(terms, " "))

	if tokens := nlp.Tokenize(nlp.Normalize(terms)); len(tokens) > 2 {
		terms = strings.Join(tokens[:min(len(tokens), maxTerms)], " ")
	}

	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "definição") || strings.Contains(lower, "o que é"):
		terms += " definição"
	case strings.Contains(lower, "como"):
		terms += " tutorial"
	case strings.Contains(lower, "quando") || strings.Contains(lower, "data"):
		terms += " data"
	}
	return strings.TrimSpace(terms)
}

// Package nlp holds the text primitives shared by the knowledge engine and
// the classifier: accent folding, tokenization, Portuguese stemming and a
// handful of regex entity heuristics.
package nlp

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	spaceRegex   = regexp.MustCompile(`\s+`)
)

// FoldAccents strips combining marks, so "ação" becomes "acao".
func FoldAccents(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// Normalize folds accents, lowercases, turns punctuation into single spaces
// and trims the result.
func Normalize(text string) string {
	text = strings.ToLower(FoldAccents(text))
	text = nonWordRegex.ReplaceAllString(text, " ")
	text = spaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// NormalizeKey is the store key form of a question: lowercased, trimmed and
// without trailing '?', '!' or '.'. Accents are kept.
func NormalizeKey(question string) string {
	key := strings.TrimSpace(strings.ToLower(question))
	key = strings.TrimRight(key, "?!.")
	return strings.TrimSpace(key)
}

// Tokenize splits normalized text on whitespace and drops stopwords and
// single-character tokens. The result is never nil.
func Tokenize(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 1 || IsStopword(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Words returns the whitespace-separated words of s as a set.
func Words(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Overlap is |A ∩ B| / max(|A|, |B|, 1) over the distinct elements of a and b.
func Overlap(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, x := range a {
		setA[x] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, x := range b {
		setB[x] = struct{}{}
	}
	shared := 0
	for x := range setA {
		if _, ok := setB[x]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(setA), len(setB), 1))
}

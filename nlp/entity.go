package nlp

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EntityKind tags an extracted entity. The string values are the ones the
// knowledge file has always stored.
type EntityKind string

const (
	EntityDate EntityKind = "DATA"
	EntityTime EntityKind = "HORA"
	EntityName EntityKind = "NOME"
)

type Entity struct {
	Kind  EntityKind
	Value string
}

var (
	dateRegex = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	timeRegex = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)
)

const nameTrim = ".,;:!?()\"'"

// ExtractEntities finds dates, times and capitalized non-stopword tokens in
// the raw text. Duplicates are dropped; order follows kind then appearance.
func ExtractEntities(text string) []Entity {
	var out []Entity
	seen := map[Entity]struct{}{}
	add := func(e Entity) {
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	for _, m := range dateRegex.FindAllString(text, -1) {
		add(Entity{Kind: EntityDate, Value: m})
	}
	for _, m := range timeRegex.FindAllString(text, -1) {
		add(Entity{Kind: EntityTime, Value: m})
	}
	for _, field := range strings.Fields(text) {
		word := strings.Trim(field, nameTrim)
		r, _ := utf8.DecodeRuneInString(word)
		if word == "" || !unicode.IsUpper(r) {
			continue
		}
		if IsStopword(strings.ToLower(word)) || IsStopword(Normalize(word)) {
			continue
		}
		add(Entity{Kind: EntityName, Value: word})
	}
	return out
}

// SharedEntities counts pairs with the same kind and a case-insensitively
// equal value.
func SharedEntities(a, b []Entity) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if x.Kind == y.Kind && strings.EqualFold(x.Value, y.Value) {
				n++
			}
		}
	}
	return n
}

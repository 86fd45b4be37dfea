package knowledge

import (
	"regexp"
	"sort"
	"strings"
)

var punctRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// reformulations swap one question opener for an equivalent one. Each pair
// is applied in both directions, prefix only, at most once.
var reformulations = [][2]string{
	{"o que é", "definição de"},
	{"quem é", "me fale sobre"},
	{"como", "qual a forma de"},
	{"quando", "em que momento"},
}

// AlternatePhrasings returns q, q without punctuation, q with a trailing
// '?' and the opener swaps, deduplicated and sorted.
func AlternatePhrasings(q string) []string {
	set := map[string]struct{}{q: {}}

	if clean := strings.TrimSpace(punctRegex.ReplaceAllString(q, "")); clean != "" {
		set[clean] = struct{}{}
	}
	if !strings.HasSuffix(q, "?") {
		set[q+"?"] = struct{}{}
	}
	for _, pair := range reformulations {
		for _, dir := range [][2]string{{pair[0], pair[1]}, {pair[1], pair[0]}} {
			if strings.HasPrefix(q, dir[0]) {
				set[dir[1]+strings.TrimPrefix(q, dir[0])] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

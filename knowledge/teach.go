package knowledge

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	teachKeywordRegex = regexp.MustCompile(`(?i)aprenda (que|isso)`)
	teachIsRegex      = regexp.MustCompile(`(?i)aprenda que (.+?) é (.+)`)
	teachArrowRegex   = regexp.MustCompile(`(?i)aprenda isso:? (.+?) ?-> ?(.+)`)
)

// Teaching is a parsed teach command.
type Teaching struct {
	Question string
	Answer   string
}

// ParseTeach recognizes "aprenda que X é Y" and "aprenda isso: X -> Y".
// It returns ErrNotTeach when text has no teach keyword and ErrParse when
// the keyword is there but neither form matches. The original casing of X
// and Y is kept.
func ParseTeach(text string) (Teaching, error) {
	if !teachKeywordRegex.MatchString(text) {
		return Teaching{}, ErrNotTeach
	}
	for _, re := range []*regexp.Regexp{teachIsRegex, teachArrowRegex} {
		if m := re.FindStringSubmatch(text); m != nil {
			t := Teaching{Question: strings.TrimSpace(m[1]), Answer: strings.TrimSpace(m[2])}
			if t.Question != "" && t.Answer != "" {
				return t, nil
			}
		}
	}
	return Teaching{}, fmt.Errorf("%w: use \"aprenda que X é Y\" or \"aprenda isso: X -> Y\"", ErrParse)
}

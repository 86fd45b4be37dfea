package knowledge

import (
	"errors"
	"time"

	"kurogo/nlp"
)

var (
	ErrNotFound           = errors.New("knowledge: no answer found")
	ErrIO                 = errors.New("knowledge: storage failure")
	ErrNetwork            = errors.New("knowledge: network failure")
	ErrParse              = errors.New("knowledge: could not parse teach command")
	ErrNotTeach           = errors.New("knowledge: not a teach command")
	ErrUndertrained       = errors.New("knowledge: classifier could not be trained")
	ErrClassifierDisabled = errors.New("knowledge: classifier disabled")
	ErrEmptyQuestion      = errors.New("knowledge: empty question")
)

// SourceUser marks facts taught directly. Web facts use WebSource.
const SourceUser = "usuário"

func WebSource(engine string) string { return "web:" + engine }

// Fact is a canonical knowledge record.
type Fact struct {
	Answer     string
	Source     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	UseCount   int
	Category   string
	Tokens     []string
	Stems      []string
	Entities   []nlp.Entity
	Alternates []string
}

func (f *Fact) clone() *Fact {
	c := *f
	c.Tokens = append([]string(nil), f.Tokens...)
	c.Stems = append([]string(nil), f.Stems...)
	c.Entities = append([]nlp.Entity(nil), f.Entities...)
	c.Alternates = append([]string(nil), f.Alternates...)
	if f.Tokens != nil && c.Tokens == nil {
		c.Tokens = []string{}
	}
	if f.Stems != nil && c.Stems == nil {
		c.Stems = []string{}
	}
	return &c
}

// Alias is an alternate phrasing that resolves to the canonical key Of.
type Alias struct {
	Of string
}

// Entry is either a *Fact or an Alias.
type Entry interface {
	isEntry()
}

func (*Fact) isEntry() {}
func (Alias) isEntry() {}

// Record pairs a canonical key with its fact.
type Record struct {
	Key  string
	Fact Fact
}

type Strategy string

const (
	StrategyExact      Strategy = "exact"
	StrategyAlternate  Strategy = "alternate"
	StrategyClassifier Strategy = "classifier"
	StrategyLexical    Strategy = "lexical"
	StrategyEntity     Strategy = "entity"
	StrategyContext    Strategy = "context"
	StrategySubstring  Strategy = "substring"
)

// Result is a successful lookup. Key is the canonical key of the matched
// record, empty for context continuations. Confidence is set only by the
// classifier strategy.
type Result struct {
	Answer     string
	Key        string
	Strategy   Strategy
	Score      float64
	Confidence float64
}

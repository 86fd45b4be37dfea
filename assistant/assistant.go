// Package assistant routes a user utterance through the teach grammar,
// the knowledge engine and, when nothing is known, the web.
package assistant

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"kurogo/knowledge"
	"kurogo/websearch"
)

type Kind string

const (
	KindTaught        Kind = "taught"
	KindKnown         Kind = "known"
	KindWeb           Kind = "web"
	KindNotFound      Kind = "not_found"
	KindApology       Kind = "apology"
	KindNotUnderstood Kind = "not_understood"
)

const (
	MsgNotFound      = "I couldn't find specific information about that on the web. Could you rephrase your question?"
	MsgNoWeb         = "I don't know that yet. Teach me with \"aprenda que X é Y\"."
	MsgApology       = "Sorry, I couldn't reach the web right now. Please try again in a moment."
	MsgNotUnderstood = "Sorry, I didn't understand that."
	MsgBadTeach      = "I didn't understand the teach command. Use \"aprenda que X é Y\" or \"aprenda isso: X -> Y\"."
)

// queryPrefixes introduce a lookup of whatever follows them.
var queryPrefixes = []string{"o que é", "quem é", "me fale sobre", "definição de", "significado de"}

const minQuestionLen = 10

// Searcher is the web lookup, satisfied by *websearch.Client.
type Searcher interface {
	Search(ctx context.Context, question string) (websearch.Answer, error)
	Format(text string) string
}

type Reply struct {
	Text   string
	Kind   Kind
	Result knowledge.Result
}

type Assistant struct {
	engine *knowledge.Engine
	web    Searcher
	logger *zap.Logger
}

type Option func(*Assistant)

// WithWeb enables the web fallback. Without it unknown questions get a
// teach hint.
func WithWeb(s Searcher) Option {
	return func(a *Assistant) { a.web = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Assistant) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(engine *knowledge.Engine, opts ...Option) *Assistant {
	a := &Assistant{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle answers one utterance. Teach commands are stored; "o que é X"
// style openers and questions longer than ten characters are looked up
// with web fallback; anything else gets a plain lookup. The reply always
// carries text for the user.
func (a *Assistant) Handle(ctx context.Context, text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Text: MsgNotUnderstood, Kind: KindNotUnderstood}
	}

	t, err := knowledge.ParseTeach(text)
	switch {
	case err == nil:
		return a.teach(ctx, t)
	case errors.Is(err, knowledge.ErrParse):
		return Reply{Text: MsgBadTeach, Kind: KindNotUnderstood}
	}

	lower := strings.ToLower(text)
	for _, prefix := range queryPrefixes {
		_, rest, found := strings.Cut(lower, prefix)
		if !found {
			continue
		}
		if q := strings.TrimSpace(rest); q != "" {
			return a.Ask(ctx, q)
		}
	}

	if strings.HasSuffix(lower, "?") && utf8.RuneCountInString(lower) > minQuestionLen {
		return a.Ask(ctx, lower)
	}

	if res, err := a.engine.Lookup(ctx, text); err == nil {
		return Reply{Text: res.Answer, Kind: KindKnown, Result: res}
	}
	return Reply{Text: MsgNotUnderstood, Kind: KindNotUnderstood}
}

// Ask looks question up and falls back to the web. A web answer is
// taught back under the question before it is returned.
func (a *Assistant) Ask(ctx context.Context, question string) Reply {
	if res, err := a.engine.Lookup(ctx, question); err == nil {
		return Reply{Text: res.Answer, Kind: KindKnown, Result: res}
	}
	if a.web == nil {
		return Reply{Text: MsgNoWeb, Kind: KindNotFound}
	}

	ans, err := a.web.Search(ctx, question)
	switch {
	case errors.Is(err, websearch.ErrNoResults):
		return Reply{Text: MsgNotFound, Kind: KindNotFound}
	case err != nil:
		a.logger.Warn("web fallback failed", zap.String("question", question), zap.Error(err))
		return Reply{Text: MsgApology, Kind: KindApology}
	}

	if _, err := a.engine.Teach(ctx, question, ans.Text, knowledge.WebSource(ans.Source), ""); err != nil {
		a.logger.Warn("web answer not learned", zap.String("question", question), zap.Error(err))
	}
	return Reply{Text: a.web.Format(ans.Text), Kind: KindWeb}
}

func (a *Assistant) teach(ctx context.Context, t knowledge.Teaching) Reply {
	msg, err := a.engine.Teach(ctx, t.Question, t.Answer, knowledge.SourceUser, "")
	if errors.Is(err, knowledge.ErrEmptyQuestion) {
		return Reply{Text: MsgBadTeach, Kind: KindNotUnderstood}
	}
	return Reply{Text: msg, Kind: KindTaught}
}

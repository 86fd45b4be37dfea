package knowledge

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"kurogo/classify"
	"kurogo/nlp"
)

const (
	highConfidence   = 0.85
	mediumConfidence = 0.70
	lexicalMinScore  = 0.5
	contextMinScore  = 0.6
	maxUseBonus      = 0.2
)

var elaborateRegex = regexp.MustCompile(`mais|detalhe|explique|elabore|continue`)

var (
	mediumHedges = []string{"I believe ", "From what I understand, ", "Based on what I know, ", "I can say that "}
	lowHedges    = []string{"If I understood correctly, ", "Interpreting your question, ",
		"Looking at what you asked, ", "Based on my understanding, "}
)

type query struct {
	raw      string
	key      string
	tokens   []string
	stems    []string
	entities []nlp.Entity
	recent   []Interaction
}

type strategyFunc func(ctx context.Context, q *query, snap *snapshot) (Result, bool)

// Lookup runs the fallback chain and returns the first strategy that
// answers: exact key, alternate phrasing, classifier, token/stem overlap,
// entity overlap, context continuation, substring. Every hit lands in the
// context buffer; store hits also bump the record's use count.
func (e *Engine) Lookup(ctx context.Context, question string) (Result, error) {
	key := nlp.NormalizeKey(question)
	if key == "" {
		return Result{}, ErrNotFound
	}
	tokens := nlp.Tokenize(nlp.Normalize(key))
	q := &query{
		raw:      question,
		key:      key,
		tokens:   tokens,
		stems:    nlp.StemAll(e.stemmer, tokens),
		entities: nlp.ExtractEntities(question),
		recent:   e.history.Recent(e.Config.ContextWindow),
	}
	snap := e.store.snapshot()

	chain := []strategyFunc{
		e.exactMatch,
		e.alternateMatch,
		e.classifierMatch,
		e.lexicalMatch,
		e.entityMatch,
		e.contextMatch,
		e.substringMatch,
	}
	for _, strategy := range chain {
		res, ok := strategy(ctx, q, snap)
		if !ok {
			continue
		}
		if res.Strategy != StrategyContext {
			if err := e.store.Touch(ctx, res.Key); err != nil {
				e.logger.Warn("use count not persisted", zap.String("key", res.Key), zap.Error(err))
			}
		}
		e.history.Add(Interaction{At: e.now(), Question: question, Answer: res.Answer})
		e.logger.Debug("lookup hit", zap.String("question", key), zap.String("strategy", string(res.Strategy)),
			zap.String("key", res.Key), zap.Float64("score", res.Score))
		return res, nil
	}
	return Result{}, ErrNotFound
}

func (e *Engine) hit(key string, strategy Strategy, score float64) (Result, bool) {
	rec, ok := e.store.Get(key)
	if !ok {
		return Result{}, false
	}
	return Result{Answer: rec.Fact.Answer, Key: rec.Key, Strategy: strategy, Score: score}, true
}

func (e *Engine) exactMatch(_ context.Context, q *query, snap *snapshot) (Result, bool) {
	if c, ok := snap.canonical[q.key]; ok && c == q.key {
		return e.hit(q.key, StrategyExact, 1)
	}
	return Result{}, false
}

// alternateMatch also covers a query that is itself an alias key.
func (e *Engine) alternateMatch(_ context.Context, q *query, snap *snapshot) (Result, bool) {
	if c, ok := snap.canonical[q.key]; ok {
		return e.hit(c, StrategyAlternate, 1)
	}
	for _, p := range AlternatePhrasings(q.key) {
		if c, ok := snap.canonical[p]; ok {
			return e.hit(c, StrategyAlternate, 1)
		}
	}
	return Result{}, false
}

func (e *Engine) classifierMatch(ctx context.Context, q *query, snap *snapshot) (Result, bool) {
	if !e.Config.classifierOn() || len(snap.records) < e.Config.MinTrainingRecords {
		return Result{}, false
	}
	m := e.ensureModel(ctx)
	if m == nil {
		return Result{}, false
	}

	qv := m.Vectorize(q.key)
	var kept []classify.Prediction
	for _, p := range m.PredictVector(qv) {
		if len(kept) == 2 {
			break
		}
		if p.Probability >= e.Config.ConfidenceThreshold {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return Result{}, false
	}

	var (
		bestKey      string
		bestWeighted = math.Inf(-1)
		bestScore    float64
		bestConf     float64
	)
	for _, pred := range kept {
		catKey, catScore, found := "", math.Inf(-1), false
		for _, r := range snap.records {
			if r.Fact.Category != pred.Category {
				continue
			}
			score := classify.CosineSimilarity(qv, m.Vectorize(r.Key)) + math.Min(float64(r.Fact.UseCount)/10, maxUseBonus)
			if score > catScore {
				catKey, catScore, found = r.Key, score, true
			}
		}
		if !found {
			continue
		}
		if w := catScore * pred.Probability; w > bestWeighted {
			bestKey, bestWeighted, bestScore, bestConf = catKey, w, catScore, pred.Probability
		}
	}
	if bestKey == "" {
		return Result{}, false
	}
	res, ok := e.hit(bestKey, StrategyClassifier, bestScore)
	if !ok {
		return Result{}, false
	}
	res.Confidence = bestConf
	res.Answer = e.hedge(res.Answer, bestConf)
	return res, true
}

// hedge prefixes lower-confidence answers with an uncertainty phrase:
// never above 0.85, 15% of the time in [0.70, 0.85], 30% below that.
func (e *Engine) hedge(answer string, confidence float64) string {
	var phrases []string
	switch {
	case confidence > highConfidence:
		return answer
	case confidence >= mediumConfidence:
		if e.randFloat() < 0.15 {
			phrases = mediumHedges
		}
	case confidence >= e.Config.ConfidenceThreshold:
		if e.randFloat() < 0.30 {
			phrases = lowHedges
		}
	}
	if len(phrases) == 0 {
		return answer
	}
	return phrases[e.randIndex(len(phrases))] + answer
}

func (e *Engine) lexicalMatch(_ context.Context, q *query, snap *snapshot) (Result, bool) {
	if len(snap.records) < e.Config.MinLexicalRecords {
		return Result{}, false
	}
	bestKey, bestScore := "", 0.0
	for _, r := range snap.records {
		score := 0.4*nlp.Overlap(q.tokens, r.Fact.Tokens) + 0.6*nlp.Overlap(q.stems, r.Fact.Stems)
		if score > bestScore {
			bestKey, bestScore = r.Key, score
		}
	}
	if bestScore <= lexicalMinScore {
		return Result{}, false
	}
	return e.hit(bestKey, StrategyLexical, bestScore)
}

func (e *Engine) entityMatch(_ context.Context, q *query, snap *snapshot) (Result, bool) {
	if len(q.entities) == 0 {
		return Result{}, false
	}
	bestKey, bestScore := "", 0.0
	for _, r := range snap.records {
		shared := nlp.SharedEntities(q.entities, r.Fact.Entities)
		if shared == 0 {
			continue
		}
		score := float64(shared) / float64(max(len(q.entities), len(r.Fact.Entities), 1))
		if score > bestScore {
			bestKey, bestScore = r.Key, score
		}
	}
	if bestKey == "" {
		return Result{}, false
	}
	return e.hit(bestKey, StrategyEntity, bestScore)
}

func (e *Engine) contextMatch(_ context.Context, q *query, _ *snapshot) (Result, bool) {
	if len(q.recent) == 0 || !elaborateRegex.MatchString(strings.ToLower(q.raw)) {
		return Result{}, false
	}
	var best *Interaction
	bestScore := contextMinScore
	for i := range q.recent {
		prev := &q.recent[i]
		score := nlp.Overlap(q.tokens, nlp.Tokenize(nlp.Normalize(prev.Question)))
		if score > bestScore {
			best, bestScore = prev, score
		}
	}
	if best == nil {
		return Result{}, false
	}
	return Result{Answer: "Continuing on that: " + best.Answer, Strategy: StrategyContext, Score: bestScore}, true
}

// substringMatch is the last resort: any key contained in the query or
// containing it, ranked by shared words. At least one word must be shared.
func (e *Engine) substringMatch(_ context.Context, q *query, snap *snapshot) (Result, bool) {
	qWords := nlp.Words(q.key)
	bestKey, bestShared := "", 0
	for _, k := range snap.keys {
		if !strings.Contains(k, q.key) && !strings.Contains(q.key, k) {
			continue
		}
		shared := 0
		for w := range nlp.Words(k) {
			if _, ok := qWords[w]; ok {
				shared++
			}
		}
		if shared > bestShared {
			bestKey, bestShared = snap.canonical[k], shared
		}
	}
	if bestKey == "" {
		return Result{}, false
	}
	return e.hit(bestKey, StrategySubstring, float64(bestShared))
}

func sortByUse(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Fact.UseCount == records[j].Fact.UseCount {
			return records[i].Key < records[j].Key
		}
		return records[i].Fact.UseCount > records[j].Fact.UseCount
	})
}

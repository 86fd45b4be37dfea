package knowledge

import (
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurogo/classify"
	"kurogo/nlp"
	"kurogo/storage"
)

type constSource uint64

func (s constSource) Uint64() uint64 { return uint64(s) }

func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	return func() time.Time { return t }
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithClock(fixedClock()), WithRand(rand.New(constSource(math.MaxUint64)))}
	e, err := New(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func teach(t *testing.T, e *Engine, q, a string) {
	t.Helper()
	_, err := e.Teach(context.Background(), q, a, SourceUser, "")
	require.NoError(t, err)
}

func TestEmptyStoreIsNotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Lookup(context.Background(), "qualquer coisa")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, e.Context().Len())
}

func TestTeachConfirmationAndIdempotence(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	msg, err := e.Teach(ctx, "Capital da França?", "Paris", SourceUser, "")
	require.NoError(t, err)
	assert.Equal(t, "Learned: 'Capital da França?' → 'Paris'", msg)
	first := e.Store().Export()

	_, err = e.Teach(ctx, "Capital da França?", "Paris", SourceUser, "")
	require.NoError(t, err)
	assert.Equal(t, first, e.Store().Export())
	assert.Equal(t, 1, e.Store().CanonicalCount())

	res, err := e.Lookup(ctx, "capital da frança")
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Answer)
	assert.Equal(t, StrategyExact, res.Strategy)

	_, err = e.Teach(ctx, "?!", "nada", SourceUser, "")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestReteachKeepsUsageHistory(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	teach(t, e, "o que é go", "uma linguagem")
	_, err := e.Lookup(ctx, "o que é go")
	require.NoError(t, err)

	teach(t, e, "o que é go", "uma linguagem do Google")
	rec, ok := e.Store().Get("o que é go")
	require.True(t, ok)
	assert.Equal(t, "uma linguagem do Google", rec.Fact.Answer)
	assert.Equal(t, 1, rec.Fact.UseCount)
}

func TestAliasTransparency(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	teach(t, e, "O que é Python?", "Uma linguagem de programação")

	key := "o que é python"
	for _, p := range AlternatePhrasings(key) {
		res, err := e.Lookup(ctx, p)
		require.NoError(t, err, p)
		assert.Equal(t, "Uma linguagem de programação", res.Answer, p)
		assert.Equal(t, key, res.Key, p)
	}

	res, err := e.Lookup(ctx, "definição de python")
	require.NoError(t, err)
	assert.Equal(t, StrategyAlternate, res.Strategy)

	rec, _ := e.Store().Get(key)
	assert.Equal(t, len(AlternatePhrasings(key))+1, rec.Fact.UseCount)
}

func TestAliasKeyResolvesToItsOwnCanonical(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	teach(t, e, "o que é x~y", "A")
	teach(t, e, "definição de xy", "B")

	rec, ok := e.Store().Get("definição de x~y")
	require.True(t, ok)
	require.Equal(t, "o que é x~y", rec.Key)

	res, err := e.Lookup(ctx, "definição de x~y")
	require.NoError(t, err)
	assert.Equal(t, "A", res.Answer)
	assert.Equal(t, "o que é x~y", res.Key)

	res, err = e.Lookup(ctx, "o que é x~y")
	require.NoError(t, err)
	assert.Equal(t, "A", res.Answer)
}

func TestAliasesNeverOverwriteCanonical(t *testing.T) {
	e := newTestEngine(t)
	teach(t, e, "definição de python", "resposta A")
	teach(t, e, "o que é python", "resposta B")

	rec, ok := e.Store().Get("definição de python")
	require.True(t, ok)
	assert.Equal(t, "definição de python", rec.Key)
	assert.Equal(t, "resposta A", rec.Fact.Answer)
}

func TestExactMatchWinsOverLexical(t *testing.T) {
	e := newTestEngine(t, WithClassifier(false))
	teach(t, e, "python linguagem", "exata")
	teach(t, e, "linguagem python", "lexical")
	teach(t, e, "bolo de cenoura", "receita")

	res, err := e.Lookup(context.Background(), "python linguagem")
	require.NoError(t, err)
	assert.Equal(t, "exata", res.Answer)
	assert.Equal(t, StrategyExact, res.Strategy)
}

func TestDefinitionPrefixResolvesBySubstring(t *testing.T) {
	e := newTestEngine(t)
	teach(t, e, "capital da frança", "Paris")

	res, err := e.Lookup(context.Background(), "definição de capital da frança")
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Answer)
	assert.Equal(t, StrategySubstring, res.Strategy)
}

func TestFourRecordsSkipClassifierAndUseLexical(t *testing.T) {
	e := newTestEngine(t)
	teach(t, e, "qual a capital da frança", "Paris")
	teach(t, e, "quem pintou a monalisa", "Leonardo da Vinci")
	teach(t, e, "o que é python", "Uma linguagem")
	teach(t, e, "bolo de cenoura", "Receita da vovó")
	require.Nil(t, e.Model())

	res, err := e.Lookup(context.Background(), "frança capital")
	require.NoError(t, err)
	assert.Equal(t, StrategyLexical, res.Strategy)
	assert.Equal(t, "Paris", res.Answer)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
}

func TestEntityOverlap(t *testing.T) {
	e := newTestEngine(t, WithClassifier(false))
	teach(t, e, "reunião com Maria em 12/05/2024", "sala 3")

	res, err := e.Lookup(context.Background(), "onde encontro Maria?")
	require.NoError(t, err)
	assert.Equal(t, StrategyEntity, res.Strategy)
	assert.Equal(t, "sala 3", res.Answer)
}

func TestContextContinuation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, WithClassifier(false))
	teach(t, e, "o que é python", "Uma linguagem")

	_, err := e.Lookup(ctx, "o que é python")
	require.NoError(t, err)
	rec, _ := e.Store().Get("o que é python")
	uses := rec.Fact.UseCount

	res, err := e.Lookup(ctx, "python mais")
	require.NoError(t, err)
	assert.Equal(t, StrategyContext, res.Strategy)
	assert.Equal(t, "Continuing on that: Uma linguagem", res.Answer)
	rec, _ = e.Store().Get("o que é python")
	assert.Equal(t, uses, rec.Fact.UseCount)
}

func TestContextBufferIsBounded(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	teach(t, e, "oi", "olá!")

	questions := make([]string, 11)
	for i := range questions {
		questions[i] = "oi" + string(rune('a'+i))
		teach(t, e, questions[i], "resposta")
		_, err := e.Lookup(ctx, questions[i])
		require.NoError(t, err)
	}

	recent := e.Context().Recent(0)
	require.Len(t, recent, 10)
	assert.Equal(t, questions[1], recent[0].Question)
	assert.Equal(t, questions[10], recent[9].Question)
}

func TestHedgeBands(t *testing.T) {
	always := newTestEngine(t, WithRand(rand.New(constSource(0))))
	assert.Equal(t, "Paris", always.hedge("Paris", 0.9))
	assert.Equal(t, mediumHedges[0]+"Paris", always.hedge("Paris", 0.85))
	assert.Equal(t, mediumHedges[0]+"Paris", always.hedge("Paris", 0.75))
	assert.Equal(t, lowHedges[0]+"Paris", always.hedge("Paris", 0.6))
	assert.Equal(t, "Paris", always.hedge("Paris", 0.4))

	never := newTestEngine(t)
	assert.Equal(t, "Paris", never.hedge("Paris", 0.6))
	assert.Equal(t, "Paris", never.hedge("Paris", 0.75))
}

func trainingSet(t *testing.T, e *Engine) {
	t.Helper()
	teach(t, e, "o que é python", "uma linguagem de programação")
	teach(t, e, "o que é java", "outra linguagem de programação")
	teach(t, e, "como funciona um computador", "com circuitos")
	teach(t, e, "qual a capital da frança", "Paris")
	teach(t, e, "qual a capital da alemanha", "Berlim")
	teach(t, e, "quem descobriu o brasil", "Pedro Álvares Cabral")
}

// plantModel swaps in a classifier whose posteriors equal the class priors,
// so category confidence is fixed regardless of the query.
func plantModel(t *testing.T, e *Engine, priors map[string]float64) {
	t.Helper()
	vec := classify.FitVectorizer(e.Store().Keys(), 0)
	nb := &classify.NaiveBayes{}
	for _, c := range []string{"geral", "tecnologia"} {
		row := make([]float64, vec.Features())
		for i := range row {
			row[i] = math.Log(1 / float64(len(row)))
		}
		nb.Classes = append(nb.Classes, c)
		nb.ClassLogPrior = append(nb.ClassLogPrior, math.Log(priors[c]))
		nb.FeatureLogProb = append(nb.FeatureLogProb, row)
	}
	e.model.Store(&classify.Model{Samples: e.Store().Len(), Vectorizer: vec, Classifier: nb})
	e.stale.Store(false)
}

func TestClassifierGatedAtDefaultThreshold(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	require.Equal(t, 0.55, e.Config.ConfidenceThreshold)
	trainingSet(t, e)

	plantModel(t, e, map[string]float64{"tecnologia": 0.52, "geral": 0.48})
	res, err := e.Lookup(ctx, "linguagem python")
	if err == nil {
		assert.NotEqual(t, StrategyClassifier, res.Strategy)
	} else {
		assert.ErrorIs(t, err, ErrNotFound)
	}

	plantModel(t, e, map[string]float64{"tecnologia": 0.60, "geral": 0.40})
	res, err = e.Lookup(ctx, "linguagem python")
	require.NoError(t, err)
	assert.Equal(t, StrategyClassifier, res.Strategy)
	assert.Equal(t, "o que é python", res.Key)
	assert.InDelta(t, 0.60, res.Confidence, 1e-9)
}

func TestClassifierConfidenceGating(t *testing.T) {
	ctx := context.Background()

	loose := newTestEngine(t, WithConfidenceThreshold(0.01))
	trainingSet(t, loose)
	res, err := loose.Lookup(ctx, "linguagem python")
	require.NoError(t, err)
	assert.Equal(t, StrategyClassifier, res.Strategy)
	assert.GreaterOrEqual(t, res.Confidence, 0.01)
	for _, p := range loose.Model().Predict("linguagem python") {
		if p.Category == "tecnologia" {
			assert.Equal(t, p.Probability, res.Confidence)
		}
	}
}

func TestClassifierDisabledIsNoop(t *testing.T) {
	e := newTestEngine(t, WithClassifier(false))
	trainingSet(t, e)
	assert.Nil(t, e.Model())
	assert.ErrorIs(t, e.Retrain(context.Background()), ErrClassifierDisabled)

	e.Config.SetClassifierAvailable(true)
	require.NoError(t, e.Retrain(context.Background()))
	assert.NotNil(t, e.Model())
}

func TestRetrainNeedsEnoughRecords(t *testing.T) {
	e := newTestEngine(t)
	teach(t, e, "o que é python", "linguagem")
	assert.ErrorIs(t, e.Retrain(context.Background()), ErrUndertrained)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := newTestEngine(t, WithStorageConn(storage.Dir(dir)))
	trainingSet(t, a)
	teach(t, a, "reunião com Maria às 14:30", "sala 3")
	_, err := a.Lookup(ctx, "o que é python")
	require.NoError(t, err)

	b := newTestEngine(t, WithStorageConn(storage.Dir(dir)))
	assert.Equal(t, a.Store().Export(), b.Store().Export())

	require.NotNil(t, b.Model())
	assert.Equal(t, a.Model().ID, b.Model().ID)
	assert.False(t, b.Stats().ModelStale)

	for _, name := range []string{storage.KnowledgeFile, classify.VectorizerArtifact + ".json", classify.ClassifierArtifact + ".json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.KnowledgeFile), []byte("{{{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, classify.ClassifierArtifact+".json"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, classify.VectorizerArtifact+".json"), []byte("nope"), 0o644))

	e := newTestEngine(t, WithStorageConn(storage.Dir(dir)))
	assert.Equal(t, 0, e.Store().Len())
	assert.Nil(t, e.Model())
}

func TestOutOfRangeArtifactIsIgnored(t *testing.T) {
	dir := t.TempDir()
	a := newTestEngine(t, WithStorageConn(storage.Dir(dir)))
	trainingSet(t, a)
	require.NotNil(t, a.Model())

	path := filepath.Join(dir, classify.VectorizerArtifact+".json")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var blob map[string]any
	require.NoError(t, json.Unmarshal(raw, &blob))
	vocab := blob["vocabulary"].(map[string]any)
	for term := range vocab {
		vocab[term] = 99999
	}
	raw, err = json.Marshal(blob)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	b := newTestEngine(t, WithStorageConn(storage.Dir(dir)))
	assert.Nil(t, b.Model())
	assert.NotPanics(t, func() {
		_, _ = b.Lookup(context.Background(), "linguagem python")
	})
	assert.NotNil(t, b.Model())
}

func TestLegacyFileWithoutDerivedFields(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
  "capital da frança": {"resposta": "Paris", "fonte": "usuário", "data_criacao": "2024-01-02T03:04:05.123456",
    "data_atualizacao": "2024-01-02T03:04:05.123456", "contador_uso": 3, "categoria": "geral"},
  "capital da frança?": {"resposta": "Paris", "fonte": "usuário", "data_criacao": "2024-01-02T03:04:05",
    "data_atualizacao": "2024-01-02T03:04:05", "contador_uso": 0, "categoria": "geral",
    "referencia_original": "capital da frança", "e_versao_alternativa": true},
  "reunião em 01/02/2024 às 14:30": {"resposta": "sala 3", "fonte": "usuário", "data_criacao": "2024-01-02T03:04:05",
    "data_atualizacao": "2024-01-02T03:04:05", "contador_uso": 0, "categoria": "cotidiano"},
  "orfã?": {"resposta": "sozinha", "fonte": "usuário", "data_criacao": "", "data_atualizacao": "",
    "contador_uso": 0, "categoria": "geral", "referencia_original": "sumiu", "e_versao_alternativa": true}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, storage.KnowledgeFile), []byte(legacy), 0o644))

	e := newTestEngine(t, WithStorageConn(storage.Dir(dir)))
	rec, ok := e.Store().Get("capital da frança?")
	require.True(t, ok)
	assert.Equal(t, "capital da frança", rec.Key)
	assert.Equal(t, []string{"capital", "franca"}, rec.Fact.Tokens)
	assert.Equal(t, 3, rec.Fact.UseCount)
	assert.Equal(t, 2024, rec.Fact.CreatedAt.Year())

	meeting, ok := e.Store().Get("reunião em 01/02/2024 às 14:30")
	require.True(t, ok)
	assert.Equal(t, []nlp.Entity{
		{Kind: nlp.EntityDate, Value: "01/02/2024"},
		{Kind: nlp.EntityTime, Value: "14:30"},
	}, meeting.Fact.Entities)

	orphan, ok := e.Store().Get("orfã?")
	require.True(t, ok)
	assert.Equal(t, "orfã?", orphan.Key)
	assert.Equal(t, "sozinha", orphan.Fact.Answer)
}

func TestForgetRemovesAliases(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	teach(t, e, "o que é python", "linguagem")
	require.Greater(t, e.Store().Len(), 1)

	ok, err := e.Forget(ctx, "definição de python")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, e.Store().Len())

	ok, err = e.Forget(ctx, "nunca ensinado")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	trainingSet(t, e)
	_, err := e.Lookup(ctx, "qual a capital da frança")
	require.NoError(t, err)

	st := e.Stats()
	assert.Equal(t, 6, st.Canonical)
	assert.Equal(t, st.Records-st.Canonical, st.Aliases)
	assert.Equal(t, 6, st.Sources[SourceUser])
	assert.Equal(t, 3, st.Categories["tecnologia"])
	assert.Equal(t, 3, st.Categories[DefaultCategory])
	require.NotEmpty(t, st.TopUsed)
	assert.Equal(t, "qual a capital da frança", st.TopUsed[0].Key)
	assert.NotEmpty(t, st.ModelID)
}

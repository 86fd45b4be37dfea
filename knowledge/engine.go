// Package knowledge is the learning engine: a persistent question → answer
// store, a fallback chain of retrieval strategies and an optional category
// classifier trained from the store itself.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"kurogo/classify"
	"kurogo/nlp"
	"kurogo/storage"
)

type Engine struct {
	Config  *Config
	Storage *storage.Manager

	store     *Store
	history   *ContextBuffer
	artifacts storage.ArtifactRepo

	logger  *zap.Logger
	now     func() time.Time
	stemmer nlp.Stemmer

	rngMu sync.Mutex
	rng   *rand.Rand

	trainMu sync.Mutex
	model   atomic.Pointer[classify.Model]
	stale   atomic.Bool

	startErr error
}

type Option func(*Engine)

// WithStorageConn attaches a backend: a storage.Dir, *sql.DB, storage.SQLConn
// or *mongo.Database. Without one the engine keeps everything in memory.
func WithStorageConn(conn any) Option {
	return func(e *Engine) {
		e.Storage = storage.NewManager()
		if err := e.Storage.Start(conn); err != nil {
			e.startErr = err
			return
		}
		e.Config.Storage.Dialect = e.Storage.Dialect()
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand sets the source used for hedging phrases.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithStemmer(s nlp.Stemmer) Option {
	return func(e *Engine) { e.stemmer = s }
}

func WithClassifier(available bool) Option {
	return func(e *Engine) { e.Config.ClassifierAvailable = available }
}

func WithConfidenceThreshold(t float64) Option {
	return func(e *Engine) { e.Config.ConfidenceThreshold = t }
}

func WithMinTrainingRecords(n int) Option {
	return func(e *Engine) { e.Config.MinTrainingRecords = n }
}

func WithContextSize(n int) Option {
	return func(e *Engine) { e.Config.ContextSize = n }
}

// New builds an engine, migrates the backend and loads the stored knowledge
// and classifier. A snapshot or model that fails to load is logged and the
// engine starts without it.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		Config:  newConfig(),
		logger:  zap.NewNop(),
		now:     time.Now,
		stemmer: nlp.RSLP{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.startErr != nil {
		return nil, e.startErr
	}
	if e.Storage == nil {
		e.Storage = storage.NewManager()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6b75726f))
	}
	if err := e.Storage.Build(ctx); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrIO, err)
	}

	var repo storage.KnowledgeRepo
	if repos, err := e.Storage.Repos(); err == nil {
		repo = repos.Knowledge()
		e.artifacts = repos.Artifact()
	}
	e.store = newStore(repo, e.stemmer, e.now, e.logger)
	e.history = NewContextBuffer(e.Config.SessionID, e.Config.ContextSize)

	if err := e.store.Load(ctx); err != nil {
		e.logger.Warn("knowledge snapshot unreadable, starting empty", zap.Error(err))
	}
	e.loadModel(ctx)
	e.logger.Debug("knowledge engine ready",
		zap.String("dialect", e.Storage.Dialect()),
		zap.Int("records", e.store.Len()),
		zap.Bool("classifier", e.Config.classifierOn()),
		zap.String("session", e.Config.SessionID.String()),
	)
	return e, nil
}

func (e *Engine) Store() *Store           { return e.store }
func (e *Engine) Context() *ContextBuffer { return e.history }
func (e *Engine) Model() *classify.Model  { return e.model.Load() }
func (e *Engine) Logger() *zap.Logger     { return e.logger }

// Teach adds a fact and retrains the classifier once enough records exist.
// Training failures are logged; the previous model stays in place.
func (e *Engine) Teach(ctx context.Context, question, answer, source, category string) (string, error) {
	confirmation, err := e.store.Add(ctx, question, answer, source, category)
	if errors.Is(err, ErrEmptyQuestion) {
		return "", err
	}
	e.stale.Store(true)
	if err != nil {
		e.logger.Warn("taught fact not persisted", zap.String("question", question), zap.Error(err))
		return confirmation, err
	}
	if e.Config.classifierOn() && e.store.CanonicalCount() >= e.Config.MinTrainingRecords {
		if terr := e.Retrain(ctx); terr != nil {
			e.logger.Warn("retrain after teach failed", zap.Error(terr))
		}
	}
	return confirmation, nil
}

// Forget removes a record and its aliases.
func (e *Engine) Forget(ctx context.Context, question string) (bool, error) {
	ok, err := e.store.Remove(ctx, question)
	if ok {
		e.stale.Store(true)
	}
	return ok, err
}

// Retrain fits a new classifier on the whole store and swaps it in.
func (e *Engine) Retrain(ctx context.Context) error {
	if !e.Config.classifierOn() {
		return ErrClassifierDisabled
	}
	e.trainMu.Lock()
	defer e.trainMu.Unlock()

	if n := e.store.CanonicalCount(); n < e.Config.MinTrainingRecords {
		return fmt.Errorf("%w: %d records, need %d", ErrUndertrained, n, e.Config.MinTrainingRecords)
	}
	samples, err := e.store.trainingSamples(ctx)
	if err != nil {
		e.logger.Warn("assigned categories not persisted", zap.Error(err))
	}
	m, err := classify.Train(samples, classify.TrainOptions{MinSamples: e.Config.MinTrainingRecords})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUndertrained, err)
	}
	e.model.Store(m)
	e.stale.Store(false)

	fields := []zap.Field{zap.String("model", m.ID.String()), zap.Int("samples", m.Samples),
		zap.Strings("categories", m.Classifier.Classes)}
	if m.Evaluated {
		fields = append(fields, zap.Float64("holdout_accuracy", m.Accuracy))
	}
	e.logger.Info("classifier trained", fields...)

	if err := e.saveModel(ctx, m); err != nil {
		e.logger.Warn("classifier artifacts not persisted", zap.Error(err))
	}
	return nil
}

func (e *Engine) saveModel(ctx context.Context, m *classify.Model) error {
	if e.artifacts == nil {
		return nil
	}
	vec, clf, err := m.MarshalArtifacts()
	if err != nil {
		return err
	}
	if err := e.artifacts.Put(ctx, classify.VectorizerArtifact, vec); err != nil {
		return err
	}
	return e.artifacts.Put(ctx, classify.ClassifierArtifact, clf)
}

// loadModel restores persisted artifacts. Missing or corrupt artifacts leave
// the engine untrained; a model trained on a different number of samples is
// kept but marked stale.
func (e *Engine) loadModel(ctx context.Context) {
	e.stale.Store(true)
	if !e.Config.classifierOn() || e.artifacts == nil {
		return
	}
	vec, err := e.artifacts.Get(ctx, classify.VectorizerArtifact)
	if err != nil {
		if !errors.Is(err, storage.ErrArtifactNotFound) {
			e.logger.Warn("vectorizer artifact unreadable", zap.Error(err))
		}
		return
	}
	clf, err := e.artifacts.Get(ctx, classify.ClassifierArtifact)
	if err != nil {
		if !errors.Is(err, storage.ErrArtifactNotFound) {
			e.logger.Warn("classifier artifact unreadable", zap.Error(err))
		}
		return
	}
	m, err := classify.UnmarshalArtifacts(vec, clf)
	if err != nil {
		e.logger.Warn("classifier artifacts corrupt, ignoring", zap.Error(err))
		return
	}
	e.model.Store(m)
	e.stale.Store(m.Samples != e.store.Len())
}

// ensureModel retrains lazily when the store changed since the last fit.
func (e *Engine) ensureModel(ctx context.Context) *classify.Model {
	if e.stale.Load() && e.store.CanonicalCount() >= e.Config.MinTrainingRecords {
		if err := e.Retrain(ctx); err != nil {
			e.stale.Store(false)
			e.logger.Warn("lazy retrain failed", zap.Error(err))
		}
	}
	return e.model.Load()
}

func (e *Engine) randFloat() float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) randIndex(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.IntN(n)
}

type Stats struct {
	Dialect     string
	Records     int
	Canonical   int
	Aliases     int
	Categories  map[string]int
	Sources     map[string]int
	TopUsed     []Record
	ContextSize int

	ClassifierAvailable bool
	ModelID             string
	ModelSamples        int
	ModelAccuracy       float64
	ModelEvaluated      bool
	ModelStale          bool
}

// Stats summarizes the store and classifier. TopUsed holds up to five
// records by use count.
func (e *Engine) Stats() Stats {
	records := e.store.Records()
	st := Stats{
		Dialect:             e.Storage.Dialect(),
		Records:             e.store.Len(),
		Canonical:           len(records),
		Categories:          map[string]int{},
		Sources:             map[string]int{},
		ContextSize:         e.history.Len(),
		ClassifierAvailable: e.Config.classifierOn(),
		ModelStale:          e.stale.Load(),
	}
	st.Aliases = st.Records - st.Canonical
	for _, r := range records {
		st.Categories[r.Fact.Category]++
		st.Sources[r.Fact.Source]++
	}
	top := append([]Record(nil), records...)
	sortByUse(top)
	if len(top) > 5 {
		top = top[:5]
	}
	st.TopUsed = top
	if m := e.model.Load(); m != nil {
		st.ModelID = m.ID.String()
		st.ModelSamples = m.Samples
		st.ModelAccuracy = m.Accuracy
		st.ModelEvaluated = m.Evaluated
	}
	return st
}

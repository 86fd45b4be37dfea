package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"kurogo/classify"
	"kurogo/nlp"
	"kurogo/storage"
)

// Store is the question-keyed knowledge mapping. Every mutation is followed
// by a full snapshot write when a repo is attached.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry

	persistMu sync.Mutex
	repo      storage.KnowledgeRepo
	writer    *Writer

	stemmer nlp.Stemmer
	now     func() time.Time
	logger  *zap.Logger
}

func newStore(repo storage.KnowledgeRepo, stemmer nlp.Stemmer, now func() time.Time, logger *zap.Logger) *Store {
	return &Store{
		entries: make(map[string]Entry),
		repo:    repo,
		writer:  NewWriter(repo, logger),
		stemmer: stemmer,
		now:     now,
		logger:  logger,
	}
}

func (s *Store) derive(key string) (tokens, stems []string) {
	tokens = nlp.Tokenize(nlp.Normalize(key))
	return tokens, nlp.StemAll(s.stemmer, tokens)
}

// Add stores question → answer and an alias for each alternate phrasing
// not already present. An empty category is filled from the keyword table.
// Re-teaching a key keeps its creation time and use count.
func (s *Store) Add(ctx context.Context, question, answer, source, category string) (string, error) {
	key := nlp.NormalizeKey(question)
	if key == "" {
		return "", ErrEmptyQuestion
	}
	if source == "" {
		source = SourceUser
	}
	if category == "" {
		category = Categorize(key)
	}
	now := s.now().Truncate(time.Second)
	tokens, stems := s.derive(key)
	fact := &Fact{
		Answer:     answer,
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
		Category:   category,
		Tokens:     tokens,
		Stems:      stems,
		Entities:   nlp.ExtractEntities(question),
		Alternates: AlternatePhrasings(key),
	}

	s.mu.Lock()
	if prev, ok := s.entries[key].(*Fact); ok {
		fact.CreatedAt = prev.CreatedAt
		fact.UseCount = prev.UseCount
	}
	s.entries[key] = fact
	for _, alt := range fact.Alternates {
		if alt == key {
			continue
		}
		if _, exists := s.entries[alt]; !exists {
			s.entries[alt] = Alias{Of: key}
		}
	}
	s.mu.Unlock()

	confirmation := fmt.Sprintf("Learned: '%s' → '%s'", question, answer)
	return confirmation, s.Persist(ctx)
}

// Remove drops the record key resolves to along with all of its aliases.
func (s *Store) Remove(ctx context.Context, question string) (bool, error) {
	key := nlp.NormalizeKey(question)
	s.mu.Lock()
	canonical, _, ok := s.resolveLocked(key)
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	delete(s.entries, canonical)
	for k, e := range s.entries {
		if a, isAlias := e.(Alias); isAlias && a.Of == canonical {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
	return true, s.Persist(ctx)
}

// Touch counts a retrieval of the canonical record.
func (s *Store) Touch(ctx context.Context, canonical string) error {
	s.mu.Lock()
	f, ok := s.entries[canonical].(*Fact)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, canonical)
	}
	f.UseCount++
	f.UpdatedAt = s.now().Truncate(time.Second)
	s.mu.Unlock()
	return s.Persist(ctx)
}

func (s *Store) resolveLocked(key string) (string, *Fact, bool) {
	switch e := s.entries[key].(type) {
	case *Fact:
		return key, e, true
	case Alias:
		if f, ok := s.entries[e.Of].(*Fact); ok {
			return e.Of, f, true
		}
	}
	return "", nil, false
}

// Get resolves key, following an alias to its canonical record.
func (s *Store) Get(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	canonical, f, ok := s.resolveLocked(key)
	if !ok {
		return Record{}, false
	}
	return Record{Key: canonical, Fact: *f.clone()}, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CanonicalCount is the number of non-alias records.
func (s *Store) CanonicalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if _, ok := e.(*Fact); ok {
			n++
		}
	}
	return n
}

// Records returns copies of the canonical records ordered by key.
func (s *Store) Records() []Record {
	return s.snapshot().records
}

// Keys returns every key, aliases included, in ascending order.
func (s *Store) Keys() []string {
	return s.snapshot().keys
}

type snapshot struct {
	keys      []string
	records   []Record
	canonical map[string]string
}

func (s *Store) snapshot() *snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &snapshot{
		keys:      make([]string, 0, len(s.entries)),
		canonical: make(map[string]string, len(s.entries)),
	}
	for k := range s.entries {
		c, f, ok := s.resolveLocked(k)
		if !ok {
			continue
		}
		snap.keys = append(snap.keys, k)
		snap.canonical[k] = c
		if c == k {
			snap.records = append(snap.records, Record{Key: k, Fact: *f.clone()})
		}
	}
	sort.Strings(snap.keys)
	sort.Slice(snap.records, func(i, j int) bool { return snap.records[i].Key < snap.records[j].Key })
	return snap
}

// trainingSamples labels every key with its canonical record's category,
// assigning and persisting categories that are missing.
func (s *Store) trainingSamples(ctx context.Context) ([]classify.Sample, error) {
	s.mu.Lock()
	changed := false
	for k, e := range s.entries {
		if f, ok := e.(*Fact); ok && f.Category == "" {
			f.Category = Categorize(k)
			changed = true
		}
	}
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	samples := make([]classify.Sample, 0, len(keys))
	for _, k := range keys {
		if _, f, ok := s.resolveLocked(k); ok {
			samples = append(samples, classify.Sample{Text: k, Label: f.Category})
		}
	}
	s.mu.Unlock()

	if changed {
		if err := s.Persist(ctx); err != nil {
			return samples, err
		}
	}
	return samples, nil
}

// Export renders the store in wire form, ordered by key. Aliases carry a
// copy of their canonical record's content for older readers.
func (s *Store) Export() []storage.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	docs := make([]storage.Document, 0, len(keys))
	for _, k := range keys {
		switch e := s.entries[k].(type) {
		case *Fact:
			docs = append(docs, factDocument(k, e))
		case Alias:
			target, ok := s.entries[e.Of].(*Fact)
			if !ok {
				continue
			}
			docs = append(docs, storage.Document{
				Question:  k,
				Answer:    target.Answer,
				Source:    target.Source,
				CreatedAt: formatTime(target.CreatedAt),
				UpdatedAt: formatTime(target.UpdatedAt),
				Category:  target.Category,
				Reference: e.Of,
				IsAlias:   true,
			})
		}
	}
	return docs
}

// Persist writes the current state as one snapshot. Concurrent callers are
// serialized so the last write always carries the latest state.
func (s *Store) Persist(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.writer.Execute(ctx, s.Export()); err != nil {
		return fmt.Errorf("%w: persist: %v", ErrIO, err)
	}
	return nil
}

// Load replaces the in-memory state with the stored snapshot. On failure the
// store is left empty. Aliases whose target is missing are promoted to
// canonical records.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	docs, err := s.repo.Load(ctx)
	if err != nil {
		s.mu.Lock()
		s.entries = make(map[string]Entry)
		s.mu.Unlock()
		return fmt.Errorf("%w: load: %v", ErrIO, err)
	}

	entries := make(map[string]Entry, len(docs))
	var aliases []storage.Document
	for _, doc := range docs {
		if doc.IsAlias && doc.Reference != "" && doc.Reference != doc.Question {
			aliases = append(aliases, doc)
			continue
		}
		entries[doc.Question] = s.factFromDocument(doc)
	}
	for _, doc := range aliases {
		if _, ok := entries[doc.Reference].(*Fact); ok {
			entries[doc.Question] = Alias{Of: doc.Reference}
			continue
		}
		s.logger.Warn("promoting dangling alias", zap.String("key", doc.Question), zap.String("reference", doc.Reference))
		entries[doc.Question] = s.factFromDocument(doc)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

func (s *Store) factFromDocument(doc storage.Document) *Fact {
	f := &Fact{
		Answer:     doc.Answer,
		Source:     doc.Source,
		UseCount:   doc.UseCount,
		Category:   doc.Category,
		Tokens:     doc.Tokens,
		Stems:      doc.Stems,
		Alternates: doc.Alternates,
	}
	if t, ok := storage.ParseTime(doc.CreatedAt); ok {
		f.CreatedAt = t
	}
	if t, ok := storage.ParseTime(doc.UpdatedAt); ok {
		f.UpdatedAt = t
	}
	if f.Tokens == nil || f.Stems == nil {
		tokens, stems := s.derive(doc.Question)
		if f.Tokens == nil {
			f.Tokens = tokens
		}
		if f.Stems == nil {
			f.Stems = stems
		}
	}
	if doc.Entities == nil {
		f.Entities = nlp.ExtractEntities(doc.Question)
	}
	for _, pair := range doc.Entities {
		if len(pair) == 2 {
			f.Entities = append(f.Entities, nlp.Entity{Kind: nlp.EntityKind(pair[0]), Value: pair[1]})
		}
	}
	return f
}

func factDocument(key string, f *Fact) storage.Document {
	doc := storage.Document{
		Question:   key,
		Answer:     f.Answer,
		Source:     f.Source,
		CreatedAt:  formatTime(f.CreatedAt),
		UpdatedAt:  formatTime(f.UpdatedAt),
		UseCount:   f.UseCount,
		Category:   f.Category,
		Tokens:     f.Tokens,
		Stems:      f.Stems,
		Alternates: f.Alternates,
	}
	for _, e := range f.Entities {
		doc.Entities = append(doc.Entities, []string{string(e.Kind), e.Value})
	}
	return doc
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return storage.FormatTime(t)
}

package classify

import (
	"fmt"
	"math"
	"sort"

	"kurogo/nlp"
)

// DefaultMaxFeatures caps the vocabulary size.
const DefaultMaxFeatures = 5000

// Vectorizer is a fitted TF-IDF transform over unigrams and bigrams.
type Vectorizer struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	MaxFeatures int            `json:"max_features"`
}

// Terms yields the unigrams and bigrams of text after normalization and
// stopword removal.
func Terms(text string) []string {
	tokens := nlp.Tokenize(nlp.Normalize(text))
	terms := make([]string, 0, len(tokens)*2)
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

// FitVectorizer learns the vocabulary and smoothed idf weights:
// idf = ln((1+n)/(1+df)) + 1. When the vocabulary exceeds maxFeatures the
// most frequent terms across the corpus are kept.
func FitVectorizer(docs []string, maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	df := map[string]int{}
	tf := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, term := range Terms(doc) {
			tf[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] == tf[terms[j]] {
				return terms[i] < terms[j]
			}
			return tf[terms[i]] > tf[terms[j]]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &Vectorizer{
		Vocabulary:  make(map[string]int, len(terms)),
		IDF:         make([]float64, len(terms)),
		MaxFeatures: maxFeatures,
	}
	for i, term := range terms {
		v.Vocabulary[term] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// Features is the vocabulary size.
func (v *Vectorizer) Features() int { return len(v.IDF) }

// validate checks that the vocabulary maps one to one onto the idf slots.
func (v *Vectorizer) validate() error {
	if len(v.Vocabulary) != len(v.IDF) {
		return fmt.Errorf("%w: vocabulary has %d terms, idf has %d", ErrCorruptArtifact, len(v.Vocabulary), len(v.IDF))
	}
	seen := make([]bool, len(v.IDF))
	for term, i := range v.Vocabulary {
		if i < 0 || i >= len(v.IDF) {
			return fmt.Errorf("%w: term %q has index %d outside [0, %d)", ErrCorruptArtifact, term, i, len(v.IDF))
		}
		if seen[i] {
			return fmt.Errorf("%w: index %d is shared by two terms", ErrCorruptArtifact, i)
		}
		seen[i] = true
	}
	return nil
}

// Transform returns the l2-normalized tf-idf vector of text. Unknown terms
// are ignored.
func (v *Vectorizer) Transform(text string) Vector {
	out := Vector{}
	for _, term := range Terms(text) {
		if i, ok := v.Vocabulary[term]; ok {
			out[i]++
		}
	}
	for i, count := range out {
		out[i] = count * v.IDF[i]
	}
	if norm := out.Norm(); norm > 0 {
		for i := range out {
			out[i] /= norm
		}
	}
	return out
}

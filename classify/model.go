// Package classify implements the category classifier used as a retrieval
// shortcut: a TF-IDF vectorizer feeding a multinomial naive Bayes model.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTooFewSamples   = errors.New("classify: too few samples")
	ErrDegenerate      = errors.New("classify: degenerate training set")
	ErrCorruptArtifact = errors.New("classify: corrupt artifact")
)

// Artifact names used by storage backends.
const (
	VectorizerArtifact = "vetorizador"
	ClassifierArtifact = "modelo_ml"
)

// Sample is one training pair.
type Sample struct {
	Text  string
	Label string
}

type Prediction struct {
	Category    string
	Probability float64
}

type TrainOptions struct {
	MinSamples  int
	MaxFeatures int
	Alpha       float64
	// Holdout estimation only runs with at least this many samples.
	EvalMinSamples int
	Seed           uint64
}

func defaultTrainOptions() TrainOptions {
	return TrainOptions{
		MinSamples:     5,
		MaxFeatures:    DefaultMaxFeatures,
		Alpha:          1.0,
		EvalMinSamples: 10,
		Seed:           42,
	}
}

// Model is an immutable trained classifier. Samples records how many
// training pairs produced it so callers can tell when it is stale.
type Model struct {
	ID         uuid.UUID
	TrainedAt  time.Time
	Samples    int
	Accuracy   float64
	Evaluated  bool
	Vectorizer *Vectorizer
	Classifier *NaiveBayes
}

// Train fits a new model. Zero-valued option fields take defaults.
func Train(samples []Sample, opts TrainOptions) (*Model, error) {
	def := defaultTrainOptions()
	if opts.MinSamples <= 0 {
		opts.MinSamples = def.MinSamples
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = def.MaxFeatures
	}
	if opts.Alpha <= 0 {
		opts.Alpha = def.Alpha
	}
	if opts.EvalMinSamples <= 0 {
		opts.EvalMinSamples = def.EvalMinSamples
	}
	if opts.Seed == 0 {
		opts.Seed = def.Seed
	}
	if len(samples) < opts.MinSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooFewSamples, len(samples), opts.MinSamples)
	}

	vec, nb, err := fit(samples, opts)
	if err != nil {
		return nil, err
	}
	m := &Model{
		ID:         uuid.New(),
		TrainedAt:  time.Now().UTC().Truncate(time.Second),
		Samples:    len(samples),
		Vectorizer: vec,
		Classifier: nb,
	}
	if len(samples) >= opts.EvalMinSamples {
		if acc, ok := holdoutAccuracy(samples, opts); ok {
			m.Accuracy = acc
			m.Evaluated = true
		}
	}
	return m, nil
}

func fit(samples []Sample, opts TrainOptions) (*Vectorizer, *NaiveBayes, error) {
	docs := make([]string, len(samples))
	labels := make([]string, len(samples))
	for i, s := range samples {
		docs[i] = s.Text
		labels[i] = s.Label
	}
	vec := FitVectorizer(docs, opts.MaxFeatures)
	if vec.Features() == 0 {
		return nil, nil, fmt.Errorf("%w: empty vocabulary", ErrDegenerate)
	}
	x := make([]Vector, len(docs))
	for i, d := range docs {
		x[i] = vec.Transform(d)
	}
	nb, err := FitNaiveBayes(x, labels, vec.Features(), opts.Alpha)
	if err != nil {
		return nil, nil, err
	}
	return vec, nb, nil
}

// holdoutAccuracy scores an 80/20 split with a fixed shuffle.
func holdoutAccuracy(samples []Sample, opts TrainOptions) (float64, bool) {
	shuffled := append([]Sample(nil), samples...)
	r := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	cut := len(shuffled) * 8 / 10
	train, test := shuffled[:cut], shuffled[cut:]
	if len(test) == 0 {
		return 0, false
	}
	vec, nb, err := fit(train, opts)
	if err != nil {
		return 0, false
	}
	hits := 0
	for _, s := range test {
		if nb.Predict(vec.Transform(s.Text)) == s.Label {
			hits++
		}
	}
	return float64(hits) / float64(len(test)), true
}

// Vectorize maps text into the model's feature space.
func (m *Model) Vectorize(text string) Vector {
	return m.Vectorizer.Transform(text)
}

// Predict ranks every category by posterior probability, highest first.
// Equal probabilities order by category name.
func (m *Model) Predict(text string) []Prediction {
	return m.PredictVector(m.Vectorize(text))
}

func (m *Model) PredictVector(x Vector) []Prediction {
	probs := m.Classifier.PredictProba(x)
	out := make([]Prediction, len(probs))
	for i, p := range probs {
		out[i] = Prediction{Category: m.Classifier.Classes[i], Probability: p}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Probability == out[j].Probability {
			return out[i].Category < out[j].Category
		}
		return out[i].Probability > out[j].Probability
	})
	return out
}

type vectorizerBlob struct {
	ModelID   uuid.UUID `json:"model_id"`
	Samples   int       `json:"samples"`
	TrainedAt time.Time `json:"trained_at"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	*Vectorizer
}

type classifierBlob struct {
	ModelID uuid.UUID `json:"model_id"`
	*NaiveBayes
}

// MarshalArtifacts encodes the vectorizer and classifier as two blobs that
// share the model ID.
func (m *Model) MarshalArtifacts() (vectorizer, classifier []byte, err error) {
	vb := vectorizerBlob{ModelID: m.ID, Samples: m.Samples, TrainedAt: m.TrainedAt, Vectorizer: m.Vectorizer}
	if m.Evaluated {
		acc := m.Accuracy
		vb.Accuracy = &acc
	}
	if vectorizer, err = json.Marshal(vb); err != nil {
		return nil, nil, err
	}
	if classifier, err = json.Marshal(classifierBlob{ModelID: m.ID, NaiveBayes: m.Classifier}); err != nil {
		return nil, nil, err
	}
	return vectorizer, classifier, nil
}

// UnmarshalArtifacts rebuilds a model from the blobs written by
// MarshalArtifacts. Mismatched or malformed blobs yield ErrCorruptArtifact.
func UnmarshalArtifacts(vectorizer, classifier []byte) (*Model, error) {
	var vb vectorizerBlob
	if err := json.Unmarshal(vectorizer, &vb); err != nil {
		return nil, fmt.Errorf("%w: vectorizer: %v", ErrCorruptArtifact, err)
	}
	var cb classifierBlob
	if err := json.Unmarshal(classifier, &cb); err != nil {
		return nil, fmt.Errorf("%w: classifier: %v", ErrCorruptArtifact, err)
	}
	if vb.Vectorizer == nil || cb.NaiveBayes == nil {
		return nil, fmt.Errorf("%w: missing tables", ErrCorruptArtifact)
	}
	if vb.ModelID != cb.ModelID {
		return nil, fmt.Errorf("%w: vectorizer %s does not belong to classifier %s", ErrCorruptArtifact, vb.ModelID, cb.ModelID)
	}
	if err := vb.Vectorizer.validate(); err != nil {
		return nil, err
	}
	if err := cb.validate(len(vb.IDF)); err != nil {
		return nil, err
	}
	m := &Model{
		ID:         vb.ModelID,
		TrainedAt:  vb.TrainedAt,
		Samples:    vb.Samples,
		Vectorizer: vb.Vectorizer,
		Classifier: cb.NaiveBayes,
	}
	if vb.Accuracy != nil {
		m.Accuracy = *vb.Accuracy
		m.Evaluated = true
	}
	return m, nil
}

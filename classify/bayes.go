package classify

import (
	"fmt"
	"math"
	"sort"
)

// NaiveBayes is a multinomial naive Bayes model over non-negative feature
// vectors.
type NaiveBayes struct {
	Classes        []string    `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
}

// FitNaiveBayes trains with additive smoothing alpha. Classes are kept in
// sorted order.
func FitNaiveBayes(x []Vector, y []string, features int, alpha float64) (*NaiveBayes, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d vectors for %d labels", ErrDegenerate, len(x), len(y))
	}
	if len(x) == 0 {
		return nil, ErrTooFewSamples
	}
	index := map[string]int{}
	for _, label := range y {
		index[label] = 0
	}
	if len(index) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 categories, have %d", ErrDegenerate, len(index))
	}
	classes := make([]string, 0, len(index))
	for label := range index {
		classes = append(classes, label)
	}
	sort.Strings(classes)
	for i, c := range classes {
		index[c] = i
	}

	counts := make([]float64, len(classes))
	featureCount := make([][]float64, len(classes))
	for i := range featureCount {
		featureCount[i] = make([]float64, features)
	}
	for i, vec := range x {
		c := index[y[i]]
		counts[c]++
		for f, val := range vec {
			if f >= 0 && f < features {
				featureCount[c][f] += val
			}
		}
	}

	nb := &NaiveBayes{
		Classes:        classes,
		ClassLogPrior:  make([]float64, len(classes)),
		FeatureLogProb: make([][]float64, len(classes)),
	}
	total := float64(len(x))
	for c := range classes {
		nb.ClassLogPrior[c] = math.Log(counts[c] / total)
		var sum float64
		for _, v := range featureCount[c] {
			sum += v + alpha
		}
		row := make([]float64, features)
		for f, v := range featureCount[c] {
			row[f] = math.Log((v + alpha) / sum)
		}
		nb.FeatureLogProb[c] = row
	}
	return nb, nil
}

// PredictProba returns the posterior per class, aligned with Classes.
func (nb *NaiveBayes) PredictProba(x Vector) []float64 {
	joint := make([]float64, len(nb.Classes))
	for c := range nb.Classes {
		joint[c] = nb.ClassLogPrior[c]
		row := nb.FeatureLogProb[c]
		for f, val := range x {
			if f >= 0 && f < len(row) {
				joint[c] += val * row[f]
			}
		}
	}
	maxLog := math.Inf(-1)
	for _, j := range joint {
		maxLog = math.Max(maxLog, j)
	}
	var sum float64
	probs := make([]float64, len(joint))
	for c, j := range joint {
		probs[c] = math.Exp(j - maxLog)
		sum += probs[c]
	}
	for c := range probs {
		probs[c] /= sum
	}
	return probs
}

func (nb *NaiveBayes) Predict(x Vector) string {
	probs := nb.PredictProba(x)
	best := 0
	for c := range probs {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return nb.Classes[best]
}

func (nb *NaiveBayes) validate(features int) error {
	if len(nb.Classes) < 2 || len(nb.ClassLogPrior) != len(nb.Classes) || len(nb.FeatureLogProb) != len(nb.Classes) {
		return fmt.Errorf("%w: class tables do not line up", ErrCorruptArtifact)
	}
	for _, row := range nb.FeatureLogProb {
		if len(row) != features {
			return fmt.Errorf("%w: feature table has %d columns, vocabulary has %d", ErrCorruptArtifact, len(row), features)
		}
	}
	return nil
}

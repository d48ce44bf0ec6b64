// Package model holds the kick direction classifier and the artifact that
// ties a trained model to its feature schema, scaler and label mapping.
package model

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Classifier maps a batch of scaled [T x F] sequences to class
// probabilities, one vector of length C per sequence in label index order.
type Classifier interface {
	Predict(ctx context.Context, batch []*mat.Dense) ([][]float64, error)
	Close() error
}

// StaticClassifier returns the same probabilities for every sequence. It is
// used in tests and when serving without a trained model.
type StaticClassifier struct {
	mu     sync.Mutex
	probs  []float64
	err    error
	inputs []*mat.Dense
}

// NewStaticClassifier creates a classifier that always returns probs.
func NewStaticClassifier(probs []float64) *StaticClassifier {
	return &StaticClassifier{probs: append([]float64(nil), probs...)}
}

// SetError makes subsequent predictions fail with err.
func (c *StaticClassifier) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Inputs returns every sequence the classifier has been called with.
func (c *StaticClassifier) Inputs() []*mat.Dense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*mat.Dense(nil), c.inputs...)
}

// Predict implements Classifier.
func (c *StaticClassifier) Predict(ctx context.Context, batch []*mat.Dense) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}

	out := make([][]float64, len(batch))
	for i, seq := range batch {
		c.inputs = append(c.inputs, mat.DenseCopyOf(seq))
		out[i] = append([]float64(nil), c.probs...)
	}
	return out, nil
}

// Close implements Classifier.
func (c *StaticClassifier) Close() error {
	return nil
}

// Argmax returns the index of the largest probability.
func Argmax(probs []float64) (int, error) {
	if len(probs) == 0 {
		return 0, fmt.Errorf("empty probability vector")
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best, nil
}

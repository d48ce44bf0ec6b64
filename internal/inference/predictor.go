// Package inference turns the landmark rows of a single kick into a
// direction prediction using the same feature path as dataset generation.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/metrics"
	"github.com/urdof7/penalty-kick-prediction/internal/model"
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

// ErrNoPoseData is returned when a kick has no usable landmark rows.
var ErrNoPoseData = errors.New("no pose data for kick")

// Prediction is the classifier output for one kick.
type Prediction struct {
	KickID        int64     `json:"kick_id"`
	Probabilities []float64 `json:"quadrant_probs"`
	Directions    []int     `json:"directions"`
	Direction     int       `json:"direction"`
	DirectionName string    `json:"direction_name"`
	SchemaVersion string    `json:"schema_version"`
}

// Predictor serves predictions for one model artifact. It holds no mutable
// state and is safe for concurrent use as long as its classifier is.
type Predictor struct {
	extractor  *features.Extractor
	scaler     *features.Scaler
	labels     features.LabelMap
	classifier model.Classifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewPredictor creates a predictor for artifact. The artifact's columns must
// equal its schema's columns in order.
func NewPredictor(artifact *model.Artifact, classifier model.Classifier, m *metrics.Metrics, logger *slog.Logger) (*Predictor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		return nil, errors.New("nil classifier")
	}

	schema, err := artifact.Schema()
	if err != nil {
		return nil, err
	}
	if err := features.CheckColumns(schema.Names(), artifact.Columns); err != nil {
		return nil, fmt.Errorf("artifact does not match schema %s: %w", schema.Version, err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, err
	}

	return &Predictor{
		extractor:  features.NewExtractor(schema),
		scaler:     artifact.Scaler,
		labels:     artifact.Labels,
		classifier: classifier,
		metrics:    m,
		logger:     logger.With("module", "inference"),
	}, nil
}

// Schema returns the predictor's feature schema.
func (p *Predictor) Schema() *features.Schema {
	return p.extractor.Schema()
}

// Labels returns the predictor's label mapping.
func (p *Predictor) Labels() features.LabelMap {
	return p.labels
}

// Close releases the predictor's classifier.
func (p *Predictor) Close() error {
	return p.classifier.Close()
}

// kick collects rows into a single kick, logging names that were skipped.
func (p *Predictor) kick(rows []pose.Row) (pose.Kick, error) {
	if len(rows) == 0 {
		return pose.Kick{}, ErrNoPoseData
	}
	kick, report := pose.KickFromRows(rows)
	for raw, c := range report.Unknown {
		p.logger.Warn("unknown landmark name", "name", raw, "rows", c, "kick_id", kick.KickID)
	}
	if len(kick.Frames) == 0 {
		return kick, ErrNoPoseData
	}
	return kick, nil
}

// Features builds the unscaled [TargetLength x F] sequence of a kick.
// Missing columns are zero-filled and the sequence is padded or truncated to
// the target length.
func (p *Predictor) Features(rows []pose.Row) (*mat.Dense, error) {
	kick, err := p.kick(rows)
	if err != nil {
		return nil, err
	}
	m, _ := p.extractor.Matrix(kick, features.Lenient)
	return m, nil
}

// Predict scales a kick's sequence and runs the classifier. The probability
// vector is returned as produced, in label index order.
func (p *Predictor) Predict(ctx context.Context, rows []pose.Row) (*Prediction, error) {
	start := time.Now()
	pred, err := p.predict(ctx, rows)

	status := "success"
	switch {
	case errors.Is(err, ErrNoPoseData):
		status = "no_pose_data"
	case err != nil:
		status = "error"
	}
	p.metrics.RecordPrediction(p.Schema().Version, status, time.Since(start))
	return pred, err
}

func (p *Predictor) predict(ctx context.Context, rows []pose.Row) (*Prediction, error) {
	seq, err := p.Features(rows)
	if err != nil {
		return nil, err
	}
	scaled, err := p.scaler.TransformSequence(seq)
	if err != nil {
		return nil, fmt.Errorf("failed to scale features: %w", err)
	}

	out, err := p.classifier.Predict(ctx, []*mat.Dense{scaled})
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("classifier returned %d results for one sequence", len(out))
	}
	probs := out[0]
	if len(probs) != p.labels.NumClasses() {
		return nil, fmt.Errorf("classifier returned %d probabilities, expected %d", len(probs), p.labels.NumClasses())
	}

	best, err := model.Argmax(probs)
	if err != nil {
		return nil, err
	}
	direction, err := p.labels.Decode(best)
	if err != nil {
		return nil, err
	}

	return &Prediction{
		KickID:        rows[0].KickID,
		Probabilities: probs,
		Directions:    append([]int(nil), p.labels.Labels...),
		Direction:     direction,
		DirectionName: features.DirectionNames[direction],
		SchemaVersion: p.Schema().Version,
	}, nil
}

// FrameFeatures is one frame's engineered features keyed by column name.
type FrameFeatures struct {
	FrameNo  uint32             `json:"frame_no"`
	Features map[string]float64 `json:"features"`
}

// Engineered returns the normalized per-frame features of a kick along with
// the reference used to normalize it. Frames are not padded.
func (p *Predictor) Engineered(rows []pose.Row) ([]FrameFeatures, features.Reference, error) {
	kick, err := p.kick(rows)
	if err != nil {
		return nil, features.Reference{}, err
	}
	frames, ref := engineer(p.extractor, kick)
	return frames, ref, nil
}

// Engineered computes the per-frame features of a kick under schema without
// a trained model.
func Engineered(schema *features.Schema, rows []pose.Row) ([]FrameFeatures, features.Reference, error) {
	if len(rows) == 0 {
		return nil, features.Reference{}, ErrNoPoseData
	}
	kick, _ := pose.KickFromRows(rows)
	if len(kick.Frames) == 0 {
		return nil, features.Reference{}, ErrNoPoseData
	}
	frames, ref := engineer(features.NewExtractor(schema), kick)
	return frames, ref, nil
}

func engineer(e *features.Extractor, kick pose.Kick) ([]FrameFeatures, features.Reference) {
	schema := e.Schema()
	frames, ref := e.NormalizeKick(kick)
	out := make([]FrameFeatures, len(frames))
	for i, f := range frames {
		out[i] = FrameFeatures{
			FrameNo:  f.FrameNo,
			Features: schema.RowMap(schema.Row(f.Landmarks)),
		}
	}
	return out, ref
}

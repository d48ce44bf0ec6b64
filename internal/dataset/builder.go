// Package dataset builds training datasets of kick feature sequences from
// stored landmark rows.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/metrics"
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
)

// Drop reasons reported in the build report and the dropped-kicks metric.
const (
	ReasonLength    = "length"
	ReasonUnlabeled = "unlabeled"
)

// Report summarizes a dataset build.
type Report struct {
	Total            int            `codec:"," json:"total"`
	Kept             int            `codec:"," json:"kept"`
	DroppedLength    int            `codec:"," json:"dropped_length"`
	DroppedUnlabeled int            `codec:"," json:"dropped_unlabeled"`
	CorpusMaxLength  int            `codec:"," json:"corpus_max_length"`
	TargetLength     int            `codec:"," json:"target_length"`
	Untracked        map[string]int `codec:"," json:"untracked,omitempty"`
	Unknown          map[string]int `codec:"," json:"unknown,omitempty"`
}

// Dropped returns the number of kicks left out of the dataset.
func (r Report) Dropped() int {
	return r.DroppedLength + r.DroppedUnlabeled
}

// Builder turns raw landmark rows and their kick directions into datasets
// for one feature schema.
type Builder struct {
	extractor *features.Extractor
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewBuilder creates a builder for schema. A nil logger uses slog.Default and
// a nil metrics records nothing.
func NewBuilder(schema *features.Schema, logger *slog.Logger, m *metrics.Metrics) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		extractor: features.NewExtractor(schema),
		logger:    logger.With("module", "dataset"),
		metrics:   m,
	}
}

// Schema returns the builder's feature schema.
func (b *Builder) Schema() *features.Schema {
	return b.extractor.Schema()
}

// collect groups rows into labeled kicks and records the skipped names.
func (b *Builder) collect(rows []pose.Row, directions map[int64]int, report *Report) []pose.Kick {
	kicks, names := pose.Collect(rows)
	report.Total = len(kicks)
	report.Untracked = names.Untracked
	report.Unknown = names.Unknown
	report.TargetLength = b.Schema().TargetLength

	untracked, unknown := 0, 0
	for _, c := range names.Untracked {
		untracked += c
	}
	for raw, c := range names.Unknown {
		unknown += c
		b.logger.Warn("unknown landmark name", "name", raw, "rows", c)
	}
	b.metrics.RecordSkippedLandmarks(untracked, unknown)

	labeled := kicks[:0]
	for _, k := range kicks {
		k.Direction = directions[k.KickID]
		if k.Direction == 0 {
			report.DroppedUnlabeled++
			b.metrics.RecordDroppedKick(ReasonUnlabeled)
			b.logger.Debug("dropping unlabeled kick", "kick_id", k.KickID)
			continue
		}
		labeled = append(labeled, k)
	}
	return labeled
}

// Build assembles the sequence dataset. Every kick becomes a TargetLength x F
// matrix under the strict policy, so kicks with any other frame count are
// dropped.
//
// Kicks are measured against the schema's TargetLength, not against the
// longest kick of the corpus. Training and serving therefore agree on the
// sequence length however the corpus is composed. The corpus maximum is
// still computed and kept in Report.CorpusMaxLength, and a warning is
// logged when it differs from TargetLength.
func (b *Builder) Build(rows []pose.Row, directions map[int64]int) (*Bundle, error) {
	var report Report
	kicks := b.collect(rows, directions, &report)

	lengths := make([]int, len(kicks))
	for i, k := range kicks {
		lengths[i] = len(k.Frames)
	}
	report.CorpusMaxLength = features.CorpusMaxLength(lengths)
	if len(kicks) > 0 && report.CorpusMaxLength != report.TargetLength {
		b.logger.Warn("corpus max length differs from target length",
			"corpus_max", report.CorpusMaxLength,
			"target", report.TargetLength)
	}

	schema := b.Schema()
	bundle := &Bundle{
		SchemaVersion: schema.Version,
		Columns:       schema.Names(),
		TargetLength:  schema.TargetLength,
	}
	for _, k := range kicks {
		m, ok := b.extractor.Matrix(k, features.Strict)
		if !ok {
			report.DroppedLength++
			b.metrics.RecordDroppedKick(ReasonLength)
			b.logger.Info("dropping kick with unexpected frame count",
				"kick_id", k.KickID,
				"frames", len(k.Frames),
				"target", schema.TargetLength)
			continue
		}
		bundle.X = append(bundle.X, features.Rows(m))
		bundle.Y = append(bundle.Y, k.Direction)
		bundle.KickIDs = append(bundle.KickIDs, k.KickID)
	}

	report.Kept = len(bundle.KickIDs)
	b.metrics.RecordBuiltKicks(report.Kept)
	bundle.Report = report

	if report.Kept == 0 {
		return bundle, fmt.Errorf("no kicks with %d frames out of %d", schema.TargetLength, report.Total)
	}
	b.logger.Info("dataset built",
		"schema", schema.Version,
		"kept", report.Kept,
		"dropped", report.Dropped(),
		"corpus_max", report.CorpusMaxLength)
	return bundle, nil
}

// BuildFrames assembles the single-frame table: one row per labeled kick,
// taken from its reference frame normalized on itself.
func (b *Builder) BuildFrames(rows []pose.Row, directions map[int64]int) (*FrameTable, Report) {
	var report Report
	kicks := b.collect(rows, directions, &report)

	table := &FrameTable{Columns: b.Schema().Names()}
	for _, k := range kicks {
		pose.SortFrames(k.Frames)
		ref, ok := b.extractor.ReferenceFrame(k.Frames)
		if !ok {
			continue
		}
		values, _ := b.extractor.FrameRow(ref)
		table.Rows = append(table.Rows, FrameRow{
			KickID:    k.KickID,
			Values:    values,
			Direction: k.Direction,
		})
	}
	report.Kept = len(table.Rows)
	b.metrics.RecordBuiltKicks(report.Kept)
	return table, report
}

// Source is the subset of the store the builder reads from.
type Source interface {
	LabeledRows(ctx context.Context) ([]pose.Row, error)
	Directions(ctx context.Context) (map[int64]int, error)
}

type storeSource struct {
	s *store.Store
}

// StoreSource reads labeled landmark rows and directions from s.
func StoreSource(s *store.Store) Source {
	return storeSource{s: s}
}

func (src storeSource) LabeledRows(ctx context.Context) ([]pose.Row, error) {
	return src.s.Poses().LabeledRows(ctx)
}

func (src storeSource) Directions(ctx context.Context) (map[int64]int, error) {
	return src.s.Kicks().Directions(ctx)
}

// Load fetches the rows and directions of every labeled kick from src.
func Load(ctx context.Context, src Source) ([]pose.Row, map[int64]int, error) {
	rows, err := src.LabeledRows(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load landmark rows: %w", err)
	}
	directions, err := src.Directions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load kick directions: %w", err)
	}
	return rows, directions, nil
}

// Matrices returns the bundle's sequences as matrices.
func (b *Bundle) Matrices() []*mat.Dense {
	out := make([]*mat.Dense, len(b.X))
	for i, seq := range b.X {
		m := mat.NewDense(b.TargetLength, len(b.Columns), nil)
		for t, row := range seq {
			m.SetRow(t, row)
		}
		out[i] = m
	}
	return out
}

// Sequences returns the bundle's sequences with labels encoded by labels.
func (b *Bundle) Sequences(labels features.LabelMap) ([]features.Sequence, error) {
	encoded, err := labels.EncodeAll(b.Y)
	if err != nil {
		return nil, err
	}
	matrices := b.Matrices()
	out := make([]features.Sequence, len(matrices))
	for i, m := range matrices {
		out[i] = features.Sequence{KickID: b.KickIDs[i], Matrix: m, Label: encoded[i]}
	}
	return out, nil
}

// Summary describes a bundle's shape and label distribution.
type Summary struct {
	SchemaVersion string      `json:"schema_version"`
	Shape         [3]int      `json:"shape"`
	Labels        map[int]int `json:"labels"`
	Report        Report      `json:"report"`
}

// Summary computes the bundle's summary.
func (b *Bundle) Summary() Summary {
	s := Summary{
		SchemaVersion: b.SchemaVersion,
		Shape:         [3]int{len(b.X), b.TargetLength, len(b.Columns)},
		Labels:        make(map[int]int),
		Report:        b.Report,
	}
	for _, y := range b.Y {
		s.Labels[y]++
	}
	return s
}

// SortedLabels returns the summary's labels in ascending order.
func (s Summary) SortedLabels() []int {
	out := make([]int, 0, len(s.Labels))
	for l := range s.Labels {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

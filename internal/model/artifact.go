package model

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/urdof7/penalty-kick-prediction/internal/dataset"
	"github.com/urdof7/penalty-kick-prediction/internal/features"
)

// Artifact records everything needed to serve a trained model: the feature
// schema it was trained on, the fitted scaler, the label mapping and the
// model file.
type Artifact struct {
	SchemaVersion string            `yaml:"schema_version"`
	Columns       []string          `yaml:"columns"`
	TargetLength  int               `yaml:"target_length"`
	Scaler        *features.Scaler  `yaml:"scaler"`
	Labels        features.LabelMap `yaml:",inline"`
	ModelPath     string            `yaml:"model_path,omitempty"`

	// dir is the directory the artifact was loaded from. A relative
	// ModelPath is resolved against it.
	dir string
}

// Fit builds an artifact from a training bundle: the scaler is fitted on
// every sequence of the bundle and each label must be covered by labels.
func Fit(bundle *dataset.Bundle, labels features.LabelMap, modelPath string) (*Artifact, error) {
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	if len(bundle.X) == 0 {
		return nil, fmt.Errorf("bundle has no sequences")
	}
	if _, err := labels.EncodeAll(bundle.Y); err != nil {
		return nil, fmt.Errorf("bundle labels: %w", err)
	}

	scaler, err := features.FitScaler(bundle.Matrices(), bundle.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}

	a := &Artifact{
		SchemaVersion: bundle.SchemaVersion,
		Columns:       append([]string(nil), bundle.Columns...),
		TargetLength:  bundle.TargetLength,
		Scaler:        scaler,
		Labels:        labels,
		ModelPath:     modelPath,
	}
	return a, a.Validate()
}

// Validate checks the artifact against its registered schema.
func (a *Artifact) Validate() error {
	schema, err := features.Lookup(a.SchemaVersion)
	if err != nil {
		return err
	}
	if err := features.CheckColumns(schema.Names(), a.Columns); err != nil {
		return fmt.Errorf("artifact columns: %w", err)
	}
	if a.TargetLength != schema.TargetLength {
		return fmt.Errorf("artifact target length %d differs from schema %s length %d",
			a.TargetLength, schema.Version, schema.TargetLength)
	}
	if a.Scaler == nil {
		return fmt.Errorf("artifact has no scaler")
	}
	if err := a.Scaler.Validate(); err != nil {
		return err
	}
	if err := features.CheckColumns(a.Columns, a.Scaler.Columns); err != nil {
		return fmt.Errorf("scaler columns: %w", err)
	}
	return a.Labels.Validate()
}

// Schema returns the feature schema the artifact was trained on.
func (a *Artifact) Schema() (*features.Schema, error) {
	return features.Lookup(a.SchemaVersion)
}

// ResolvedModelPath returns ModelPath, resolved against the artifact's
// directory when relative.
func (a *Artifact) ResolvedModelPath() string {
	if a.ModelPath == "" || filepath.IsAbs(a.ModelPath) || a.dir == "" {
		return a.ModelPath
	}
	return filepath.Join(a.dir, a.ModelPath)
}

// Save writes the artifact to path as YAML.
func (a *Artifact) Save(path string) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads and validates the artifact at path.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", path, err)
	}
	a.dir = filepath.Dir(path)
	return &a, nil
}

// Open loads the artifact's classifier. Without a model path a
// StaticClassifier with uniform probabilities is returned, which keeps the
// feature pipeline usable before a model has been trained.
func (a *Artifact) Open(threads int, opts ...OpenOption) (Classifier, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	path := a.ResolvedModelPath()
	if path == "" {
		n := a.Labels.NumClasses()
		probs := make([]float64, n)
		for i := range probs {
			probs[i] = 1 / float64(n)
		}
		return NewStaticClassifier(probs), nil
	}
	return NewTFLiteClassifier(path, threads, o.logger)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/urdof7/penalty-kick-prediction/internal/dataset"
	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/model"
)

func fitCommand(cc *cliContext) *cobra.Command {
	var (
		fitLabels bool
		noModel   bool
	)

	cmd := &cobra.Command{
		Use:   "fit [bundle.msgpack]",
		Short: "Fit the feature scaler and write a model artifact",
		Long: `Fit the per-column feature scaler on a dataset bundle and write the model
artifact that binds the scaler, the feature schema, the label mapping and the
trained model file together for serving.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := dataset.LoadBundle(args[0])
			if err != nil {
				return err
			}

			labels := features.QuadrantLabels
			if fitLabels {
				labels = features.FitLabelMap(bundle.Y)
			}

			modelPath := cc.settings.Model.Path
			if noModel {
				modelPath = ""
			}

			artifactPath := cc.settings.Model.Artifact
			artifact, err := model.Fit(bundle, labels, relativeTo(filepath.Dir(artifactPath), modelPath))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(artifactPath), 0o755); err != nil {
				return fmt.Errorf("failed to create artifact directory: %w", err)
			}
			if err := artifact.Save(artifactPath); err != nil {
				return err
			}

			cc.logger.Info("wrote model artifact",
				"path", artifactPath,
				"schema", artifact.SchemaVersion,
				"sequences", len(bundle.X),
				"classes", artifact.Labels.NumClasses(),
				"model", artifact.ModelPath)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("artifact", "", "Output path of the model artifact")
	flags.String("model-path", "", "Path of the trained TFLite model")
	flags.BoolVar(&fitLabels, "fit-labels", false, "Derive the label mapping from the bundle instead of using the six quadrants")
	flags.BoolVar(&noModel, "no-model", false, "Write an artifact without a model file")

	cc.bind(cmd, map[string]string{
		"model.artifact": "artifact",
		"model.path":     "model-path",
	})

	return cmd
}

// relativeTo expresses path relative to dir when possible so artifacts stay
// valid when their directory is moved together with the model.
func relativeTo(dir, path string) string {
	if path == "" || !filepath.IsAbs(path) {
		return path
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absDir, path)
	if err != nil {
		return path
	}
	return rel
}

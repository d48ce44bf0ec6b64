package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/urdof7/penalty-kick-prediction/internal/dataset"
)

// Dataset output modes.
const (
	modeSequence = "sequence"
	modeFrame    = "frame"
)

func datasetCommand(cc *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build a training dataset from labeled kicks",
		Long: `Build a training dataset from the labeled kicks in the database.

In sequence mode every kick becomes a fixed-length feature sequence and the
result is written as a msgpack bundle. In frame mode every kick contributes
its reference frame and the result is written as CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDataset(cmd, cc)
		},
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "Output file")
	flags.StringP("mode", "m", "", "Output mode: sequence, frame")

	cc.bind(cmd, map[string]string{
		"dataset.output": "output",
		"dataset.mode":   "mode",
	})

	return cmd
}

func runDataset(cmd *cobra.Command, cc *cliContext) error {
	settings := cc.settings
	mode := settings.Dataset.Mode
	if mode != modeSequence && mode != modeFrame {
		return fmt.Errorf("unknown dataset mode %q", mode)
	}

	schema, err := cc.schema()
	if err != nil {
		return err
	}

	st, err := cc.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rows, directions, err := dataset.Load(cmd.Context(), dataset.StoreSource(st))
	if err != nil {
		return err
	}

	_, m, err := cc.newMetrics()
	if err != nil {
		return err
	}
	builder := dataset.NewBuilder(schema, cc.logger, m)

	output := settings.Dataset.Output
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if mode == modeFrame {
		table, report := builder.BuildFrames(rows, directions)
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		if err := table.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		cc.logger.Info("wrote frame table",
			"path", output,
			"rows", len(table.Rows),
			"columns", len(table.Header()),
			"dropped", report.Dropped())
		return nil
	}

	bundle, err := builder.Build(rows, directions)
	if err != nil {
		return err
	}
	if err := bundle.Save(output); err != nil {
		return err
	}

	summary := bundle.Summary()
	cc.logger.Info("wrote dataset bundle",
		"path", output,
		"schema", summary.SchemaVersion,
		"shape", summary.Shape,
		"dropped_length", bundle.Report.DroppedLength,
		"dropped_unlabeled", bundle.Report.DroppedUnlabeled)
	return nil
}

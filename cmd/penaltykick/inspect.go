package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/urdof7/penalty-kick-prediction/internal/dataset"
	"github.com/urdof7/penalty-kick-prediction/internal/features"
)

func inspectCommand(cc *cliContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect [bundle.msgpack]",
		Short: "Show a dataset bundle's shape and label distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := dataset.LoadBundle(args[0])
			if err != nil {
				return err
			}
			summary := bundle.Summary()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")

	return cmd
}

func printSummary(w io.Writer, s dataset.Summary) {
	fmt.Fprintf(w, "schema:   %s\n", s.SchemaVersion)
	fmt.Fprintf(w, "shape:    %d x %d x %d\n", s.Shape[0], s.Shape[1], s.Shape[2])
	fmt.Fprintf(w, "kicks:    %d total, %d kept, %d dropped (length %d, unlabeled %d)\n",
		s.Report.Total, s.Report.Kept, s.Report.Dropped(),
		s.Report.DroppedLength, s.Report.DroppedUnlabeled)
	fmt.Fprintln(w, "labels:")
	for _, label := range s.SortedLabels() {
		name := features.DirectionNames[label]
		if name == "" {
			name = "?"
		}
		fmt.Fprintf(w, "  %d %-3s %d\n", label, name, s.Labels[label])
	}
}

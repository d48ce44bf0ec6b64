package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/inference"
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

func predictCommand(cc *cliContext) *cobra.Command {
	var rowsFile string

	cmd := &cobra.Command{
		Use:   "predict [kick-id]",
		Short: "Predict the direction of a stored kick",
		Long: `Predict the direction of a kick from its stored landmarks, or from a JSON
file of landmark rows given with --rows.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if rowsFile != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := predictRows(cmd, cc, rowsFile, args)
			if err != nil {
				return err
			}

			_, m, err := cc.newMetrics()
			if err != nil {
				return err
			}
			predictor, err := cc.loadPredictor(cc.settings.Model.Artifact, m)
			if err != nil {
				return err
			}
			defer predictor.Close()

			prediction, err := predictor.Predict(cmd.Context(), rows)
			if errors.Is(err, inference.ErrNoPoseData) {
				return fmt.Errorf("%w: run pose detection for this kick first", err)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(prediction)
		},
	}

	flags := cmd.Flags()
	flags.String("artifact", "", "Path to the model artifact")
	flags.StringVar(&rowsFile, "rows", "", "JSON file with landmark rows of one kick")

	cc.bind(cmd, map[string]string{
		"model.artifact": "artifact",
	})

	return cmd
}

func predictRows(cmd *cobra.Command, cc *cliContext, rowsFile string, args []string) ([]pose.Row, error) {
	if rowsFile != "" {
		data, err := os.ReadFile(rowsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read rows: %w", err)
		}
		var rows []pose.Row
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse rows %s: %w", rowsFile, err)
		}
		return rows, nil
	}

	kickID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid kick id %q", args[0])
	}

	st, err := cc.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	kick, err := st.Kicks().GetByID(cmd.Context(), kickID)
	if err != nil {
		return nil, fmt.Errorf("kick %d: %w", kickID, err)
	}
	if kick.Direction != nil {
		cc.logger.Info("kick is labeled",
			"kick_id", kickID,
			"direction", *kick.Direction,
			"name", features.DirectionNames[*kick.Direction])
	}
	return st.Poses().RowsForKick(cmd.Context(), kickID)
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/urdof7/penalty-kick-prediction/internal/conf"
	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/inference"
	"github.com/urdof7/penalty-kick-prediction/internal/logging"
	"github.com/urdof7/penalty-kick-prediction/internal/metrics"
	"github.com/urdof7/penalty-kick-prediction/internal/model"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
)

// cliContext carries the state shared by all subcommands. Settings and
// logger are populated by the root command before a subcommand runs.
type cliContext struct {
	viper      *viper.Viper
	configFile string
	envFiles   []string
	settings   *conf.Settings
	logger     *slog.Logger

	// bindings maps settings keys to flag names per command. They are bound
	// only for the command being run so commands may share a key.
	bindings map[*cobra.Command]map[string]string
}

// RootCommand creates the penaltykick command tree.
func RootCommand() *cobra.Command {
	cc := &cliContext{
		viper:    viper.New(),
		bindings: make(map[*cobra.Command]map[string]string),
	}

	rootCmd := &cobra.Command{
		Use:           "penaltykick",
		Short:         "Penalty kick direction prediction",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.initialize(cmd)
		},
	}

	setupFlags(rootCmd, cc)

	rootCmd.AddCommand(
		serveCommand(cc),
		datasetCommand(cc),
		fitCommand(cc),
		inspectCommand(cc),
		predictCommand(cc),
	)

	return rootCmd
}

// setupFlags defines the global flags.
func setupFlags(rootCmd *cobra.Command, cc *cliContext) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cc.configFile, "config", "c", "", "Path to the config file (default: ./config.yaml or ~/.penaltykick/config.yaml)")
	flags.StringSliceVar(&cc.envFiles, "env-file", nil, "Load environment variables from these .env files (default: .env)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text, json")
	flags.String("db", "", "Path to the SQLite database")
	flags.String("schema", "", "Feature schema version: seq-v1, seq-v2")

	cc.bind(rootCmd, map[string]string{
		"debug":           "debug",
		"log.level":       "log-level",
		"log.format":      "log-format",
		"database.path":   "db",
		"features.schema": "schema",
	})
}

// bind records settings keys backed by flags of cmd.
func (cc *cliContext) bind(cmd *cobra.Command, keys map[string]string) {
	cc.bindings[cmd] = keys
}

// bindFlags binds the settings keys of cmd and its parents to the flags
// parsed for cmd.
func (cc *cliContext) bindFlags(cmd *cobra.Command) error {
	for c := cmd; c != nil; c = c.Parent() {
		for key, name := range cc.bindings[c] {
			if err := cc.viper.BindPFlag(key, lookupFlag(cmd, name)); err != nil {
				return fmt.Errorf("error binding flag %s: %w", name, err)
			}
		}
	}
	return nil
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}

// initialize binds flags, loads .env files and settings and installs the
// default logger.
func (cc *cliContext) initialize(cmd *cobra.Command) error {
	if err := cc.bindFlags(cmd); err != nil {
		return err
	}
	if err := conf.LoadEnv(cc.envFiles...); err != nil {
		return err
	}

	settings, err := conf.Load(cc.viper, cc.configFile)
	if err != nil {
		return err
	}
	cc.settings = settings

	logger, err := logging.New(logging.Config{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
	})
	if err != nil {
		logger.Warn("invalid log level, using info", "error", err)
	}
	slog.SetDefault(logger)
	cc.logger = logger

	if f := cc.viper.ConfigFileUsed(); f != "" {
		logger.Debug("loaded config", "file", f)
	}
	return nil
}

// openStore opens the configured database, creating its directory.
func (cc *cliContext) openStore() (*store.Store, error) {
	path := cc.settings.Database.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	cc.logger.Debug("opened store", "path", path)
	return st, nil
}

// schema returns the configured feature schema.
func (cc *cliContext) schema() (*features.Schema, error) {
	return features.Lookup(cc.settings.Features.Schema)
}

// newMetrics creates pipeline metrics on a fresh registry.
func (cc *cliContext) newMetrics() (*prometheus.Registry, *metrics.Metrics, error) {
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, nil, err
	}
	return registry, m, nil
}

// loadPredictor loads the model artifact at path and opens its classifier.
func (cc *cliContext) loadPredictor(path string, m *metrics.Metrics) (*inference.Predictor, error) {
	artifact, err := model.LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	classifier, err := artifact.Open(cc.settings.Model.Threads, model.WithLogger(cc.logger))
	if err != nil {
		return nil, err
	}
	predictor, err := inference.NewPredictor(artifact, classifier, m, cc.logger)
	if err != nil {
		classifier.Close()
		return nil, err
	}
	cc.logger.Info("loaded model artifact",
		"path", path,
		"schema", artifact.SchemaVersion,
		"model", artifact.ResolvedModelPath())
	return predictor, nil
}

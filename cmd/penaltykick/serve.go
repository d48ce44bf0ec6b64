package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/urdof7/penalty-kick-prediction/internal/app"
	"github.com/urdof7/penalty-kick-prediction/internal/capture"
	"github.com/urdof7/penalty-kick-prediction/internal/inference"
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
	"github.com/urdof7/penalty-kick-prediction/internal/server"
)

func serveCommand(cc *cliContext) *cobra.Command {
	var mockDetector bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		Long: `Serve the kick upload, frame extraction, pose detection and prediction
API together with the static web UI and Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, cc, mockDetector)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "Listen address (default :8080)")
	flags.String("static", "", "Directory with the web UI")
	flags.String("artifact", "", "Path to the model artifact")
	flags.BoolVar(&mockDetector, "mock-detector", false, "Use the mock pose detector instead of MediaPipe")

	cc.bind(cmd, map[string]string{
		"server.addr":      "addr",
		"server.staticdir": "static",
		"model.artifact":   "artifact",
	})

	return cmd
}

func runServe(cmd *cobra.Command, cc *cliContext, mockDetector bool) error {
	settings := cc.settings
	logger := cc.logger

	st, err := cc.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	for _, dir := range []string{settings.Server.UploadDir, settings.Frames.Dir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	registry, m, err := cc.newMetrics()
	if err != nil {
		return err
	}

	var predictor *inference.Predictor
	if settings.Model.Artifact != "" {
		predictor, err = cc.loadPredictor(settings.Model.Artifact, m)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("model artifact not found, predictions disabled", "path", settings.Model.Artifact)
		case err != nil:
			return err
		default:
			defer predictor.Close()
		}
	}

	var detector pose.Detector = pose.NewMockDetector()
	if !mockDetector {
		mp, err := pose.NewMediaPipeDetector(pose.Config{
			ModelComplexity: settings.Detector.ModelComplexity,
			MinConfidence:   settings.Detector.MinConfidence,
			MinVisibility:   settings.Detector.MinVisibility,
		}, logger)
		if err != nil {
			logger.Warn("MediaPipe not available, using mock detector", "error", err)
		} else {
			detector = mp
		}
	}

	schema, err := cc.schema()
	if err != nil {
		return err
	}
	if predictor != nil {
		schema = predictor.Schema()
	}
	window := capture.SchemaWindow(schema, settings.Frames.FPS)
	logger.Info("frame window", "schema", schema.Version, "before", window.Before, "after", window.After, "fps", window.FPS)

	a := app.New(app.Config{
		Store:     st,
		Extractor: capture.NewFrameExtractor(window, logger),
		Detector:  detector,
		Predictor: predictor,
		Metrics:   m,
		Logger:    logger,
		UploadDir: settings.Server.UploadDir,
		FrameDir:  settings.Frames.Dir,
		CacheTTL:  settings.Cache.TTL,
	})
	defer a.Close()

	staticDir := settings.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(settings.DataDir)
	}
	if staticDir != "" {
		logger.Info("serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		App:       a,
		Registry:  registry,
		MaxUpload: settings.Server.MaxUpload,
		Logger:    logger,
	})

	return srv.ListenAndServe(cmd.Context(), settings.Server.Addr)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web" and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web"}
	if dataDir != "" {
		candidates = append(candidates, filepath.Join(dataDir, "web"))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}

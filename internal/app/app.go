// Package app provides the main application logic for the penalty kick
// prediction service: video upload, frame extraction, pose detection and
// direction prediction for stored kicks.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/urdof7/penalty-kick-prediction/internal/capture"
	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/inference"
	"github.com/urdof7/penalty-kick-prediction/internal/metrics"
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
)

// DefaultCacheTTL is how long a kick's prediction is reused.
const DefaultCacheTTL = 10 * time.Minute

// ErrNoPredictor is returned when predictions are requested without a model.
var ErrNoPredictor = errors.New("no prediction model loaded")

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store
	Extractor capture.Extractor
	Detector  pose.Detector
	Predictor *inference.Predictor
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// UploadDir receives uploaded videos and FrameDir the extracted frames,
	// one kick_<id> directory per kick.
	UploadDir string
	FrameDir  string

	CacheTTL time.Duration
}

// App orchestrates the kick workflow on top of the store.
type App struct {
	config    Config
	store     *store.Store
	extractor capture.Extractor
	detector  pose.Detector
	predictor *inference.Predictor
	metrics   *metrics.Metrics
	cache     *cache.Cache
	logger    *slog.Logger
	mu        sync.RWMutex
}

// New creates a new App instance with the given configuration. Without a
// detector the MediaPipe detector is tried first, falling back to the mock
// detector.
func New(config Config) *App {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "app")

	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	a := &App{
		config:    config,
		store:     config.Store,
		extractor: config.Extractor,
		detector:  config.Detector,
		predictor: config.Predictor,
		metrics:   config.Metrics,
		cache:     cache.New(ttl, 2*ttl),
		logger:    logger,
	}

	if a.extractor == nil {
		a.extractor = capture.NewFrameExtractor(capture.SchemaWindow(a.Schema(), capture.DefaultFPS), config.Logger)
	}
	if a.detector == nil {
		if mp, err := pose.NewMediaPipeDetector(pose.DefaultConfig(), config.Logger); err == nil {
			a.detector = mp
			logger.Info("using MediaPipe pose detection")
		} else {
			logger.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = pose.NewMockDetector()
		}
	}

	return a
}

// Store returns the application's store.
func (a *App) Store() *store.Store {
	return a.store
}

// SetDetector sets the pose detector implementation to use.
func (a *App) SetDetector(d pose.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the pose detector.
func (a *App) Detector() pose.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetPredictor replaces the prediction model and drops cached predictions.
// A model whose schema does not fit the extraction window is rejected.
func (a *App) SetPredictor(p *inference.Predictor) error {
	if fe, ok := a.extractor.(*capture.FrameExtractor); ok && p != nil {
		if err := fe.Window().Validate(p.Schema()); err != nil {
			return err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.predictor = p
	a.cache.Flush()
	return nil
}

// Predictor returns the current predictor, or nil when no model is loaded.
func (a *App) Predictor() *inference.Predictor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.predictor
}

// Close releases the detector.
func (a *App) Close() error {
	if d := a.Detector(); d != nil {
		return d.Close()
	}
	return nil
}

// AddVideo stores an uploaded video under a generated file name and records
// it for the session.
func (a *App) AddVideo(ctx context.Context, sessionID, originalName string, r io.Reader) (*store.Video, error) {
	if err := os.MkdirAll(a.config.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(a.config.UploadDir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create video file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write video file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write video file: %w", err)
	}

	v := &store.Video{SessionID: sessionID, OriginalName: originalName, Path: path}
	if err := a.store.Videos().Create(ctx, v); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to record video: %w", err)
	}
	a.logger.Info("video uploaded", "video_id", v.ID, "name", originalName)
	return v, nil
}

// ClearSession removes the session's videos, kicks, frames and landmarks
// along with their files.
func (a *App) ClearSession(ctx context.Context, sessionID string) (int, error) {
	videos, err := a.store.Videos().ListBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	var kickDirs []string
	for _, v := range videos {
		kicks, err := a.store.Kicks().ListByVideo(ctx, v.ID)
		if err != nil {
			return 0, err
		}
		for _, k := range kicks {
			kickDirs = append(kickDirs, a.kickDir(k.ID))
		}
	}

	removed, err := a.store.Videos().DeleteSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	for _, v := range removed {
		if v.Path == "" {
			continue
		}
		if err := os.Remove(v.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.logger.Warn("failed to remove video file", "path", v.Path, "error", err)
		}
	}
	for _, dir := range kickDirs {
		if err := os.RemoveAll(dir); err != nil {
			a.logger.Warn("failed to remove frame directory", "path", dir, "error", err)
		}
	}
	a.cache.Flush()

	a.logger.Info("session cleared", "videos", len(removed))
	return len(removed), nil
}

func (a *App) kickDir(kickID int64) string {
	return filepath.Join(a.config.FrameDir, "kick_"+strconv.FormatInt(kickID, 10))
}

func cacheKey(kickID int64) string {
	return "kick:" + strconv.FormatInt(kickID, 10)
}

// Schema returns the feature schema used for predictions, falling back to
// the default schema when no model is loaded.
func (a *App) Schema() *features.Schema {
	if p := a.Predictor(); p != nil {
		return p.Schema()
	}
	return features.SequenceV1
}

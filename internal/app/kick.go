package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/patrickmn/go-cache"
	"gocv.io/x/gocv"

	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/inference"
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
)

// KickRequest describes a kick to register within an uploaded video.
type KickRequest struct {
	VideoID    int64   `json:"video_id"`
	Timestamp  float64 `json:"timestamp"`
	PlayerName string  `json:"player_name,omitempty"`
	PlayerTeam string  `json:"player_team,omitempty"`
	Direction  *int    `json:"kick_direction,omitempty"`
	GoalScored *bool   `json:"goal_scored,omitempty"`
}

// Validate checks the request fields.
func (r KickRequest) Validate() error {
	if r.VideoID <= 0 {
		return errors.New("video_id is required")
	}
	if r.Timestamp < 0 {
		return fmt.Errorf("timestamp must not be negative, got %f", r.Timestamp)
	}
	if r.Direction != nil {
		if _, ok := features.DirectionNames[*r.Direction]; !ok {
			return fmt.Errorf("kick_direction must be between 1 and 6, got %d", *r.Direction)
		}
	}
	return nil
}

// CreateKick registers a kick and extracts its frames around the mid-swing
// timestamp. The video must belong to sessionID. The kick is removed again
// if no frame can be extracted.
func (a *App) CreateKick(ctx context.Context, sessionID string, req KickRequest) (*store.Kick, []store.Frame, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	video, err := a.store.Videos().GetForSession(ctx, req.VideoID, sessionID)
	if err != nil {
		return nil, nil, err
	}

	k := &store.Kick{
		VideoID:    video.ID,
		Timestamp:  req.Timestamp,
		Direction:  req.Direction,
		PlayerName: req.PlayerName,
		PlayerTeam: req.PlayerTeam,
		GoalScored: req.GoalScored,
	}
	if err := a.store.Kicks().Create(ctx, k); err != nil {
		return nil, nil, fmt.Errorf("failed to create kick: %w", err)
	}

	dir := a.kickDir(k.ID)
	extracted, err := a.extractor.Extract(ctx, video.Path, req.Timestamp, dir)
	if err != nil {
		a.discardKick(k.ID, dir)
		return nil, nil, fmt.Errorf("failed to extract frames: %w", err)
	}

	frames := make([]store.Frame, len(extracted))
	for i, f := range extracted {
		frames[i] = store.Frame{KickID: k.ID, VideoID: video.ID, FrameNo: f.FrameNo, Path: f.Path}
	}
	if err := a.store.Frames().CreateBatch(ctx, frames); err != nil {
		a.discardKick(k.ID, dir)
		return nil, nil, fmt.Errorf("failed to record frames: %w", err)
	}

	a.logger.Info("kick created", "kick_id", k.ID, "video_id", video.ID, "frames", len(frames))
	return k, frames, nil
}

// Kick returns a kick of sessionID along with its frames. Kicks of other
// sessions are reported as store.ErrNotFound.
func (a *App) Kick(ctx context.Context, sessionID string, kickID int64) (*store.Kick, []store.Frame, error) {
	k, err := a.store.Kicks().GetForSession(ctx, kickID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	frames, err := a.store.Frames().ListByKick(ctx, kickID)
	if err != nil {
		return nil, nil, err
	}
	return k, frames, nil
}

func (a *App) discardKick(kickID int64, dir string) {
	if err := a.store.Kicks().Delete(context.Background(), kickID); err != nil {
		a.logger.Warn("failed to discard kick", "kick_id", kickID, "error", err)
	}
	os.RemoveAll(dir)
}

// DetectionResult summarizes a pose detection run over a kick's frames.
type DetectionResult struct {
	KickID    int64 `json:"kick_id"`
	Frames    int   `json:"frames"`
	Detected  int   `json:"detected"`
	Landmarks int   `json:"landmarks"`
}

// DetectPoses runs the pose detector over every frame of a kick and stores
// the landmarks, replacing any earlier detection. Frames without a person
// are recorded with no landmarks.
func (a *App) DetectPoses(ctx context.Context, sessionID string, kickID int64) (*DetectionResult, error) {
	_, frames, err := a.Kick(ctx, sessionID, kickID)
	if err != nil {
		return nil, err
	}

	det := a.Detector()
	result := &DetectionResult{KickID: kickID, Frames: len(frames)}
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		landmarks, err := a.detectFrame(det, f.Path)
		if err != nil {
			a.metrics.RecordPoseDetection("error")
			return nil, fmt.Errorf("frame %d: %w", f.FrameNo, err)
		}
		if len(landmarks) == 0 {
			a.metrics.RecordPoseDetection("empty")
		} else {
			a.metrics.RecordPoseDetection("success")
			result.Detected++
		}

		rows := pose.Rows(pose.Frame{
			FrameID:   f.ID,
			KickID:    f.KickID,
			VideoID:   f.VideoID,
			FrameNo:   f.FrameNo,
			Landmarks: landmarks,
		})
		if err := a.store.Poses().ReplaceFrame(ctx, f.ID, rows); err != nil {
			return nil, fmt.Errorf("failed to store landmarks: %w", err)
		}
		result.Landmarks += len(rows)
	}

	a.cache.Delete(cacheKey(kickID))
	a.logger.Info("poses detected",
		"kick_id", kickID,
		"frames", result.Frames,
		"detected", result.Detected)
	return result, nil
}

func (a *App) detectFrame(det pose.Detector, path string) (pose.Landmarks, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("cannot read image %s", path)
	}
	return det.Detect(&img)
}

// kickRows loads a kick's landmark rows, failing with store.ErrNotFound for
// a kick that is unknown or belongs to another session.
func (a *App) kickRows(ctx context.Context, sessionID string, kickID int64) ([]pose.Row, error) {
	if _, err := a.store.Kicks().GetForSession(ctx, kickID, sessionID); err != nil {
		return nil, err
	}
	return a.store.Poses().RowsForKick(ctx, kickID)
}

// PredictKick predicts a kick's direction from its stored landmarks.
// Predictions are cached until the kick's poses or the model change.
func (a *App) PredictKick(ctx context.Context, sessionID string, kickID int64) (*inference.Prediction, error) {
	p := a.Predictor()
	if p == nil {
		return nil, ErrNoPredictor
	}
	rows, err := a.kickRows(ctx, sessionID, kickID)
	if err != nil {
		return nil, err
	}
	if cached, ok := a.cache.Get(cacheKey(kickID)); ok {
		return cached.(*inference.Prediction), nil
	}

	pred, err := p.Predict(ctx, rows)
	if err != nil {
		return nil, err
	}
	pred.KickID = kickID

	// The model may have been swapped while predicting.
	a.mu.RLock()
	if a.predictor == p {
		a.cache.Set(cacheKey(kickID), pred, cache.DefaultExpiration)
	}
	a.mu.RUnlock()

	a.logger.Info("kick predicted",
		"kick_id", kickID,
		"direction", pred.Direction,
		"schema", pred.SchemaVersion)
	return pred, nil
}

// KickFeatures is the engineered per-frame feature view of a kick.
type KickFeatures struct {
	KickID        int64                     `json:"kick_id"`
	SchemaVersion string                    `json:"schema_version"`
	Reference     features.Reference        `json:"reference"`
	Frames        []inference.FrameFeatures `json:"frames"`
}

// EngineeredFeatures returns the normalized features of each of a kick's
// frames as used for prediction.
func (a *App) EngineeredFeatures(ctx context.Context, sessionID string, kickID int64) (*KickFeatures, error) {
	rows, err := a.kickRows(ctx, sessionID, kickID)
	if err != nil {
		return nil, err
	}

	var (
		frames []inference.FrameFeatures
		ref    features.Reference
	)
	if p := a.Predictor(); p != nil {
		frames, ref, err = p.Engineered(rows)
	} else {
		frames, ref, err = inference.Engineered(a.Schema(), rows)
	}
	if err != nil {
		return nil, err
	}
	return &KickFeatures{
		KickID:        kickID,
		SchemaVersion: a.Schema().Version,
		Reference:     ref,
		Frames:        frames,
	}, nil
}

// FrameImage returns a kick frame as PNG. With annotated set the detected
// skeleton is drawn over it, which requires detection to have run.
func (a *App) FrameImage(ctx context.Context, sessionID string, kickID int64, frameNo uint32, annotated bool) ([]byte, error) {
	_, frames, err := a.Kick(ctx, sessionID, kickID)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(frames, func(f store.Frame) bool { return f.FrameNo == frameNo })
	if idx < 0 {
		return nil, fmt.Errorf("frame %d: %w", frameNo, store.ErrNotFound)
	}
	path := frames[idx].Path

	if !annotated {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("frame %d file: %w", frameNo, store.ErrNotFound)
		}
		return data, err
	}

	rows, err := a.store.Poses().RowsForKick(ctx, kickID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, inference.ErrNoPoseData
	}
	rows = slices.DeleteFunc(rows, func(r pose.Row) bool { return r.FrameNo != frameNo })
	kick, report := pose.KickFromRows(rows)
	if report.Skipped() > 0 {
		a.logger.Debug("unmapped landmarks skipped", "kick_id", kickID, "frame_no", frameNo, "skipped", report.Skipped())
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("cannot read image %s", path)
	}
	if len(kick.Frames) > 0 {
		if err := pose.Annotate(&img, kick.Frames[0].Landmarks); err != nil {
			return nil, fmt.Errorf("failed to annotate frame %d: %w", frameNo, err)
		}
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame %d: %w", frameNo, err)
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}

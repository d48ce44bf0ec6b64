// Package testdata provides synthetic kicks, frames and model artifacts for
// integration tests.
package testdata

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/urdof7/penalty-kick-prediction/internal/capture"
	"github.com/urdof7/penalty-kick-prediction/internal/dataset"
	"github.com/urdof7/penalty-kick-prediction/internal/features"
	"github.com/urdof7/penalty-kick-prediction/internal/model"
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
	"github.com/urdof7/penalty-kick-prediction/internal/store"
)

// KickerSequence returns n landmark maps of a kicker drifting right by drift
// per frame.
func KickerSequence(n int, drift float64) []pose.Landmarks {
	out := make([]pose.Landmarks, n)
	for i := range out {
		out[i] = pose.StandingKickerLandmarks(float64(i+1) * drift)
	}
	return out
}

// KickRows builds stored landmark rows for a kick of n frames numbered from 1.
func KickRows(kickID int64, n int, drift float64) []pose.Row {
	var rows []pose.Row
	for i, lm := range KickerSequence(n, drift) {
		rows = append(rows, pose.Rows(pose.Frame{
			FrameID:   kickID*100 + int64(i+1),
			KickID:    kickID,
			VideoID:   1,
			FrameNo:   uint32(i + 1),
			Landmarks: lm,
		})...)
	}
	return rows
}

// Corpus builds six full-length kicks, one per direction.
func Corpus() ([]pose.Row, map[int64]int) {
	var rows []pose.Row
	dirs := make(map[int64]int)
	for k := int64(1); k <= 6; k++ {
		rows = append(rows, KickRows(k, features.DefaultTargetLength, 0.005*float64(k))...)
		dirs[k] = int(k)
	}
	return rows, dirs
}

// SeedStore stores the six kicks of Corpus under one video, with their
// frames, landmarks and directions, and returns the stored kick ids in
// direction order.
func SeedStore(ctx context.Context, st *store.Store) ([]int64, error) {
	video := &store.Video{SessionID: "seed", OriginalName: "seed.mp4", Path: "seed.mp4"}
	if err := st.Videos().Create(ctx, video); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	ids := make([]int64, 0, 6)
	for d := 1; d <= 6; d++ {
		direction := d
		kick := &store.Kick{VideoID: video.ID, Timestamp: float64(d), Direction: &direction}
		if err := st.Kicks().Create(ctx, kick); err != nil {
			return nil, fmt.Errorf("create kick: %w", err)
		}

		lms := KickerSequence(features.DefaultTargetLength, 0.005*float64(d))
		frames := make([]store.Frame, len(lms))
		for i := range frames {
			frames[i] = store.Frame{
				KickID:  kick.ID,
				VideoID: video.ID,
				FrameNo: uint32(i + 1),
				Path:    fmt.Sprintf("frame_%03d.png", i+1),
			}
		}
		if err := st.Frames().CreateBatch(ctx, frames); err != nil {
			return nil, fmt.Errorf("create frames: %w", err)
		}
		for i, f := range frames {
			rows := pose.Rows(pose.Frame{FrameNo: f.FrameNo, Landmarks: lms[i]})
			if err := st.Poses().ReplaceFrame(ctx, f.ID, rows); err != nil {
				return nil, fmt.Errorf("store poses: %w", err)
			}
		}
		ids = append(ids, kick.ID)
	}
	return ids, nil
}

// Artifact fits an artifact for schema on the synthetic corpus. It has no
// model file, so it opens as a uniform classifier.
func Artifact(schema *features.Schema) (*model.Artifact, error) {
	rows, dirs := Corpus()
	bundle, err := dataset.NewBuilder(schema, nil, nil).Build(rows, dirs)
	if err != nil {
		return nil, fmt.Errorf("build corpus: %w", err)
	}
	return model.Fit(bundle, features.QuadrantLabels, "")
}

// Frames creates n small video frames, each a different shade. The caller
// closes them.
func Frames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(i%256), 64, 128, 0), 48, 64, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	return frames
}

// CloseFrames closes frames created by Frames.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// Extractor returns a frame extractor that plays frames at 30 fps in place
// of decoding a video file.
func Extractor(frames []*gocv.Mat) *capture.FrameExtractor {
	return capture.NewFrameExtractorWithSource(capture.DefaultWindow(), func() capture.Source {
		return capture.NewMockSource(frames, capture.DefaultFPS)
	}, nil)
}

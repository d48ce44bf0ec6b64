package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/urdof7/penalty-kick-prediction/internal/features"
)

// DefaultFPS is the sampling rate used when none is configured.
const DefaultFPS = 30

// offsetEpsilon absorbs rounding when a window starts exactly at zero.
const offsetEpsilon = 1e-9

// ErrNoFrames is returned when no frame could be read in the window.
var ErrNoFrames = errors.New("no frames extracted")

// ErrWindowMismatch is returned when a window does not produce the
// sequences a feature schema expects.
var ErrWindowMismatch = errors.New("frame window does not match feature schema")

// Window describes which frames to take around a timestamp. The frame at
// the timestamp is numbered Before+1.
type Window struct {
	Before int
	After  int
	FPS    float64
}

// SchemaWindow returns the window whose frames line up with schema: the
// timestamp lands on ReferenceFrameNo and the window is TargetLength long.
func SchemaWindow(schema *features.Schema, fps float64) Window {
	if fps <= 0 {
		fps = DefaultFPS
	}
	ref := int(schema.ReferenceFrameNo)
	return Window{
		Before: ref - 1,
		After:  schema.TargetLength - ref,
		FPS:    fps,
	}
}

// DefaultWindow returns the window for the default feature schema.
func DefaultWindow() Window {
	return SchemaWindow(features.SequenceV1, DefaultFPS)
}

// Validate reports whether w yields sequences schema can consume.
func (w Window) Validate(schema *features.Schema) error {
	if w.Total() != schema.TargetLength || uint32(w.Before+1) != schema.ReferenceFrameNo {
		return fmt.Errorf("%w: window %d+1+%d, schema %s wants %d frames with reference frame %d",
			ErrWindowMismatch, w.Before, w.After, schema.Version, schema.TargetLength, schema.ReferenceFrameNo)
	}
	return nil
}

// Total returns the number of frames in the window.
func (w Window) Total() int {
	return w.Before + w.After + 1
}

// Start returns the offset of the window's first frame. It is negative
// when the timestamp is closer to the start of the video than Before frames.
func (w Window) Start(timestamp float64) float64 {
	return timestamp - float64(w.Before)/w.FPS
}

// Offsets returns the offset in seconds of every frame in the window.
// Offsets before the start of the video are negative.
func (w Window) Offsets(timestamp float64) []float64 {
	start := w.Start(timestamp)
	out := make([]float64, w.Total())
	for i := range out {
		out[i] = start + float64(i)/w.FPS
	}
	return out
}

// Frame is an extracted still image of a kick.
type Frame struct {
	FrameNo uint32  `json:"frame_no"`
	Path    string  `json:"path"`
	Offset  float64 `json:"offset"`
}

// Extractor defines the interface for pulling a kick's frames out of a video.
type Extractor interface {
	// Extract writes the frames around timestamp to outDir as
	// frame_001.png, frame_002.png and so on.
	Extract(ctx context.Context, videoPath string, timestamp float64, outDir string) ([]Frame, error)
}

// FrameExtractor extracts frames with a Source.
type FrameExtractor struct {
	window    Window
	newSource func() Source
	logger    *slog.Logger
}

// NewFrameExtractor creates an extractor reading videos with GoCV.
func NewFrameExtractor(window Window, logger *slog.Logger) *FrameExtractor {
	return NewFrameExtractorWithSource(window, NewVideoSource, logger)
}

// NewFrameExtractorWithSource creates an extractor that opens videos with
// newSource.
func NewFrameExtractorWithSource(window Window, newSource func() Source, logger *slog.Logger) *FrameExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if window.FPS <= 0 {
		window.FPS = DefaultFPS
	}
	return &FrameExtractor{
		window:    window,
		newSource: newSource,
		logger:    logger.With("module", "capture"),
	}
}

// Window returns the extraction window.
func (e *FrameExtractor) Window() Window {
	return e.window
}

// Extract implements Extractor. Frames that fall before the start or after
// the end of the video are skipped, so a kick near either edge yields fewer
// frames. Frame numbers stay relative to the window, keeping the frame at
// timestamp on Before+1.
func (e *FrameExtractor) Extract(ctx context.Context, videoPath string, timestamp float64, outDir string) ([]Frame, error) {
	if timestamp < 0 {
		return nil, fmt.Errorf("negative timestamp %f", timestamp)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	src := e.newSource()
	if err := src.Open(videoPath); err != nil {
		return nil, err
	}
	defer src.Close()

	var (
		frames  []Frame
		skipped int
	)
	for i, offset := range e.window.Offsets(timestamp) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if offset < -offsetEpsilon {
			skipped++
			continue
		}
		offset = max(offset, 0)

		mat, err := src.ReadAt(offset)
		if errors.Is(err, ErrEndOfVideo) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read frame at %.3fs: %w", offset, err)
		}

		frameNo := uint32(i + 1)
		path := filepath.Join(outDir, fmt.Sprintf("frame_%03d.png", frameNo))
		ok := gocv.IMWrite(path, *mat)
		mat.Close()
		if !ok {
			return nil, fmt.Errorf("failed to write %s", path)
		}
		frames = append(frames, Frame{FrameNo: frameNo, Path: path, Offset: offset})
	}

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if skipped > 0 {
		e.logger.Warn("video starts inside the frame window",
			"video", videoPath,
			"timestamp", timestamp,
			"skipped", skipped,
			"first_frame", frames[0].FrameNo)
	}
	if len(frames)+skipped < e.window.Total() {
		e.logger.Warn("video ended before the frame window",
			"video", videoPath,
			"timestamp", timestamp,
			"frames", len(frames),
			"expected", e.window.Total())
	}
	return frames, nil
}

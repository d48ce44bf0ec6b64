// Package capture extracts still frames from kick videos using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("video source is not open")

	// ErrEndOfVideo is returned when a read position lies past the last frame.
	ErrEndOfVideo = errors.New("end of video")
)

// Source defines the interface for seekable video readers.
type Source interface {
	Open(path string) error
	Close() error
	// ReadAt returns the frame shown at the given offset in seconds. The
	// caller is responsible for closing the returned Mat.
	ReadAt(seconds float64) (*gocv.Mat, error)
	FPS() float64
	IsOpen() bool
}

// videoSource reads frames from a video file using GoCV.
type videoSource struct {
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewVideoSource creates a Source backed by an OpenCV video capture.
func NewVideoSource() Source {
	return &videoSource{}
}

// Open opens the video file at path.
func (v *videoSource) Open(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return nil
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("failed to open video %s", path)
	}

	v.capture = capture
	v.running = true
	return nil
}

// Close closes the video and releases resources.
func (v *videoSource) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		v.running = false
		return nil
	}

	err := v.capture.Close()
	v.capture = nil
	v.running = false

	return err
}

// ReadAt seeks to seconds and decodes one frame.
func (v *videoSource) ReadAt(seconds float64) (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.running || v.capture == nil {
		return nil, ErrSourceNotOpen
	}

	v.capture.Set(gocv.VideoCapturePosMsec, seconds*1000)

	mat := gocv.NewMat()
	if ok := v.capture.Read(&mat); !ok {
		mat.Close()
		return nil, ErrEndOfVideo
	}

	if mat.Empty() {
		mat.Close()
		return nil, ErrEndOfVideo
	}

	return &mat, nil
}

// FPS returns the frame rate reported by the container.
func (v *videoSource) FPS() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return 0
	}
	return v.capture.Get(gocv.VideoCaptureFPS)
}

// IsOpen returns true if a video is currently open.
func (v *videoSource) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.running
}

package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-recorded frames at a fixed frame rate for testing.
type MockSource struct {
	frames  []*gocv.Mat
	fps     float64
	mu      sync.Mutex
	running bool
	opened  []string
	reads   []float64
}

// NewMockSource creates a source whose video is frames shown at fps.
func NewMockSource(frames []*gocv.Mat, fps float64) *MockSource {
	return &MockSource{
		frames: frames,
		fps:    fps,
	}
}

func (s *MockSource) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.opened = append(s.opened, path)
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) ReadAt(seconds float64) (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	if seconds < 0 {
		return nil, fmt.Errorf("negative offset %f", seconds)
	}
	s.reads = append(s.reads, seconds)

	idx := int(seconds*s.fps + 1e-9)
	if idx >= len(s.frames) {
		return nil, ErrEndOfVideo
	}

	// Clone the frame so the original isn't modified
	frame := s.frames[idx].Clone()
	return &frame, nil
}

func (s *MockSource) FPS() float64 { return s.fps }

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reads returns every offset read so far.
func (s *MockSource) Reads() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.reads...)
}

// Opened returns every path passed to Open.
func (s *MockSource) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

package pose

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	landmarks []Landmarks
	calls     int
	err       error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks sets the landmark maps returned by successive Detect calls.
// The last entry is repeated once the list is exhausted.
func (m *MockDetector) SetLandmarks(landmarks ...Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarks = landmarks
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.landmarks) == 0 {
		m.calls++
		return Landmarks{}, nil
	}
	idx := min(m.calls, len(m.landmarks)-1)
	m.calls++
	return m.landmarks[idx], nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingKickerLandmarks returns a preset upright kicker facing the camera,
// in normalized image coordinates. dx shifts the whole body horizontally so
// successive frames can show motion.
func StandingKickerLandmarks(dx float64) Landmarks {
	points := map[Joint][3]float64{
		Nose:           {0.60, 0.10, -0.20},
		ShoulderLeft:   {0.40, 0.20, -0.10},
		ShoulderRight:  {0.80, 0.20, -0.10},
		ElbowLeft:      {0.35, 0.35, -0.05},
		ElbowRight:     {0.85, 0.35, -0.05},
		WristLeft:      {0.33, 0.50, 0.00},
		WristRight:     {0.88, 0.50, 0.00},
		HipLeft:        {0.50, 0.50, 0.00},
		HipRight:       {0.70, 0.50, 0.00},
		KneeLeft:       {0.48, 0.75, 0.02},
		KneeRight:      {0.60, 0.90, 0.02},
		AnkleLeft:      {0.47, 1.00, 0.04},
		AnkleRight:     {0.60, 1.20, 0.04},
		FootIndexLeft:  {0.52, 1.05, 0.05},
		FootIndexRight: {0.66, 1.24, 0.05},
	}

	out := make(Landmarks, len(points))
	for j, p := range points {
		out[j] = Landmark{Joint: j, X: p[0] + dx, Y: p[1], Z: p[2], Visibility: 0.99}
	}
	return out
}

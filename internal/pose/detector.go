package pose

import "gocv.io/x/gocv"

// Detector defines the interface for body pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the most
	// prominent person. Returns an empty map if no person is detected.
	Detect(frame *gocv.Mat) (Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// ModelComplexity selects the MediaPipe pose model (0, 1 or 2).
	ModelComplexity int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinVisibility drops landmarks whose visibility is below this value.
	MinVisibility float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinVisibility:   0.0,
	}
}

// Rows flattens a detected landmark map into storage rows for one frame,
// using MediaPipe enum names as the stored landmark names.
func Rows(frame Frame) []Row {
	rows := make([]Row, 0, len(frame.Landmarks))
	for _, j := range Vocabulary {
		lm, ok := frame.Landmarks[j]
		if !ok {
			continue
		}
		rows = append(rows, Row{
			FrameID:      frame.FrameID,
			KickID:       frame.KickID,
			VideoID:      frame.VideoID,
			FrameNo:      frame.FrameNo,
			LandmarkName: MediaPipeName(j),
			X:            lm.X,
			Y:            lm.Y,
			Z:            lm.Z,
			Visibility:   lm.Visibility,
		})
	}
	return rows
}

// Package pose provides body landmark types, landmark name adapters and the
// pose detector boundary for penalty-kick analysis.
package pose

// Joint is a canonical body joint identifier in joint-then-side form,
// for example "hip_left" or "foot_index_right".
type Joint string

// Canonical joint vocabulary.
const (
	HipLeft        Joint = "hip_left"
	HipRight       Joint = "hip_right"
	KneeLeft       Joint = "knee_left"
	KneeRight      Joint = "knee_right"
	AnkleLeft      Joint = "ankle_left"
	AnkleRight     Joint = "ankle_right"
	FootIndexLeft  Joint = "foot_index_left"
	FootIndexRight Joint = "foot_index_right"
	ShoulderLeft   Joint = "shoulder_left"
	ShoulderRight  Joint = "shoulder_right"
	ElbowLeft      Joint = "elbow_left"
	ElbowRight     Joint = "elbow_right"
	WristLeft      Joint = "wrist_left"
	WristRight     Joint = "wrist_right"
	Nose           Joint = "nose"
	MidHip         Joint = "mid_hip"
)

// Vocabulary lists every joint a detector can produce, in a stable order.
// MidHip is not part of it since it is only ever synthesized.
var Vocabulary = []Joint{
	HipLeft, HipRight,
	KneeLeft, KneeRight,
	AnkleLeft, AnkleRight,
	FootIndexLeft, FootIndexRight,
	ShoulderLeft, ShoulderRight,
	ElbowLeft, ElbowRight,
	WristLeft, WristRight,
	Nose,
}

// sidedJoints are the joint bases that require a left or right qualifier.
var sidedJoints = map[string]bool{
	"hip":        true,
	"knee":       true,
	"ankle":      true,
	"foot_index": true,
	"shoulder":   true,
	"elbow":      true,
	"wrist":      true,
}

// unsidedJoints are the joint bases that never carry a side.
var unsidedJoints = map[string]Joint{
	"nose":    Nose,
	"mid_hip": MidHip,
}

// Landmark is a named body keypoint with its detector confidence.
type Landmark struct {
	Joint      Joint   `json:"joint"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Landmarks maps joints to their landmark within a single frame.
type Landmarks map[Joint]Landmark

// Has reports whether all of the given joints are present.
func (l Landmarks) Has(joints ...Joint) bool {
	for _, j := range joints {
		if _, ok := l[j]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of the landmark map.
func (l Landmarks) Clone() Landmarks {
	out := make(Landmarks, len(l)+1)
	for j, lm := range l {
		out[j] = lm
	}
	return out
}

// WithMidHip returns a copy of l that carries a synthesized mid_hip landmark
// when both hips are present and mid_hip is not already set. Otherwise l is
// returned unchanged.
func (l Landmarks) WithMidHip() Landmarks {
	if _, ok := l[MidHip]; ok {
		return l
	}
	left, okL := l[HipLeft]
	right, okR := l[HipRight]
	if !okL || !okR {
		return l
	}

	out := l.Clone()
	out[MidHip] = Landmark{
		Joint:      MidHip,
		X:          (left.X + right.X) / 2,
		Y:          (left.Y + right.Y) / 2,
		Z:          (left.Z + right.Z) / 2,
		Visibility: min(left.Visibility, right.Visibility),
	}
	return out
}

// Frame is one video frame of a kick with its detected landmarks.
type Frame struct {
	FrameID   int64     `json:"frame_id"`
	KickID    int64     `json:"kick_id"`
	VideoID   int64     `json:"video_id"`
	FrameNo   uint32    `json:"frame_no"`
	Landmarks Landmarks `json:"landmarks"`
}

// Kick is a single penalty kick event. Direction is the supervised quadrant
// label in 1..6, or 0 when the kick is unlabeled.
type Kick struct {
	KickID    int64   `json:"kick_id"`
	VideoID   int64   `json:"video_id"`
	Direction int     `json:"direction"`
	Frames    []Frame `json:"frames"`
}

// Row is a single stored landmark observation. It is the input contract
// between storage or a detector and the feature pipeline.
type Row struct {
	FrameID      int64   `db:"frame_id" json:"frame_id"`
	KickID       int64   `db:"kick_id" json:"kick_id"`
	VideoID      int64   `db:"video_id" json:"video_id"`
	FrameNo      uint32  `db:"frame_no" json:"frame_no"`
	LandmarkName string  `db:"landmark_name" json:"landmark_name"`
	X            float64 `db:"x" json:"x"`
	Y            float64 `db:"y" json:"y"`
	Z            float64 `db:"z" json:"z"`
	Visibility   float64 `db:"visibility" json:"visibility"`
}

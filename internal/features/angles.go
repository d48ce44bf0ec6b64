package features

import (
	"math"

	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

// footReferenceOffset is the x offset of the synthetic point used as the
// second arm of the foot orientation angle.
const footReferenceOffset = 0.01

// Point is a 2-D position in image or normalized coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// JointAngle returns the angle in degrees at center between the rays to arm1
// and arm2, measured as the difference of their arctangents and folded into
// [0, 360).
func JointAngle(arm1, center, arm2 Point) float64 {
	rad := math.Atan2(arm2.Y-center.Y, arm2.X-center.X) - math.Atan2(arm1.Y-center.Y, arm1.X-center.X)
	deg := rad * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	// A tiny negative difference rounds up to exactly 360.
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// AngleSpec names the joints forming an angle. Arm2Offset shifts the arm2
// joint along the x axis to build a synthetic reference point.
type AngleSpec struct {
	Name       string
	Arm1       pose.Joint
	Center     pose.Joint
	Arm2       pose.Joint
	Arm2Offset float64
}

// Compute returns the angle for a frame. The second result is false, and the
// angle 0, when any of the three joints is missing.
func (a AngleSpec) Compute(lm pose.Landmarks) (float64, bool) {
	p1, ok1 := lm[a.Arm1]
	c, okC := lm[a.Center]
	p2, ok2 := lm[a.Arm2]
	if !ok1 || !okC || !ok2 {
		return 0, false
	}
	return JointAngle(
		Point{X: p1.X, Y: p1.Y},
		Point{X: c.X, Y: c.Y},
		Point{X: p2.X + a.Arm2Offset, Y: p2.Y},
	), true
}

var angleSpecs = map[string]AngleSpec{
	"knee_left":   {Name: "knee_left", Arm1: pose.HipLeft, Center: pose.KneeLeft, Arm2: pose.AnkleLeft},
	"knee_right":  {Name: "knee_right", Arm1: pose.HipRight, Center: pose.KneeRight, Arm2: pose.AnkleRight},
	"elbow_left":  {Name: "elbow_left", Arm1: pose.ShoulderLeft, Center: pose.ElbowLeft, Arm2: pose.WristLeft},
	"elbow_right": {Name: "elbow_right", Arm1: pose.ShoulderRight, Center: pose.ElbowRight, Arm2: pose.WristRight},
	"ankle_left":  {Name: "ankle_left", Arm1: pose.KneeLeft, Center: pose.AnkleLeft, Arm2: pose.FootIndexLeft},
	"ankle_right": {Name: "ankle_right", Arm1: pose.KneeRight, Center: pose.AnkleRight, Arm2: pose.FootIndexRight},
	"foot_left":   {Name: "foot_left", Arm1: pose.AnkleLeft, Center: pose.FootIndexLeft, Arm2: pose.AnkleLeft, Arm2Offset: footReferenceOffset},
	"foot_right":  {Name: "foot_right", Arm1: pose.AnkleRight, Center: pose.FootIndexRight, Arm2: pose.AnkleRight, Arm2Offset: footReferenceOffset},
}

// StandardAngles are computed by every schema.
var StandardAngles = []string{"knee_left", "knee_right", "elbow_left", "elbow_right"}

// ExtendedAngles add ankle and foot orientation angles.
var ExtendedAngles = []string{
	"knee_left", "knee_right", "elbow_left", "elbow_right",
	"ankle_left", "ankle_right", "foot_left", "foot_right",
}

// Angles computes every named angle for a frame. Missing angles are 0.
func Angles(lm pose.Landmarks, names []string) map[string]float64 {
	out := make(map[string]float64, len(names))
	for _, n := range names {
		spec, ok := angleSpecs[n]
		if !ok {
			continue
		}
		out[n], _ = spec.Compute(lm)
	}
	return out
}

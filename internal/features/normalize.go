package features

import (
	"math"

	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

// Epsilon is the minimum magnitude of a normalization scale.
const Epsilon = 1e-6

// StrategyNone marks a reference for which no origin could be found.
const StrategyNone = "none"

// ScaleMode selects how a measured shoulder span is guarded against zero.
type ScaleMode int

const (
	// SignedSpan keeps the sign of the span and replaces spans smaller than
	// Epsilon in magnitude with Epsilon. Used for whole-kick sequences.
	SignedSpan ScaleMode = iota
	// AbsoluteSpan uses |span| + Epsilon. Used for single frames.
	AbsoluteSpan
)

// OriginStrategy is one candidate in the ordered origin selection chain.
type OriginStrategy struct {
	Name    string
	Resolve func(lm pose.Landmarks) (Point, bool)
}

// ScaleStrategy is one candidate in the ordered scale selection chain.
type ScaleStrategy struct {
	Name    string
	Resolve func(lm pose.Landmarks) (float64, bool)
}

// Reference is the origin and scale that map a kick or frame into
// body-relative coordinates.
type Reference struct {
	Origin         Point   `json:"origin"`
	Scale          float64 `json:"scale"`
	Strategy       string  `json:"strategy"`
	ScaleStrategy  string  `json:"scale_strategy"`
	ReferenceFrame uint32  `json:"reference_frame,omitempty"`
}

// Skipped reports whether normalization passes coordinates through.
func (r Reference) Skipped() bool {
	return r.Strategy == StrategyNone
}

func landmarkPoint(lm pose.Landmarks, j pose.Joint) (Point, bool) {
	p, ok := lm[j]
	if !ok {
		return Point{}, false
	}
	return Point{X: p.X, Y: p.Y}, true
}

func midpoint(lm pose.Landmarks, a, b pose.Joint) (Point, bool) {
	pa, okA := landmarkPoint(lm, a)
	pb, okB := landmarkPoint(lm, b)
	if !okA || !okB {
		return Point{}, false
	}
	return Point{X: (pa.X + pb.X) / 2, Y: (pa.Y + pb.Y) / 2}, true
}

// MidHipOrigin uses a precomputed mid_hip landmark.
var MidHipOrigin = OriginStrategy{
	Name: "mid_hip",
	Resolve: func(lm pose.Landmarks) (Point, bool) {
		return landmarkPoint(lm, pose.MidHip)
	},
}

// HipMidpointOrigin uses the midpoint of both hips.
var HipMidpointOrigin = OriginStrategy{
	Name: "hip_midpoint",
	Resolve: func(lm pose.Landmarks) (Point, bool) {
		return midpoint(lm, pose.HipLeft, pose.HipRight)
	},
}

// ShoulderMidpointOrigin uses the midpoint of both shoulders.
var ShoulderMidpointOrigin = OriginStrategy{
	Name: "shoulder_midpoint",
	Resolve: func(lm pose.Landmarks) (Point, bool) {
		return midpoint(lm, pose.ShoulderLeft, pose.ShoulderRight)
	},
}

// FirstPresentOrigin uses the first present joint among candidates.
func FirstPresentOrigin(candidates ...pose.Joint) OriginStrategy {
	return OriginStrategy{
		Name: "first_present",
		Resolve: func(lm pose.Landmarks) (Point, bool) {
			for _, j := range candidates {
				if p, ok := landmarkPoint(lm, j); ok {
					return p, true
				}
			}
			return Point{}, false
		},
	}
}

// DefaultOriginStrategies returns the origin chain in priority order.
func DefaultOriginStrategies() []OriginStrategy {
	return []OriginStrategy{
		MidHipOrigin,
		HipMidpointOrigin,
		ShoulderMidpointOrigin,
		FirstPresentOrigin(pose.ShoulderLeft, pose.ShoulderRight, pose.Nose),
	}
}

// ShoulderSpanScale measures x_shoulder_right - x_shoulder_left, guarded by
// mode.
func ShoulderSpanScale(mode ScaleMode) ScaleStrategy {
	return ScaleStrategy{
		Name: "shoulder_span",
		Resolve: func(lm pose.Landmarks) (float64, bool) {
			l, okL := lm[pose.ShoulderLeft]
			r, okR := lm[pose.ShoulderRight]
			if !okL || !okR {
				return 0, false
			}
			span := r.X - l.X
			if mode == AbsoluteSpan {
				return math.Abs(span) + Epsilon, true
			}
			if math.Abs(span) < Epsilon {
				return math.Copysign(Epsilon, span), true
			}
			return span, true
		},
	}
}

// UnitScale always resolves to 1.
var UnitScale = ScaleStrategy{
	Name: "unit",
	Resolve: func(pose.Landmarks) (float64, bool) {
		return 1, true
	},
}

// Normalizer translates and scales landmarks into a body-relative frame.
// Origins and Scales are tried in order and the first resolving strategy
// wins. A Normalizer holds no mutable state.
type Normalizer struct {
	Origins []OriginStrategy
	Scales  []ScaleStrategy
}

// NewNormalizer returns a Normalizer with the default strategy chains.
func NewNormalizer(mode ScaleMode) *Normalizer {
	return &Normalizer{
		Origins: DefaultOriginStrategies(),
		Scales:  []ScaleStrategy{ShoulderSpanScale(mode), UnitScale},
	}
}

// Reference resolves the origin and scale for a landmark map.
func (n *Normalizer) Reference(lm pose.Landmarks) Reference {
	ref := Reference{Strategy: StrategyNone, Scale: 1}

	for _, s := range n.Origins {
		if p, ok := s.Resolve(lm); ok {
			ref.Origin = p
			ref.Strategy = s.Name
			break
		}
	}
	if ref.Skipped() {
		return ref
	}

	for _, s := range n.Scales {
		if v, ok := s.Resolve(lm); ok {
			ref.Scale = v
			ref.ScaleStrategy = s.Name
			break
		}
	}
	return ref
}

// Apply returns a normalized copy of lm: x' = (x-ox)/s, y' = (y-oy)/s and
// z' = z/s. A skipped reference returns lm untouched.
func (n *Normalizer) Apply(lm pose.Landmarks, ref Reference) pose.Landmarks {
	if ref.Skipped() {
		return lm
	}

	out := make(pose.Landmarks, len(lm))
	for j, p := range lm {
		out[j] = pose.Landmark{
			Joint:      p.Joint,
			X:          (p.X - ref.Origin.X) / ref.Scale,
			Y:          (p.Y - ref.Origin.Y) / ref.Scale,
			Z:          p.Z / ref.Scale,
			Visibility: p.Visibility,
		}
	}
	return out
}

// Normalize resolves a reference from lm itself and applies it.
func (n *Normalizer) Normalize(lm pose.Landmarks) (pose.Landmarks, Reference) {
	ref := n.Reference(lm)
	return n.Apply(lm, ref), ref
}

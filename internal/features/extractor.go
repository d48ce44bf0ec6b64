package features

import (
	"slices"

	"github.com/pconstantinou/savitzkygolay"
	"gonum.org/v1/gonum/mat"

	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

// Extractor converts kicks and frames into feature rows for one schema. It
// is the single code path used by both dataset generation and serving.
type Extractor struct {
	schema   *Schema
	sequence *Normalizer
	frame    *Normalizer
}

// NewExtractor creates an extractor for the given schema.
func NewExtractor(schema *Schema) *Extractor {
	return &Extractor{
		schema:   schema,
		sequence: NewNormalizer(SignedSpan),
		frame:    NewNormalizer(AbsoluteSpan),
	}
}

// Schema returns the extractor's schema.
func (e *Extractor) Schema() *Schema {
	return e.schema
}

// ReferenceFrame picks the mid-swing frame of a kick, falling back to the
// first frame. frames must be sorted by frame number.
func (e *Extractor) ReferenceFrame(frames []pose.Frame) (pose.Frame, bool) {
	if len(frames) == 0 {
		return pose.Frame{}, false
	}
	for _, f := range frames {
		if f.FrameNo == e.schema.ReferenceFrameNo {
			return f, true
		}
	}
	return frames[0], true
}

// NormalizeKick returns the kick's frames sorted by frame number, with
// mid_hip synthesized and every frame normalized by the reference frame.
func (e *Extractor) NormalizeKick(kick pose.Kick) ([]pose.Frame, Reference) {
	frames := slices.Clone(kick.Frames)
	pose.SortFrames(frames)
	for i := range frames {
		frames[i].Landmarks = frames[i].Landmarks.WithMidHip()
	}

	refFrame, ok := e.ReferenceFrame(frames)
	if !ok {
		return frames, Reference{Strategy: StrategyNone, Scale: 1}
	}
	ref := e.sequence.Reference(refFrame.Landmarks)
	ref.ReferenceFrame = refFrame.FrameNo

	for i := range frames {
		frames[i].Landmarks = e.sequence.Apply(frames[i].Landmarks, ref)
	}
	if e.schema.Smoothing.Window > 0 {
		smoothTrajectories(frames, e.schema.Smoothing)
	}
	return frames, ref
}

// KickRows returns the unpadded [frames x F] feature rows of a kick.
func (e *Extractor) KickRows(kick pose.Kick) ([][]float64, Reference) {
	frames, ref := e.NormalizeKick(kick)
	rows := make([][]float64, len(frames))
	for i, f := range frames {
		rows[i] = e.schema.Row(f.Landmarks)
	}
	return rows, ref
}

// Matrix builds a kick's [TargetLength x F] matrix under policy. The second
// result is false when the kick was discarded.
func (e *Extractor) Matrix(kick pose.Kick, policy Policy) (*mat.Dense, bool) {
	rows, _ := e.KickRows(kick)
	return Assemble(rows, e.schema.TargetLength, e.schema.Width(), policy)
}

// FrameRow builds the single-frame feature row of one frame, normalized by
// its own reference.
func (e *Extractor) FrameRow(frame pose.Frame) ([]float64, Reference) {
	lm, ref := e.frame.Normalize(frame.Landmarks.WithMidHip())
	ref.ReferenceFrame = frame.FrameNo
	return e.schema.Row(lm), ref
}

// smoothTrajectories applies a Savitzky-Golay filter to the x, y and z
// trajectories of every joint present in all frames. Kicks shorter than the
// window are left as they are.
func smoothTrajectories(frames []pose.Frame, s Smoothing) {
	if len(frames) < s.Window {
		return
	}
	filter, err := savitzkygolay.NewFilter(s.Window, 0, s.Order)
	if err != nil {
		return
	}

	t := make([]float64, len(frames))
	for i, f := range frames {
		t[i] = float64(f.FrameNo)
		frames[i].Landmarks = f.Landmarks.Clone()
	}

	joints := append(slices.Clone(pose.Vocabulary), pose.MidHip)
	for _, j := range joints {
		xs := make([]float64, 0, len(frames))
		ys := make([]float64, 0, len(frames))
		zs := make([]float64, 0, len(frames))
		for _, f := range frames {
			p, ok := f.Landmarks[j]
			if !ok {
				break
			}
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
			zs = append(zs, p.Z)
		}
		if len(xs) != len(frames) {
			continue
		}

		sx, errX := filter.Process(xs, t)
		sy, errY := filter.Process(ys, t)
		sz, errZ := filter.Process(zs, t)
		if errX != nil || errY != nil || errZ != nil ||
			len(sx) != len(frames) || len(sy) != len(frames) || len(sz) != len(frames) {
			continue
		}
		for i := range frames {
			p := frames[i].Landmarks[j]
			p.X, p.Y, p.Z = sx[i], sy[i], sz[i]
			frames[i].Landmarks[j] = p
		}
	}
}

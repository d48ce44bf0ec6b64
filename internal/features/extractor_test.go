package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

func TestExtractor_ReferenceFrame(t *testing.T) {
	e := NewExtractor(SequenceV1)

	t.Run("mid swing frame", func(t *testing.T) {
		_, ref := e.NormalizeKick(testKick(1, 21))
		assert.Equal(t, uint32(DefaultReferenceFrameNo), ref.ReferenceFrame)
		assert.Equal(t, "mid_hip", ref.Strategy)
	})

	t.Run("first frame fallback", func(t *testing.T) {
		_, ref := e.NormalizeKick(testKick(1, 5))
		assert.Equal(t, uint32(1), ref.ReferenceFrame)
	})

	t.Run("no frames", func(t *testing.T) {
		frames, ref := e.NormalizeKick(pose.Kick{})
		assert.Empty(t, frames)
		assert.True(t, ref.Skipped())
	})
}

func TestExtractor_SortsFramesAndKeepsInput(t *testing.T) {
	e := NewExtractor(SequenceV1)
	kick := testKick(1, 3)
	kick.Frames[0], kick.Frames[2] = kick.Frames[2], kick.Frames[0]

	frames, _ := e.NormalizeKick(kick)
	require.Len(t, frames, 3)
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{frames[0].FrameNo, frames[1].FrameNo, frames[2].FrameNo})

	assert.Equal(t, uint32(3), kick.Frames[0].FrameNo)
	assert.False(t, kick.Frames[0].Landmarks.Has(pose.MidHip))
}

func TestExtractor_SharedReferenceAcrossFrames(t *testing.T) {
	e := NewExtractor(SequenceV1)
	frames, ref := e.NormalizeKick(testKick(1, 21))

	// The reference frame's own mid-hip lands on the origin, and every other
	// frame is offset by its drift relative to it.
	mid := frames[DefaultReferenceFrameNo-1].Landmarks[pose.MidHip]
	assert.InDelta(t, 0, mid.X, tolerance)
	assert.InDelta(t, 0, mid.Y, tolerance)

	first := frames[0].Landmarks[pose.MidHip]
	assert.InDelta(t, -0.10/ref.Scale, first.X, 1e-9)
}

func TestExtractor_FrameRow(t *testing.T) {
	e := NewExtractor(SequenceV1)
	frame := testKick(1, 1).Frames[0]

	row, ref := e.FrameRow(frame)
	require.Len(t, row, SequenceV1.Width())
	assert.InDelta(t, 0.4+Epsilon, ref.Scale, tolerance)
	assert.Equal(t, "mid_hip", ref.Strategy)
	assert.Equal(t, 0.0, row[SequenceV1.Index("x_mid_hip")])
}

func TestExtractor_Smoothing(t *testing.T) {
	e := NewExtractor(SequenceV2)
	kick := testKick(1, 21)
	before := kick.Frames[5].Landmarks[pose.KneeLeft]

	rows, _ := e.KickRows(kick)
	require.Len(t, rows, 21)
	for _, r := range rows {
		require.Len(t, r, SequenceV2.Width())
	}
	assert.Equal(t, before, kick.Frames[5].Landmarks[pose.KneeLeft])

	short, _ := e.KickRows(testKick(2, 3))
	assert.Len(t, short, 3)
}

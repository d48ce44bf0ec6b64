package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(kickID int64, frameNo uint32, name string, x, y float64) Row {
	return Row{
		FrameID:      kickID*100 + int64(frameNo),
		KickID:       kickID,
		VideoID:      1,
		FrameNo:      frameNo,
		LandmarkName: name,
		X:            x,
		Y:            y,
		Visibility:   0.9,
	}
}

func TestCollect(t *testing.T) {
	rows := []Row{
		row(2, 5, "LEFT_HIP", 0.1, 0.2),
		row(1, 12, "hip_left", 0.3, 0.4),
		row(1, 3, "left_hip", 0.5, 0.6),
		row(1, 3, "RIGHT_HIP", 0.7, 0.6),
		row(1, 3, "LEFT_HEEL", 0.7, 0.9),
		row(1, 3, "TAIL", 0.0, 0.0),
	}

	kicks, report := Collect(rows)
	require.Len(t, kicks, 2)

	t.Run("kicks ordered by id", func(t *testing.T) {
		assert.Equal(t, int64(1), kicks[0].KickID)
		assert.Equal(t, int64(2), kicks[1].KickID)
	})

	t.Run("frames ordered by frame number", func(t *testing.T) {
		require.Len(t, kicks[0].Frames, 2)
		assert.Equal(t, uint32(3), kicks[0].Frames[0].FrameNo)
		assert.Equal(t, uint32(12), kicks[0].Frames[1].FrameNo)
	})

	t.Run("landmarks keyed by canonical joint", func(t *testing.T) {
		f := kicks[0].Frames[0]
		assert.True(t, f.Landmarks.Has(HipLeft, HipRight))
		assert.InDelta(t, 0.5, f.Landmarks[HipLeft].X, 1e-12)
		assert.Len(t, f.Landmarks, 2)
	})

	t.Run("unmapped names reported", func(t *testing.T) {
		assert.Equal(t, 6, report.Rows)
		assert.Equal(t, 1, report.Untracked["LEFT_HEEL"])
		assert.Equal(t, 1, report.Unknown["TAIL"])
		assert.Equal(t, 2, report.Skipped())
	})
}

func TestKickFromRows(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		kick, report := KickFromRows(nil)
		assert.Empty(t, kick.Frames)
		assert.Zero(t, report.Rows)
	})

	t.Run("merges frames into one kick", func(t *testing.T) {
		rows := []Row{
			row(7, 2, "NOSE", 0.5, 0.1),
			row(7, 1, "NOSE", 0.4, 0.1),
		}
		kick, _ := KickFromRows(rows)
		assert.Equal(t, int64(7), kick.KickID)
		require.Len(t, kick.Frames, 2)
		assert.Equal(t, uint32(1), kick.Frames[0].FrameNo)
	})
}

func TestLandmarks_WithMidHip(t *testing.T) {
	t.Run("synthesizes from both hips", func(t *testing.T) {
		lm := Landmarks{
			HipLeft:  {Joint: HipLeft, X: 0.5, Y: 0.5, Visibility: 0.8},
			HipRight: {Joint: HipRight, X: 0.7, Y: 0.5, Visibility: 0.9},
		}
		out := lm.WithMidHip()
		require.True(t, out.Has(MidHip))
		assert.InDelta(t, 0.6, out[MidHip].X, 1e-12)
		assert.InDelta(t, 0.5, out[MidHip].Y, 1e-12)
		assert.InDelta(t, 0.8, out[MidHip].Visibility, 1e-12)
		assert.False(t, lm.Has(MidHip), "input map must not be modified")
	})

	t.Run("keeps existing mid hip", func(t *testing.T) {
		lm := Landmarks{
			MidHip:   {Joint: MidHip, X: 0.1},
			HipLeft:  {Joint: HipLeft, X: 0.5},
			HipRight: {Joint: HipRight, X: 0.7},
		}
		assert.InDelta(t, 0.1, lm.WithMidHip()[MidHip].X, 1e-12)
	})

	t.Run("one hip only", func(t *testing.T) {
		lm := Landmarks{HipLeft: {Joint: HipLeft, X: 0.5}}
		assert.False(t, lm.WithMidHip().Has(MidHip))
	})
}

func TestRows(t *testing.T) {
	frame := Frame{FrameID: 9, KickID: 3, VideoID: 1, FrameNo: 11, Landmarks: StandingKickerLandmarks(0)}
	rows := Rows(frame)
	require.Len(t, rows, len(Vocabulary))

	kick, report := KickFromRows(rows)
	assert.Zero(t, report.Skipped())
	require.Len(t, kick.Frames, 1)
	assert.Equal(t, frame.Landmarks, kick.Frames[0].Landmarks)
}

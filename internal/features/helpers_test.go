package features

import (
	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

const tolerance = 1e-9

// testKick builds a kick of n frames numbered from 1 with the kicker drifting
// right a little each frame.
func testKick(id int64, n int) pose.Kick {
	kick := pose.Kick{KickID: id, VideoID: 1, Direction: 3}
	for i := 1; i <= n; i++ {
		kick.Frames = append(kick.Frames, pose.Frame{
			FrameID:   id*100 + int64(i),
			KickID:    id,
			VideoID:   1,
			FrameNo:   uint32(i),
			Landmarks: pose.StandingKickerLandmarks(float64(i) * 0.01),
		})
	}
	return kick
}

// transformLandmarks applies a uniform zoom k and translation (dx, dy).
func transformLandmarks(lm pose.Landmarks, k, dx, dy float64) pose.Landmarks {
	out := make(pose.Landmarks, len(lm))
	for j, p := range lm {
		p.X = k*p.X + dx
		p.Y = k*p.Y + dy
		p.Z = k * p.Z
		out[j] = p
	}
	return out
}

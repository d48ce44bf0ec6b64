package pose

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownLandmark is returned for a raw landmark name that matches no
	// known producer convention.
	ErrUnknownLandmark = errors.New("unknown landmark name")

	// ErrUntrackedLandmark is returned for a valid MediaPipe landmark that is
	// outside the tracked joint vocabulary (eyes, ears, fingers, heels).
	ErrUntrackedLandmark = errors.New("untracked landmark")
)

// MediaPipeLandmarks lists the 33 MediaPipe pose landmarks by index.
var MediaPipeLandmarks = [33]string{
	"NOSE",
	"LEFT_EYE_INNER", "LEFT_EYE", "LEFT_EYE_OUTER",
	"RIGHT_EYE_INNER", "RIGHT_EYE", "RIGHT_EYE_OUTER",
	"LEFT_EAR", "RIGHT_EAR",
	"MOUTH_LEFT", "MOUTH_RIGHT",
	"LEFT_SHOULDER", "RIGHT_SHOULDER",
	"LEFT_ELBOW", "RIGHT_ELBOW",
	"LEFT_WRIST", "RIGHT_WRIST",
	"LEFT_PINKY", "RIGHT_PINKY",
	"LEFT_INDEX", "RIGHT_INDEX",
	"LEFT_THUMB", "RIGHT_THUMB",
	"LEFT_HIP", "RIGHT_HIP",
	"LEFT_KNEE", "RIGHT_KNEE",
	"LEFT_ANKLE", "RIGHT_ANKLE",
	"LEFT_HEEL", "RIGHT_HEEL",
	"LEFT_FOOT_INDEX", "RIGHT_FOOT_INDEX",
}

// untrackedJoints are MediaPipe joint bases deliberately left out of the
// vocabulary.
var untrackedJoints = map[string]bool{
	"eye_inner": true,
	"eye":       true,
	"eye_outer": true,
	"ear":       true,
	"mouth":     true,
	"pinky":     true,
	"index":     true,
	"thumb":     true,
	"heel":      true,
}

// ParseLandmarkName converts a raw landmark name from any known producer into
// its canonical Joint. Accepted forms:
//
//	hip_left          canonical joint-then-side
//	left_hip          side-then-joint
//	LEFT_HIP          MediaPipe enum name
//	LANDMARK_23       MediaPipe landmark index
//
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseLandmarkName(raw string) (Joint, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnknownLandmark)
	}

	if rest, ok := strings.CutPrefix(name, "landmark_"); ok {
		idx, err := strconv.Atoi(rest)
		if err != nil || idx < 0 || idx >= len(MediaPipeLandmarks) {
			return "", fmt.Errorf("%w: %q", ErrUnknownLandmark, raw)
		}
		name = strings.ToLower(MediaPipeLandmarks[idx])
	}

	if j, ok := unsidedJoints[name]; ok {
		return j, nil
	}

	tokens := strings.Split(name, "_")
	if len(tokens) < 2 {
		if untrackedJoints[name] {
			return "", fmt.Errorf("%w: %q", ErrUntrackedLandmark, raw)
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownLandmark, raw)
	}

	var side, base string
	switch {
	case isSide(tokens[0]):
		side, base = tokens[0], strings.Join(tokens[1:], "_")
	case isSide(tokens[len(tokens)-1]):
		side, base = tokens[len(tokens)-1], strings.Join(tokens[:len(tokens)-1], "_")
	default:
		return "", fmt.Errorf("%w: %q has no side", ErrUnknownLandmark, raw)
	}

	if sidedJoints[base] {
		return Joint(base + "_" + side), nil
	}
	if untrackedJoints[base] {
		return "", fmt.Errorf("%w: %q", ErrUntrackedLandmark, raw)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLandmark, raw)
}

func isSide(s string) bool {
	return s == "left" || s == "right"
}

// MediaPipeName returns the MediaPipe enum name for a joint, or "" for joints
// MediaPipe does not produce directly.
func MediaPipeName(j Joint) string {
	if j == Nose {
		return "NOSE"
	}
	for _, base := range []string{"foot_index", "shoulder", "elbow", "wrist", "hip", "knee", "ankle"} {
		if side, ok := strings.CutPrefix(string(j), base+"_"); ok && isSide(side) {
			return strings.ToUpper(side + "_" + base)
		}
	}
	return ""
}

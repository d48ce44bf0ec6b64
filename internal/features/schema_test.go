package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

// servingColumns is the column list used by the serving route before the
// schema was shared, kept here to prove the canonical schema is equivalent.
var servingColumns = []string{
	"x_ankle_left", "x_elbow_left", "x_left_foot_index", "x_hip_left", "x_knee_left", "x_shoulder_left", "x_wrist_left",
	"x_ankle_right", "x_elbow_right", "x_right_foot_index", "x_hip_right", "x_knee_right", "x_shoulder_right", "x_wrist_right",
	"y_ankle_left", "y_elbow_left", "y_left_foot_index", "y_hip_left", "y_knee_left", "y_shoulder_left", "y_wrist_left",
	"y_ankle_right", "y_elbow_right", "y_right_foot_index", "y_hip_right", "y_knee_right", "y_shoulder_right", "y_wrist_right",
	"z_ankle_left", "z_elbow_left", "z_left_foot_index", "z_hip_left", "z_knee_left", "z_shoulder_left", "z_wrist_left",
	"z_ankle_right", "z_elbow_right", "z_right_foot_index", "z_hip_right", "z_knee_right", "z_shoulder_right", "z_wrist_right",
	"x_mid_hip", "y_mid_hip",
	"angle_knee_left", "angle_knee_right", "angle_elbow_left", "angle_elbow_right",
}

func TestSequenceV1_MatchesServingColumns(t *testing.T) {
	legacy, err := NewSchema("legacy", DefaultTargetLength, DefaultReferenceFrameNo, Smoothing{}, servingColumns)
	require.NoError(t, err)

	assert.Equal(t, 48, SequenceV1.Width())
	require.NoError(t, CheckColumns(SequenceV1.Names(), legacy.Names()))
	assert.Equal(t, "x_foot_index_left", SequenceV1.Columns[2].Name)
}

func TestSequenceV2(t *testing.T) {
	assert.Equal(t, 52, SequenceV2.Width())
	assert.Equal(t, SequenceV1.Names(), SequenceV2.Names()[:48])
	assert.Equal(t, SequenceV1.TargetLength, SequenceV2.TargetLength)
}

func TestNewSchema_Errors(t *testing.T) {
	tests := []struct {
		name    string
		target  int
		smooth  Smoothing
		columns []string
	}{
		{"zero target", 0, Smoothing{}, []string{"x_nose"}},
		{"reference past target", 8, Smoothing{}, []string{"x_nose"}},
		{"unknown angle", 21, Smoothing{}, []string{"angle_neck"}},
		{"malformed", 21, Smoothing{}, []string{"w_hip_left"}},
		{"unknown joint", 21, Smoothing{}, []string{"x_tail_left"}},
		{"duplicate", 21, Smoothing{}, []string{"x_hip_left", "x_left_hip"}},
		{"even window", 21, Smoothing{Window: 4, Order: 2}, []string{"x_nose"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema("bad", tt.target, 11, tt.smooth, tt.columns)
			assert.Error(t, err)
		})
	}
}

func TestSchema_RowZeroFillsMissing(t *testing.T) {
	lm := pose.Landmarks{
		pose.HipLeft: {Joint: pose.HipLeft, X: 0.25, Y: -0.5, Z: 0.1},
	}
	row := SequenceV1.Row(lm)
	require.Len(t, row, SequenceV1.Width())

	named := SequenceV1.RowMap(row)
	assert.Equal(t, 0.25, named["x_hip_left"])
	assert.Equal(t, -0.5, named["y_hip_left"])
	assert.Equal(t, 0.1, named["z_hip_left"])
	for name, v := range named {
		if strings.HasSuffix(name, "_hip_left") {
			continue
		}
		assert.Zero(t, v, name)
	}
}

func TestCheckColumns(t *testing.T) {
	assert.NoError(t, CheckColumns([]string{"a", "b"}, []string{"a", "b"}))
	assert.ErrorIs(t, CheckColumns([]string{"a", "b"}, []string{"b", "a"}), ErrColumnMismatch)
	assert.ErrorIs(t, CheckColumns([]string{"a"}, []string{"a", "b"}), ErrColumnMismatch)
}

func TestLookup(t *testing.T) {
	s, err := Lookup("seq-v1")
	require.NoError(t, err)
	assert.Same(t, SequenceV1, s)

	_, err = Lookup("seq-v9")
	assert.Error(t, err)
}

func TestColumn_Joints(t *testing.T) {
	col, err := ParseColumn("y_left_knee")
	require.NoError(t, err)
	assert.Equal(t, []pose.Joint{pose.KneeLeft}, col.Joints())

	col, err = ParseColumn("angle_knee_left")
	require.NoError(t, err)
	assert.Equal(t, []pose.Joint{pose.HipLeft, pose.KneeLeft, pose.AnkleLeft}, col.Joints())
}

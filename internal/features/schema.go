// Package features turns pose landmarks into the fixed-shape numeric
// sequences consumed by the kick direction classifier. Training and serving
// both build their features through a Schema from this package.
package features

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urdof7/penalty-kick-prediction/internal/pose"
)

const (
	// DefaultTargetLength is the fixed number of frames per kick sequence:
	// ten frames either side of the mid-swing frame.
	DefaultTargetLength = 21

	// DefaultReferenceFrameNo is the mid-swing frame number within an
	// extracted kick.
	DefaultReferenceFrameNo = 11

	// DefaultSchemaVersion is used when no version is configured.
	DefaultSchemaVersion = "seq-v1"
)

// ErrColumnMismatch is returned when two column lists differ in length,
// names or order.
var ErrColumnMismatch = errors.New("feature column mismatch")

// ColumnKind distinguishes coordinate columns from derived angle columns.
type ColumnKind int

const (
	KindCoordinate ColumnKind = iota
	KindAngle
)

// Column describes how one feature value is derived from a frame.
type Column struct {
	Name  string
	Kind  ColumnKind
	Axis  byte
	Joint pose.Joint
	Angle AngleSpec
}

// Joints returns the joints a column reads.
func (c Column) Joints() []pose.Joint {
	if c.Kind == KindAngle {
		return []pose.Joint{c.Angle.Arm1, c.Angle.Center, c.Angle.Arm2}
	}
	return []pose.Joint{c.Joint}
}

// Smoothing configures Savitzky-Golay smoothing of coordinate trajectories.
// A zero Window disables it.
type Smoothing struct {
	Window int `json:"window" yaml:"window"`
	Order  int `json:"order" yaml:"order"`
}

// Schema is the versioned feature contract shared by dataset generation and
// the inference adapter: the ordered columns, the sequence length and the
// mid-swing reference frame.
type Schema struct {
	Version          string
	TargetLength     int
	ReferenceFrameNo uint32
	Smoothing        Smoothing
	Columns          []Column
}

// NewSchema builds a schema from column names. Names are canonicalized, so
// legacy spellings such as "x_left_foot_index" become "x_foot_index_left".
func NewSchema(version string, targetLength int, referenceFrameNo uint32, smoothing Smoothing, names []string) (*Schema, error) {
	if targetLength <= 0 {
		return nil, fmt.Errorf("schema %s: target length must be positive, got %d", version, targetLength)
	}
	if referenceFrameNo < 1 || int(referenceFrameNo) > targetLength {
		return nil, fmt.Errorf("schema %s: reference frame %d outside 1..%d", version, referenceFrameNo, targetLength)
	}
	if smoothing.Window > 0 && (smoothing.Window%2 == 0 || smoothing.Order >= smoothing.Window) {
		return nil, fmt.Errorf("schema %s: invalid smoothing window %d order %d", version, smoothing.Window, smoothing.Order)
	}

	s := &Schema{
		Version:          version,
		TargetLength:     targetLength,
		ReferenceFrameNo: referenceFrameNo,
		Smoothing:        smoothing,
		Columns:          make([]Column, 0, len(names)),
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		col, err := ParseColumn(name)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", version, err)
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("schema %s: duplicate column %s", version, col.Name)
		}
		seen[col.Name] = true
		s.Columns = append(s.Columns, col)
	}

	return s, nil
}

// ParseColumn resolves a feature column name of the form {axis}_{joint} or
// angle_{name}.
func ParseColumn(name string) (Column, error) {
	if angleName, ok := strings.CutPrefix(name, "angle_"); ok {
		spec, ok := angleSpecs[angleName]
		if !ok {
			return Column{}, fmt.Errorf("unknown angle column %q", name)
		}
		return Column{Name: name, Kind: KindAngle, Angle: spec}, nil
	}

	if len(name) < 3 || name[1] != '_' || !strings.ContainsRune("xyz", rune(name[0])) {
		return Column{}, fmt.Errorf("malformed column %q", name)
	}
	joint, err := pose.ParseLandmarkName(name[2:])
	if err != nil {
		return Column{}, fmt.Errorf("column %q: %w", name, err)
	}

	axis := name[0]
	return Column{
		Name:  CoordinateColumn(axis, joint),
		Kind:  KindCoordinate,
		Axis:  axis,
		Joint: joint,
	}, nil
}

// CoordinateColumn returns the canonical column name for one axis of a joint.
func CoordinateColumn(axis byte, joint pose.Joint) string {
	return string(axis) + "_" + string(joint)
}

// Width returns the number of feature columns F.
func (s *Schema) Width() int {
	return len(s.Columns)
}

// Names returns the ordered column names.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of a column, or -1.
func (s *Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row computes one feature row from a frame's normalized landmarks. Columns
// whose landmarks are absent are zero-filled so the width never changes.
func (s *Schema) Row(lm pose.Landmarks) []float64 {
	row := make([]float64, len(s.Columns))
	for i, c := range s.Columns {
		switch c.Kind {
		case KindCoordinate:
			p, ok := lm[c.Joint]
			if !ok {
				continue
			}
			switch c.Axis {
			case 'x':
				row[i] = p.X
			case 'y':
				row[i] = p.Y
			case 'z':
				row[i] = p.Z
			}
		case KindAngle:
			row[i], _ = c.Angle.Compute(lm)
		}
	}
	return row
}

// RowMap returns a named view of a feature row.
func (s *Schema) RowMap(row []float64) map[string]float64 {
	out := make(map[string]float64, len(s.Columns))
	for i, c := range s.Columns {
		if i < len(row) {
			out[c.Name] = row[i]
		}
	}
	return out
}

// CheckColumns reports whether two ordered column lists are identical. The
// error names the first differing position.
func CheckColumns(want, got []string) error {
	if len(want) != len(got) {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrColumnMismatch, len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w: column %d is %q, expected %q", ErrColumnMismatch, i, got[i], want[i])
		}
	}
	return nil
}

// poseColumnOrder is the per-axis joint order of the sequence schemas.
var poseColumnOrder = []pose.Joint{
	pose.AnkleLeft, pose.ElbowLeft, pose.FootIndexLeft, pose.HipLeft,
	pose.KneeLeft, pose.ShoulderLeft, pose.WristLeft,
	pose.AnkleRight, pose.ElbowRight, pose.FootIndexRight, pose.HipRight,
	pose.KneeRight, pose.ShoulderRight, pose.WristRight,
}

func sequenceColumns(angles ...string) []string {
	var names []string
	for _, axis := range []byte("xyz") {
		for _, j := range poseColumnOrder {
			names = append(names, CoordinateColumn(axis, j))
		}
	}
	names = append(names,
		CoordinateColumn('x', pose.MidHip),
		CoordinateColumn('y', pose.MidHip),
	)
	for _, a := range angles {
		names = append(names, "angle_"+a)
	}
	return names
}

func mustSchema(s *Schema, err error) *Schema {
	if err != nil {
		panic(err)
	}
	return s
}

var (
	// SequenceV1 is the 48-column sequence schema: x, y and z of fourteen
	// joints, the mid-hip position and the knee and elbow angles.
	SequenceV1 = mustSchema(NewSchema("seq-v1", DefaultTargetLength, DefaultReferenceFrameNo, Smoothing{},
		sequenceColumns(StandardAngles...)))

	// SequenceV2 extends SequenceV1 with ankle and foot angles and smooths
	// coordinate trajectories before angles are taken.
	SequenceV2 = mustSchema(NewSchema("seq-v2", DefaultTargetLength, DefaultReferenceFrameNo, Smoothing{Window: 5, Order: 2},
		sequenceColumns(ExtendedAngles...)))
)

var schemas = map[string]*Schema{
	SequenceV1.Version: SequenceV1,
	SequenceV2.Version: SequenceV2,
}

// Lookup returns the registered schema with the given version.
func Lookup(version string) (*Schema, error) {
	s, ok := schemas[version]
	if !ok {
		return nil, fmt.Errorf("unknown feature schema %q", version)
	}
	return s, nil
}

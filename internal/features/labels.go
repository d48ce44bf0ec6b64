package features

import (
	"fmt"
	"slices"
)

// Direction names for the six goal quadrants, keyed by raw label.
var DirectionNames = map[int]string{
	1: "TL",
	2: "MT",
	3: "TR",
	4: "BL",
	5: "MB",
	6: "BR",
}

// LabelMap is a bijection between raw direction labels and dense class
// indices 0..C-1. Labels holds the raw labels in class index order.
type LabelMap struct {
	Labels []int `json:"labels" yaml:"labels"`
}

// QuadrantLabels is the fixed mapping for the six-quadrant task.
var QuadrantLabels = LabelMap{Labels: []int{1, 2, 3, 4, 5, 6}}

// FitLabelMap derives a mapping from observed raw labels by sorting the
// distinct values ascending.
func FitLabelMap(raw []int) LabelMap {
	labels := slices.Clone(raw)
	slices.Sort(labels)
	return LabelMap{Labels: slices.Compact(labels)}
}

// NumClasses returns C.
func (m LabelMap) NumClasses() int {
	return len(m.Labels)
}

// Encode maps a raw label to its class index.
func (m LabelMap) Encode(raw int) (int, error) {
	idx, ok := slices.BinarySearch(m.Labels, raw)
	if !ok {
		return 0, fmt.Errorf("label %d not in mapping %v", raw, m.Labels)
	}
	return idx, nil
}

// EncodeAll maps every raw label to its class index.
func (m LabelMap) EncodeAll(raw []int) ([]int, error) {
	out := make([]int, len(raw))
	for i, r := range raw {
		idx, err := m.Encode(r)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// Decode maps a class index back to its raw label.
func (m LabelMap) Decode(class int) (int, error) {
	if class < 0 || class >= len(m.Labels) {
		return 0, fmt.Errorf("class %d out of range [0,%d)", class, len(m.Labels))
	}
	return m.Labels[class], nil
}

// Validate checks that the labels are strictly ascending.
func (m LabelMap) Validate() error {
	if len(m.Labels) == 0 {
		return fmt.Errorf("empty label mapping")
	}
	for i := 1; i < len(m.Labels); i++ {
		if m.Labels[i] <= m.Labels[i-1] {
			return fmt.Errorf("labels not strictly ascending at %d: %v", i, m.Labels)
		}
	}
	return nil
}

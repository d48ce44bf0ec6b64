package features

import (
	"gonum.org/v1/gonum/mat"
)

// Policy decides how a kick whose frame count differs from the target length
// is handled.
type Policy int

const (
	// Lenient always produces a sequence: short kicks are padded with zero
	// rows at the bottom and long kicks keep their first rows.
	Lenient Policy = iota
	// Strict discards any kick whose frame count is not the target length.
	Strict
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	default:
		return "lenient"
	}
}

// Sequence is one kick's fixed-shape feature matrix and its class index.
type Sequence struct {
	KickID int64
	Matrix *mat.Dense
	Label  int
}

// Assemble stacks rows into a target x width matrix. The second result is
// false when the strict policy discards the input. width is used when rows is
// empty.
func Assemble(rows [][]float64, target, width int, policy Policy) (*mat.Dense, bool) {
	if policy == Strict && len(rows) != target {
		return nil, false
	}

	m := mat.NewDense(target, width, nil)
	for i := 0; i < target && i < len(rows); i++ {
		m.SetRow(i, rows[i])
	}
	return m, true
}

// CorpusMaxLength returns the largest frame count among kicks.
func CorpusMaxLength(lengths []int) int {
	maxLen := 0
	for _, n := range lengths {
		maxLen = max(maxLen, n)
	}
	return maxLen
}

// Rows returns the matrix as row slices.
func Rows(m *mat.Dense) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

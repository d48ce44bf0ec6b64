package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitLabelMap(t *testing.T) {
	raw := []int{6, 2, 2, 4, 6, 1}
	m := FitLabelMap(raw)
	require.NoError(t, m.Validate())
	assert.Equal(t, []int{1, 2, 4, 6}, m.Labels)
	assert.Equal(t, 4, m.NumClasses())

	encoded, err := m.EncodeAll(raw)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 1, 2, 3, 0}, encoded)

	t.Run("bijection", func(t *testing.T) {
		seen := make(map[int]bool)
		for _, l := range m.Labels {
			idx, err := m.Encode(l)
			require.NoError(t, err)
			assert.False(t, seen[idx])
			seen[idx] = true

			back, err := m.Decode(idx)
			require.NoError(t, err)
			assert.Equal(t, l, back)
		}
		assert.Len(t, seen, m.NumClasses())
	})

	t.Run("refit on encoded labels is identity", func(t *testing.T) {
		again := FitLabelMap(encoded)
		assert.Equal(t, []int{0, 1, 2, 3}, again.Labels)
		twice, err := again.EncodeAll(encoded)
		require.NoError(t, err)
		assert.Equal(t, encoded, twice)
	})
}

func TestLabelMap_Errors(t *testing.T) {
	_, err := QuadrantLabels.Encode(7)
	assert.Error(t, err)

	_, err = QuadrantLabels.Decode(6)
	assert.Error(t, err)

	_, err = QuadrantLabels.Decode(-1)
	assert.Error(t, err)

	assert.Error(t, LabelMap{}.Validate())
	assert.Error(t, LabelMap{Labels: []int{2, 1}}.Validate())
}

func TestQuadrantLabels(t *testing.T) {
	require.NoError(t, QuadrantLabels.Validate())
	assert.Equal(t, 6, QuadrantLabels.NumClasses())
	for _, l := range QuadrantLabels.Labels {
		assert.NotEmpty(t, DirectionNames[l])
	}
}

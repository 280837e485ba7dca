//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package laps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollingConsistency(t *testing.T) {
	lapTimes := []float64{10, 11, 9, 30, 10}
	got := RollingConsistency(lapTimes, 3)

	assert.Len(t, got, len(lapTimes))
	// fewer than window laps: no value, not zero
	assert.False(t, got[0].Defined())
	assert.False(t, got[1].Defined())
	assert.True(t, got[2].Defined())
	// window [10,11,9]: median 10, deviations [0,1,1] -> MAD 1
	assert.InDelta(t, 1.4826, got[2].Float(), 1e-9)
	// window [11,9,30]: the outlier raises the dispersion well above
	// the previous window
	assert.InDelta(t, 2*1.4826, got[3].Float(), 1e-9)
	assert.Greater(t, got[3].Float(), got[2].Float())
}

func TestRollingConsistency_windowLocality(t *testing.T) {
	base := []float64{10, 11, 9, 30, 10, 12, 11}
	modified := append([]float64{}, base...)
	modified[0] = 99 // outside the window ending at index 3

	gotBase := RollingConsistency(base, 3)
	gotModified := RollingConsistency(modified, 3)

	// value at i depends only on lapTimes[i-W+1..i]
	assert.Equal(t, gotBase[3], gotModified[3])
	assert.Equal(t, gotBase[4], gotModified[4])
	// but the window containing index 0 changes
	assert.NotEqual(t, gotBase[2], gotModified[2])
}

func TestRollingConsistency_evenWindow(t *testing.T) {
	// even sized windows interpolate the median
	got := RollingConsistency([]float64{10, 12, 14, 16}, 4)
	// median 13, deviations [3,1,1,3] -> MAD 2
	assert.InDelta(t, 2*1.4826, got[3].Float(), 1e-9)
}

func TestRollingConsistency_defaultWindow(t *testing.T) {
	lapTimes := make([]float64, 10)
	for i := range lapTimes {
		lapTimes[i] = 100
	}
	got := RollingConsistency(lapTimes, 0)

	assert.False(t, got[DefaultConsistencyWindow-2].Defined())
	assert.True(t, got[DefaultConsistencyWindow-1].Defined())
	assert.InDelta(t, 0, got[DefaultConsistencyWindow-1].Float(), 1e-9)
}

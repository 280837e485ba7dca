package laps

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/raceiq/raceiq-console-go/pkg/model"
)

// madScale converts a median absolute deviation into an estimate of
// the standard deviation under normality.
const madScale = 1.4826

// DefaultConsistencyWindow is the trailing lap count used when no
// window is configured.
const DefaultConsistencyWindow = 8

// RollingConsistency computes a robust dispersion value per lap: the
// median absolute deviation of the trailing window lap times, scaled
// by madScale. MAD is used instead of a plain standard deviation so
// single anomalies (yellow flags, pit laps) do not dominate the value.
// Indices with fewer than window trailing laps are undefined.
// NaN entries (laps without a usable time) are skipped within the
// window; a window without any usable time is undefined.
// The value at index i depends only on lapTimes[i-window+1..i].
func RollingConsistency(lapTimes []float64, window int) []model.Metric {
	if window <= 0 {
		window = DefaultConsistencyWindow
	}
	ret := make([]model.Metric, len(lapTimes))
	for i := range lapTimes {
		if i < window-1 {
			ret[i] = model.UndefinedMetric()
			continue
		}
		win := defined(lapTimes[i-window+1 : i+1])
		if len(win) == 0 {
			ret[i] = model.UndefinedMetric()
			continue
		}
		ret[i] = model.MetricOf(madScale * mad(win))
	}
	return ret
}

func defined(xs []float64) []float64 {
	ret := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			ret = append(ret, x)
		}
	}
	return ret
}

// mad is the median absolute deviation from the median.
func mad(xs []float64) float64 {
	m := median(xs)
	devs := make([]float64, len(xs))
	for i, x := range xs {
		devs[i] = math.Abs(x - m)
	}
	return median(devs)
}

// median interpolates between the two middle values for even counts.
// xs is modified.
func median(xs []float64) float64 {
	sort.Float64s(xs)
	return stat.Quantile(0.5, stat.LinInterp, xs, nil)
}

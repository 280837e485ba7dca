package laps

import (
	"sort"

	"github.com/raceiq/raceiq-console-go/pkg/model"
)

// DefaultPaceWindow is the trailing lap count for rolling pace when no
// window is configured.
const DefaultPaceWindow = 5

// EffectiveLap clamps a lap filter to the vehicle's last recorded lap.
// Values below 1 snap to 1; a vehicle without laps leaves the filter
// untouched.
func EffectiveLap(records []model.LapRecord, vehicle string, lapFilter int) int {
	if lapFilter < 1 {
		lapFilter = 1
	}
	if maxLap := MaxLap(records, vehicle); maxLap > 0 && lapFilter > maxLap {
		return maxLap
	}
	return lapFilter
}

// RollingPace computes the trailing mean lap time per lap for a single
// vehicle. Records are ordered by lap number first. Flagged laps carry
// no usable time and contribute nothing; a window without any usable
// lap time yields an undefined pace. A partial leading window still
// produces a value, so pace is available from lap one.
func RollingPace(records []model.LapRecord, window int) []model.Metric {
	if window <= 0 {
		window = DefaultPaceWindow
	}
	sorted := make([]model.LapRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LapNo < sorted[j].LapNo
	})

	ret := make([]model.Metric, len(sorted))
	for i := range sorted {
		first := i - window + 1
		if first < 0 {
			first = 0
		}
		sum := 0.0
		n := 0
		for j := first; j <= i; j++ {
			if sorted[j].Flagged {
				continue
			}
			sum += sorted[j].LapTime
			n++
		}
		if n == 0 {
			ret[i] = model.UndefinedMetric()
			continue
		}
		ret[i] = model.MetricOf(sum / float64(n))
	}
	return ret
}

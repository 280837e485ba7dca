package standings

import (
	"math"

	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

const (
	// DefaultUndercutThreshold is the mean pace deficit (seconds per
	// lap over the last three laps) above which pitting early is worth
	// considering.
	DefaultUndercutThreshold = 0.3

	RecommendUndercut = "Consider undercut"
	RecommendStayOut  = "Stay out"
)

// PaceDelta compares the rolling pace of two vehicles lap by lap.
// The lap axis is the union of both vehicles' laps; a vehicle missing
// a lap on that axis still carries a pace value as long as any of its
// trailing window laps exist. Delta is own minus rival pace, so a
// positive delta means the rival is currently faster. The cumulative
// gap accumulates defined deltas and is undefined at laps where the
// delta is. Recommendation: undercut when the mean of the last three
// defined deltas exceeds the threshold.
func PaceDelta(
	records []model.LapRecord,
	vehicleID, rivalID string,
	window int,
	threshold float64,
) model.PaceDelta {
	if threshold <= 0 {
		threshold = DefaultUndercutThreshold
	}
	byVehicle := laps.ByVehicle(records)
	ownRecs := byVehicle[vehicleID]
	rivalRecs := byVehicle[rivalID]

	maxLap := laps.MaxLap(ownRecs, model.AllVehicles)
	if rivalMax := laps.MaxLap(rivalRecs, model.AllVehicles); rivalMax > maxLap {
		maxLap = rivalMax
	}

	ret := model.PaceDelta{
		VehicleID:      vehicleID,
		RivalID:        rivalID,
		Recommendation: RecommendStayOut,
	}
	if maxLap == 0 {
		return ret
	}

	own := paceOnAxis(ownRecs, maxLap, window)
	rival := paceOnAxis(rivalRecs, maxLap, window)

	cum := 0.0
	ret.Entries = make([]model.PaceDeltaEntry, 0, maxLap)
	for lap := 1; lap <= maxLap; lap++ {
		e := model.PaceDeltaEntry{
			LapNo:         lap,
			OwnPace:       own[lap-1],
			RivalPace:     rival[lap-1],
			Delta:         model.UndefinedMetric(),
			CumulativeGap: model.UndefinedMetric(),
		}
		if e.OwnPace.Defined() && e.RivalPace.Defined() {
			delta := e.OwnPace.Float() - e.RivalPace.Float()
			cum += delta
			e.Delta = model.MetricOf(delta)
			e.CumulativeGap = model.MetricOf(cum)
		}
		ret.Entries = append(ret.Entries, e)
	}

	if mean, ok := recentDeltaMean(ret.Entries, 3); ok && mean > threshold {
		ret.Recommendation = RecommendUndercut
	}
	return ret
}

// paceOnAxis computes the rolling pace over the lap axis 1..maxLap.
// Laps the vehicle never completed (or completed without a usable
// time) count as holes: they contribute nothing to the window but the
// window still spans them.
func paceOnAxis(recs []model.LapRecord, maxLap, window int) []model.Metric {
	if window <= 0 {
		window = laps.DefaultPaceWindow
	}
	vals := make([]float64, maxLap)
	for i := range vals {
		vals[i] = math.NaN()
	}
	for i := range recs {
		r := &recs[i]
		if r.Flagged || r.LapNo < 1 || r.LapNo > maxLap {
			continue
		}
		vals[r.LapNo-1] = r.LapTime
	}

	ret := make([]model.Metric, maxLap)
	for i := range vals {
		first := i - window + 1
		if first < 0 {
			first = 0
		}
		sum := 0.0
		n := 0
		for j := first; j <= i; j++ {
			if math.IsNaN(vals[j]) {
				continue
			}
			sum += vals[j]
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

func recentDeltaMean(entries []model.PaceDeltaEntry, n int) (float64, bool) {
	first := len(entries) - n
	if first < 0 {
		first = 0
	}
	sum := 0.0
	cnt := 0
	for _, e := range entries[first:] {
		if !e.Delta.Defined() {
			continue
		}
		sum += e.Delta.Float()
		cnt++
	}
	if cnt == 0 {
		return 0, false
	}
	return sum / float64(cnt), true
}

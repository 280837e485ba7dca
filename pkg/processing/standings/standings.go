// Package standings builds the leaderboard and the pace comparison
// used for undercut calls. Both work on lap records already restricted
// to the replay progress (laps up to the current lap).
package standings

import (
	"math"
	"sort"

	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

// Build computes one Standing per vehicle. Missing lap times (flagged
// laps) are filled with that vehicle's rolling pace for the estimated
// total, so a vehicle with a timing glitch still ranks plausibly.
// Rows are sorted by estimated total time, leader first; vehicles
// without any estimate rank last, by id.
func Build(records []model.LapRecord, paceWindow, consistencyWindow int) []model.Standing {
	byVehicle := laps.ByVehicle(records)

	ret := make([]model.Standing, 0, len(byVehicle))
	for vehicle, recs := range byVehicle {
		ret = append(ret, buildRow(vehicle, recs, paceWindow, consistencyWindow))
	}

	sort.SliceStable(ret, func(i, j int) bool {
		a, b := ret[i].EstTotalTime, ret[j].EstTotalTime
		switch {
		case a.Defined() && b.Defined():
			if a.Float() != b.Float() {
				return a.Float() < b.Float()
			}
		case a.Defined():
			return true
		case b.Defined():
			return false
		}
		return ret[i].VehicleID < ret[j].VehicleID
	})
	for i := range ret {
		ret[i].Pos = i + 1
	}
	return ret
}

func buildRow(
	vehicle string,
	recs []model.LapRecord,
	paceWindow, consistencyWindow int,
) model.Standing {
	sorted := make([]model.LapRecord, len(recs))
	copy(sorted, recs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LapNo < sorted[j].LapNo
	})

	pace := laps.RollingPace(sorted, paceWindow)
	cons := laps.RollingConsistency(cleanTimes(sorted), consistencyWindow)

	ret := model.Standing{
		VehicleID:    vehicle,
		EstTotalTime: model.UndefinedMetric(),
		CurrentPace:  model.UndefinedMetric(),
		BestLap:      model.UndefinedMetric(),
		Consistency:  model.UndefinedMetric(),
	}

	est := 0.0
	estSeen := false
	for i := range sorted {
		r := &sorted[i]
		if r.LapNo > ret.LapsDone {
			ret.LapsDone = r.LapNo
		}
		switch {
		case !r.Flagged:
			est += r.LapTime
			estSeen = true
			if !ret.BestLap.Defined() || r.LapTime < ret.BestLap.Float() {
				ret.BestLap = model.MetricOf(r.LapTime)
			}
		case pace[i].Defined():
			est += pace[i].Float()
			estSeen = true
		}
	}
	if estSeen {
		ret.EstTotalTime = model.MetricOf(est)
	}
	if len(sorted) > 0 {
		ret.CurrentPace = pace[len(pace)-1]
		ret.Consistency = cons[len(cons)-1]
	}
	return ret
}

// cleanTimes hands the consistency estimator the lap time sequence with
// flagged laps as NaN so a timing glitch does not read as a dispersion
// collapse.
func cleanTimes(sorted []model.LapRecord) []float64 {
	ret := make([]float64, len(sorted))
	for i := range sorted {
		if sorted[i].Flagged {
			ret[i] = math.NaN()
			continue
		}
		ret[i] = sorted[i].LapTime
	}
	return ret
}

package kpi

import (
	"github.com/samber/lo"

	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

type (
	// Calculator combines lap records and telemetry aggregates into
	// the top line KPISet.
	Calculator struct {
		coeffs Coefficients
	}
	Option func(*Calculator)
)

func WithCoefficients(c Coefficients) Option {
	return func(calc *Calculator) {
		calc.coeffs = c
	}
}

func NewCalculator(opts ...Option) *Calculator {
	ret := &Calculator{coeffs: DefaultCoefficients()}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Compute builds the KPISet for the selection. records is the full
// lap record set of the race; aggs must already be restricted to the
// selection (vehicle filter, laps up to the current lap). The current
// lap is clamped to the selected vehicle's last recorded lap, so an
// out of range lap filter never causes an out of range lookup.
// Undefined inputs yield undefined KPIs, never zeros.
func (c *Calculator) Compute(
	sel model.SelectionState,
	records []model.LapRecord,
	aggs []model.TelemetryAggregate,
) model.KPISet {
	ret := model.KPISet{
		SelectedVehicle:  sel.VehicleFilter,
		CurrentLap:       laps.EffectiveLap(records, sel.VehicleFilter, sel.LapFilter),
		GapToLeader:      model.UndefinedMetric(),
		FuelRemainingPct: model.UndefinedMetric(),
		TyreLifePct:      model.UndefinedMetric(),
		BestLap:          model.UndefinedMetric(),
		LastLap:          model.UndefinedMetric(),
		AvgPace:          model.UndefinedMetric(),
		PitWindowLap:     model.UndefinedMetric(),
	}

	ret.GapToLeader = c.gapToLeader(sel.VehicleFilter, ret.CurrentLap, records)

	fuelFactor := actuationFactor(aggs,
		func(a model.TelemetryAggregate) model.Metric { return a.AvgThrottle },
		c.coeffs.FuelFallbackThrottle)
	ret.FuelRemainingPct = model.MetricOf(clamp(
		100-float64(ret.CurrentLap)*c.coeffs.FuelBurnPerLap*fuelFactor, 0, 100))

	tyreFactor := actuationFactor(aggs,
		func(a model.TelemetryAggregate) model.Metric { return a.AvgBrake },
		c.coeffs.TyreFallbackBrake)
	tyre := clamp(100-float64(ret.CurrentLap)*c.coeffs.TyreWearPerLap*tyreFactor, 0, 100)
	ret.TyreLifePct = model.MetricOf(tyre)
	if tyre > 0 && tyre < c.coeffs.PitTyreThreshold {
		ret.PitWindowLap = model.MetricOf(
			float64(ret.CurrentLap + int(tyre/c.coeffs.TyreWearPerLap)))
	}

	c.paceMetrics(&ret, sel.VehicleFilter, records)
	return ret
}

// gapToLeader computes the cumulative race time difference at the
// current lap. The leader is the vehicle with the minimum cumulative
// time among vehicles with a recorded lap at or before the lap. With
// the all-vehicles sentinel the average cumulative time is compared
// against the leader. No qualifying vehicle means no gap.
func (c *Calculator) gapToLeader(
	vehicle string,
	currentLap int,
	records []model.LapRecord,
) model.Metric {
	cums := make(map[string]float64)
	for i := range records {
		if records[i].LapNo > currentLap {
			continue
		}
		cums[records[i].VehicleID] += records[i].LapTime
	}
	if len(cums) == 0 {
		return model.UndefinedMetric()
	}
	leader := lo.Min(lo.Values(cums))

	if vehicle != model.AllVehicles {
		own, ok := cums[vehicle]
		if !ok {
			return model.UndefinedMetric()
		}
		return model.MetricOf(own - leader)
	}
	avg := lo.Sum(lo.Values(cums)) / float64(len(cums))
	return model.MetricOf(avg - leader)
}

// paceMetrics fills best/last lap and average pace over the laps up
// to the current lap. Flagged laps carry no real lap time and are
// skipped here.
func (c *Calculator) paceMetrics(
	ret *model.KPISet,
	vehicle string,
	records []model.LapRecord,
) {
	var times []float64
	lastLapNo := 0
	for i := range records {
		r := &records[i]
		if vehicle != model.AllVehicles && r.VehicleID != vehicle {
			continue
		}
		if r.LapNo > ret.CurrentLap || r.Flagged {
			continue
		}
		times = append(times, r.LapTime)
		if r.LapNo > lastLapNo {
			lastLapNo = r.LapNo
			ret.LastLap = model.MetricOf(r.LapTime)
		}
	}
	if len(times) == 0 {
		return
	}
	ret.BestLap = model.MetricOf(lo.Min(times))
	ret.AvgPace = model.MetricOf(lo.Sum(times) / float64(len(times)))
}

// actuationFactor derives the 0..1 actuation factor feeding the decay
// heuristics: the mean of the defined per lap averages, the fallback
// when telemetry is present without that channel, and full actuation
// when there is no telemetry at all.
func actuationFactor(
	aggs []model.TelemetryAggregate,
	channel func(model.TelemetryAggregate) model.Metric,
	fallback float64,
) float64 {
	if len(aggs) == 0 {
		return 1.0
	}
	sum := 0.0
	n := 0
	for _, agg := range aggs {
		if v := channel(agg); v.Defined() {
			sum += v.Float()
			n++
		}
	}
	if n == 0 {
		return fallback
	}
	return sum / float64(n) / 100
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

package telemetry

import (
	"math"
	"sort"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

type (
	// EstimateFunc converts the cumulative actuation integral of one
	// lap (value times seconds) into a per lap estimate. Supplied via
	// configuration so the heuristics can be swapped without touching
	// the aggregation itself.
	EstimateFunc func(lapDuration, integral float64) float64

	// LapRange bounds the laps to aggregate. From and To are
	// inclusive, a zero To means no upper bound.
	LapRange struct {
		From int
		To   int
	}

	// Aggregator groups telemetry samples by (vehicle, lap) and
	// computes the per lap statistics.
	Aggregator struct {
		fuelEstimate EstimateFunc
		tyreEstimate EstimateFunc
		l            *log.Logger
	}
	Option func(*Aggregator)
)

func (r LapRange) Contains(lap int) bool {
	if lap < r.From {
		return false
	}
	return r.To == 0 || lap <= r.To
}

// UpTo selects laps 1..lap.
func UpTo(lap int) LapRange { return LapRange{From: 1, To: lap} }

// AllLaps selects every lap.
func AllLaps() LapRange { return LapRange{From: 1} }

func WithFuelEstimate(f EstimateFunc) Option {
	return func(a *Aggregator) {
		a.fuelEstimate = f
	}
}

func WithTyreEstimate(f EstimateFunc) Option {
	return func(a *Aggregator) {
		a.tyreEstimate = f
	}
}

func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) {
		a.l = l
	}
}

// NewAggregator creates an Aggregator. Without options the default
// heuristic coefficients are used (0.5 pct fuel, 0.3 pct tyre per lap
// at full actuation).
func NewAggregator(opts ...Option) *Aggregator {
	ret := &Aggregator{
		fuelEstimate: LinearEstimate(0.5),
		tyreEstimate: LinearEstimate(0.3),
		l:            log.Default().Named("processing.telemetry"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// LinearEstimate builds the standard heuristic: perLap scaled by the
// mean actuation (integral over duration, 0-100) of the lap.
func LinearEstimate(perLap float64) EstimateFunc {
	return func(lapDuration, integral float64) float64 {
		if lapDuration <= 0 {
			return math.NaN()
		}
		return perLap * (integral / lapDuration) / 100
	}
}

// Aggregate computes TelemetryAggregate rows for the selection.
// Samples are filtered before any aggregation happens to keep the
// working set small. Lap numbers are assigned by interval membership
// against the vehicle's lap boundaries, samples outside any lap are
// discarded. Every selected (vehicle, lap) with a lap record yields a
// row; rows without samples keep undefined metrics so "no data" stays
// distinguishable from zero.
func (a *Aggregator) Aggregate(
	samples []model.TelemetrySample,
	records []model.LapRecord,
	vehicleFilter string,
	lapRange LapRange,
) []model.TelemetryAggregate {
	byVehicle := laps.ByVehicle(records)

	type key struct {
		vehicle string
		lap     int
	}
	groups := make(map[key]*lapAcc)
	for i := range samples {
		s := &samples[i]
		if vehicleFilter != model.AllVehicles && s.VehicleID != vehicleFilter {
			continue
		}
		recs, ok := byVehicle[s.VehicleID]
		if !ok {
			continue
		}
		lap := assignLap(recs, s.TS)
		if lap == 0 || !lapRange.Contains(lap) {
			continue
		}
		k := key{vehicle: s.VehicleID, lap: lap}
		acc, ok := groups[k]
		if !ok {
			acc = &lapAcc{}
			groups[k] = acc
		}
		acc.add(s)
	}

	ret := make([]model.TelemetryAggregate, 0, len(groups))
	for _, vehicle := range laps.Vehicles(records) {
		if vehicleFilter != model.AllVehicles && vehicle != vehicleFilter {
			continue
		}
		for _, rec := range byVehicle[vehicle] {
			if !lapRange.Contains(rec.LapNo) {
				continue
			}
			acc := groups[key{vehicle: vehicle, lap: rec.LapNo}]
			ret = append(ret, a.buildAggregate(vehicle, rec, acc))
		}
	}
	return ret
}

func (a *Aggregator) buildAggregate(
	vehicle string,
	rec model.LapRecord,
	acc *lapAcc,
) model.TelemetryAggregate {
	ret := model.TelemetryAggregate{
		VehicleID:    vehicle,
		LapNo:        rec.LapNo,
		AvgSpeed:     model.UndefinedMetric(),
		MaxSpeed:     model.UndefinedMetric(),
		AvgThrottle:  model.UndefinedMetric(),
		AvgBrake:     model.UndefinedMetric(),
		AvgLongAccel: model.UndefinedMetric(),
		AvgGear:      model.UndefinedMetric(),
		AvgEngineRPM: model.UndefinedMetric(),
		EstFuelUsed:  model.UndefinedMetric(),
		EstTyreWear:  model.UndefinedMetric(),
	}
	if acc == nil || acc.count == 0 {
		return ret
	}
	ret.SampleCount = acc.count
	ret.AvgSpeed = acc.speed.mean()
	ret.MaxSpeed = acc.speed.maximum()
	ret.AvgThrottle = acc.throttle.mean()
	ret.AvgBrake = acc.brake.mean()
	ret.AvgLongAccel = acc.longAccel.mean()
	ret.AvgGear = acc.gear.mean()
	ret.AvgEngineRPM = acc.engineRPM.mean()

	duration := rec.EndTS - rec.StartTS
	if integral, ok := acc.throttle.integral(duration); ok {
		ret.EstFuelUsed = model.MetricOf(a.fuelEstimate(duration, integral))
	}
	if integral, ok := acc.brake.integral(duration); ok {
		ret.EstTyreWear = model.MetricOf(a.tyreEstimate(duration, integral))
	}
	return ret
}

// assignLap returns the lap whose [start,end) interval contains ts,
// 0 when ts is outside every lap. recs must be sorted by EndTS, which
// holds for derived records.
func assignLap(recs []model.LapRecord, ts float64) int {
	idx := sort.Search(len(recs), func(i int) bool {
		return recs[i].EndTS > ts
	})
	if idx < len(recs) && ts >= recs[idx].StartTS {
		return recs[idx].LapNo
	}
	return 0
}

// lapAcc collects the channel statistics of one (vehicle, lap) group.
type lapAcc struct {
	count     int
	speed     chanAcc
	throttle  chanAcc
	brake     chanAcc
	longAccel chanAcc
	gear      chanAcc
	engineRPM chanAcc
}

func (l *lapAcc) add(s *model.TelemetrySample) {
	l.count++
	l.speed.add(s.Speed)
	l.throttle.add(s.Throttle)
	l.brake.add(s.Brake)
	l.longAccel.add(s.LongAccel)
	l.gear.add(s.Gear)
	l.engineRPM.add(s.EngineRPM)
}

// chanAcc accumulates one channel, ignoring samples where the channel
// is missing.
type chanAcc struct {
	sum float64
	max float64
	n   int
}

func (c *chanAcc) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if c.n == 0 || v > c.max {
		c.max = v
	}
	c.sum += v
	c.n++
}

func (c *chanAcc) mean() model.Metric {
	if c.n == 0 {
		return model.UndefinedMetric()
	}
	return model.MetricOf(c.sum / float64(c.n))
}

func (c *chanAcc) maximum() model.Metric {
	if c.n == 0 {
		return model.UndefinedMetric()
	}
	return model.MetricOf(c.max)
}

// integral approximates the cumulative actuation over the lap with
// uniform sample weighting, so integral/duration equals the sample
// mean regardless of sampling jitter.
func (c *chanAcc) integral(duration float64) (float64, bool) {
	if c.n == 0 || duration <= 0 {
		return 0, false
	}
	return c.sum * duration / float64(c.n), true
}

//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

func sampleRecords() []model.LapRecord {
	d := laps.NewDeriver()
	events := []model.LapEvent{
		{VehicleID: "10", EndTS: 10},
		{VehicleID: "10", EndTS: 20},
		{VehicleID: "10", EndTS: 35},
		{VehicleID: "20", EndTS: 12},
		{VehicleID: "20", EndTS: 24},
	}
	return d.Derive(events)
}

func sample(vehicle string, ts, speed, throttle, brake float64) model.TelemetrySample {
	return model.TelemetrySample{
		VehicleID: vehicle,
		TS:        ts,
		Speed:     speed,
		Throttle:  throttle,
		Brake:     brake,
		LongAccel: math.NaN(),
		Gear:      math.NaN(),
		EngineRPM: math.NaN(),
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	samples := []model.TelemetrySample{
		sample("10", 2, 100, 40, 10),
		sample("10", 5, 120, 60, 20),
		sample("10", 12, 140, 100, 0),
		// boundary sample: lap interval is [start,end), ts 20 is lap 3
		sample("10", 20, 90, 0, 50),
		sample("20", 3, 80, 50, 50),
		// outside any lap for vehicle 20 (last lap ends at 24)
		sample("20", 30, 80, 50, 50),
	}
	a := NewAggregator()
	got := a.Aggregate(samples, sampleRecords(), model.AllVehicles, AllLaps())

	// one row per (vehicle, lap) with a lap record
	assert.Len(t, got, 5)
	byKey := make(map[string]map[int]model.TelemetryAggregate)
	for _, agg := range got {
		if byKey[agg.VehicleID] == nil {
			byKey[agg.VehicleID] = make(map[int]model.TelemetryAggregate)
		}
		byKey[agg.VehicleID][agg.LapNo] = agg
	}

	lap1 := byKey["10"][1]
	assert.Equal(t, 2, lap1.SampleCount)
	assert.InDelta(t, 110, lap1.AvgSpeed.Float(), 1e-9)
	assert.InDelta(t, 120, lap1.MaxSpeed.Float(), 1e-9)
	assert.InDelta(t, 50, lap1.AvgThrottle.Float(), 1e-9)
	// default fuel heuristic: 0.5 * avgThrottle/100
	assert.InDelta(t, 0.25, lap1.EstFuelUsed.Float(), 1e-9)
	// channels missing in every sample stay undefined
	assert.False(t, lap1.AvgGear.Defined())

	lap2 := byKey["10"][2]
	assert.Equal(t, 1, lap2.SampleCount)
	assert.InDelta(t, 140, lap2.AvgSpeed.Float(), 1e-9)

	// ts 20 falls into lap 3, not lap 2
	lap3 := byKey["10"][3]
	assert.Equal(t, 1, lap3.SampleCount)
	assert.InDelta(t, 90, lap3.AvgSpeed.Float(), 1e-9)

	// empty window: no data is not zero
	empty := byKey["20"][2]
	assert.Equal(t, 0, empty.SampleCount)
	assert.False(t, empty.AvgSpeed.Defined())
	assert.False(t, empty.EstFuelUsed.Defined())
}

func TestAggregator_Aggregate_vehicleFilter(t *testing.T) {
	samples := []model.TelemetrySample{
		sample("10", 2, 100, 40, 10),
		sample("20", 3, 80, 50, 50),
	}
	a := NewAggregator()
	got := a.Aggregate(samples, sampleRecords(), "20", AllLaps())

	assert.Len(t, got, 2)
	for _, agg := range got {
		assert.Equal(t, "20", agg.VehicleID)
	}
}

func TestAggregator_Aggregate_lapRange(t *testing.T) {
	samples := []model.TelemetrySample{
		sample("10", 2, 100, 40, 10),
		sample("10", 12, 140, 100, 0),
		sample("10", 25, 150, 80, 5),
	}
	a := NewAggregator()
	got := a.Aggregate(samples, sampleRecords(), "10", UpTo(2))

	assert.Len(t, got, 2)
	assert.Equal(t, 1, got[0].LapNo)
	assert.Equal(t, 2, got[1].LapNo)
}

func TestAggregator_Aggregate_neverInventsLaps(t *testing.T) {
	records := sampleRecords()
	samples := []model.TelemetrySample{
		sample("10", 2, 100, 40, 10),
		sample("10", 100, 100, 40, 10), // beyond the last lap
		sample("99", 5, 100, 40, 10),   // unknown vehicle
	}
	a := NewAggregator()
	got := a.Aggregate(samples, records, model.AllVehicles, AllLaps())

	known := make(map[string]map[int]bool)
	for _, rec := range records {
		if known[rec.VehicleID] == nil {
			known[rec.VehicleID] = make(map[int]bool)
		}
		known[rec.VehicleID][rec.LapNo] = true
	}
	for _, agg := range got {
		assert.True(t, known[agg.VehicleID][agg.LapNo],
			"aggregate references unknown lap %s/%d", agg.VehicleID, agg.LapNo)
	}
}

func TestAggregator_customEstimates(t *testing.T) {
	samples := []model.TelemetrySample{
		sample("10", 2, 100, 40, 80),
		sample("10", 5, 120, 60, 40),
	}
	a := NewAggregator(
		WithFuelEstimate(func(lapDuration, integral float64) float64 {
			return integral / lapDuration // plain mean throttle
		}),
		WithTyreEstimate(LinearEstimate(1.0)),
	)
	got := a.Aggregate(samples, sampleRecords(), "10", UpTo(1))

	assert.Len(t, got, 1)
	assert.InDelta(t, 50, got[0].EstFuelUsed.Float(), 1e-9)
	// wear 1.0 per lap at full brake, avg brake 60
	assert.InDelta(t, 0.6, got[0].EstTyreWear.Float(), 1e-9)
}

func TestLapRange(t *testing.T) {
	tests := []struct {
		name string
		r    LapRange
		lap  int
		want bool
	}{
		{name: "within", r: UpTo(5), lap: 3, want: true},
		{name: "upper bound inclusive", r: UpTo(5), lap: 5, want: true},
		{name: "above", r: UpTo(5), lap: 6, want: false},
		{name: "below from", r: LapRange{From: 2, To: 5}, lap: 1, want: false},
		{name: "open end", r: AllLaps(), lap: 999, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Contains(tt.lap))
		})
	}
}

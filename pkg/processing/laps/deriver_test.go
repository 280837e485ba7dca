//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package laps

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/raceiq/raceiq-console-go/pkg/model"
)

func events(vehicle string, ts ...float64) []model.LapEvent {
	ret := make([]model.LapEvent, 0, len(ts))
	for i, v := range ts {
		ret = append(ret, model.LapEvent{VehicleID: vehicle, Lap: i + 1, EndTS: v})
	}
	return ret
}

func TestDeriver_Derive(t *testing.T) {
	tests := []struct {
		name      string
		raceStart float64
		events    []model.LapEvent
		want      []model.LapRecord
	}{
		{
			name:   "consecutive end timestamps",
			events: events("10", 10, 20, 35),
			want: []model.LapRecord{
				{VehicleID: "10", LapNo: 1, StartTS: 0, EndTS: 10, LapTime: 10},
				{VehicleID: "10", LapNo: 2, StartTS: 10, EndTS: 20, LapTime: 10},
				{VehicleID: "10", LapNo: 3, StartTS: 20, EndTS: 35, LapTime: 15},
			},
		},
		{
			name:      "first lap anchored at race start",
			raceStart: 5,
			events:    events("10", 10, 20),
			want: []model.LapRecord{
				{VehicleID: "10", LapNo: 1, StartTS: 5, EndTS: 10, LapTime: 5},
				{VehicleID: "10", LapNo: 2, StartTS: 10, EndTS: 20, LapTime: 10},
			},
		},
		{
			name:   "out of order timestamps are sorted first",
			events: events("10", 35, 10, 20),
			want: []model.LapRecord{
				{VehicleID: "10", LapNo: 1, StartTS: 0, EndTS: 10, LapTime: 10},
				{VehicleID: "10", LapNo: 2, StartTS: 10, EndTS: 20, LapTime: 10},
				{VehicleID: "10", LapNo: 3, StartTS: 20, EndTS: 35, LapTime: 15},
			},
		},
		{
			name:   "duplicate timestamps are flagged and kept",
			events: events("10", 10, 20, 20, 30),
			want: []model.LapRecord{
				{VehicleID: "10", LapNo: 1, StartTS: 0, EndTS: 10, LapTime: 10},
				{VehicleID: "10", LapNo: 2, StartTS: 10, EndTS: 20, LapTime: 10},
				{VehicleID: "10", LapNo: 3, StartTS: 20, EndTS: 20, LapTime: 0, Flagged: true},
				{VehicleID: "10", LapNo: 4, StartTS: 20, EndTS: 30, LapTime: 10},
			},
		},
		{
			name:   "single event uses the race start anchor",
			events: events("10", 42),
			want: []model.LapRecord{
				{VehicleID: "10", LapNo: 1, StartTS: 0, EndTS: 42, LapTime: 42},
			},
		},
		{
			name: "events without usable timestamp yield no record",
			events: []model.LapEvent{
				{VehicleID: "10", Lap: 1, EndTS: 10},
				{VehicleID: "10", Lap: 2, EndTS: math.NaN()},
				{VehicleID: "10", Lap: 3, EndTS: 25},
			},
			want: []model.LapRecord{
				{VehicleID: "10", LapNo: 1, StartTS: 0, EndTS: 10, LapTime: 10},
				{VehicleID: "10", LapNo: 2, StartTS: 10, EndTS: 25, LapTime: 15},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDeriver(WithRaceStart(tt.raceStart))
			got := d.Derive(tt.events)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Derive() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeriver_Derive_multiVehicle(t *testing.T) {
	d := NewDeriver()
	got := d.Derive(append(events("20", 12, 24), events("10", 10, 20, 35)...))

	assert.Equal(t, []string{"10", "20"}, Vehicles(got))
	byVehicle := ByVehicle(got)
	assert.Len(t, byVehicle["10"], 3)
	assert.Len(t, byVehicle["20"], 2)
	// lap numbers strictly increasing, lap times never negative
	for _, recs := range byVehicle {
		for i := range recs {
			assert.GreaterOrEqual(t, recs[i].LapTime, 0.0)
			if i > 0 {
				assert.Greater(t, recs[i].LapNo, recs[i-1].LapNo)
			}
		}
	}
}

func TestMaxLap(t *testing.T) {
	d := NewDeriver()
	records := d.Derive(append(events("20", 12, 24), events("10", 10, 20, 35)...))

	assert.Equal(t, 3, MaxLap(records, "10"))
	assert.Equal(t, 2, MaxLap(records, "20"))
	assert.Equal(t, 0, MaxLap(records, "99"))
	assert.Equal(t, 3, MaxLap(records, model.AllVehicles))
}

func TestLapTimes(t *testing.T) {
	d := NewDeriver()
	records := d.Derive(events("10", 10, 20, 35))

	assert.Equal(t, []float64{10, 10, 15}, LapTimes(records))
}

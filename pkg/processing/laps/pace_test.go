//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package laps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raceiq/raceiq-console-go/pkg/model"
)

func paceRecords(times ...float64) []model.LapRecord {
	ret := make([]model.LapRecord, 0, len(times))
	for i, lt := range times {
		ret = append(ret, model.LapRecord{
			VehicleID: "10", LapNo: i + 1, LapTime: lt,
		})
	}
	return ret
}

func TestRollingPace(t *testing.T) {
	got := RollingPace(paceRecords(10, 20, 30, 40, 50), 3)

	assert.Len(t, got, 5)
	// partial leading windows still produce a value
	assert.InDelta(t, 10, got[0].Float(), 1e-9)
	assert.InDelta(t, 15, got[1].Float(), 1e-9)
	assert.InDelta(t, 20, got[2].Float(), 1e-9)
	assert.InDelta(t, 30, got[3].Float(), 1e-9)
	assert.InDelta(t, 40, got[4].Float(), 1e-9)
}

func TestRollingPace_skipsFlaggedLaps(t *testing.T) {
	records := paceRecords(10, 0, 30)
	records[1].Flagged = true

	got := RollingPace(records, 3)

	assert.InDelta(t, 10, got[0].Float(), 1e-9)
	// the flagged lap contributes nothing
	assert.InDelta(t, 10, got[1].Float(), 1e-9)
	assert.InDelta(t, 20, got[2].Float(), 1e-9)
}

func TestRollingPace_allFlagged(t *testing.T) {
	records := paceRecords(0, 0)
	records[0].Flagged = true
	records[1].Flagged = true

	got := RollingPace(records, 2)

	assert.False(t, got[0].Defined())
	assert.False(t, got[1].Defined())
}

func TestRollingPace_ordersByLapNo(t *testing.T) {
	records := []model.LapRecord{
		{VehicleID: "10", LapNo: 2, LapTime: 20},
		{VehicleID: "10", LapNo: 1, LapTime: 10},
	}

	got := RollingPace(records, 1)

	assert.InDelta(t, 10, got[0].Float(), 1e-9)
	assert.InDelta(t, 20, got[1].Float(), 1e-9)
}

func TestEffectiveLap(t *testing.T) {
	records := []model.LapRecord{
		{VehicleID: "10", LapNo: 1}, {VehicleID: "10", LapNo: 2},
		{VehicleID: "10", LapNo: 3},
		{VehicleID: "20", LapNo: 1},
	}

	assert.Equal(t, 3, EffectiveLap(records, "10", 99), "clamped to last lap")
	assert.Equal(t, 2, EffectiveLap(records, "10", 2))
	assert.Equal(t, 1, EffectiveLap(records, "10", 0), "never below lap 1")
	assert.Equal(t, 1, EffectiveLap(records, "20", 5))
	assert.Equal(t, 3, EffectiveLap(records, model.AllVehicles, 17), "overall max for all vehicles")
	assert.Equal(t, 5, EffectiveLap(nil, "10", 5), "no laps leaves the filter untouched")
}

package laps

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/raceiq/raceiq-console-go/pkg/model"
)

type (
	// Deriver converts raw timing events into lap records.
	Deriver struct {
		raceStart float64
	}
	DeriverOption func(*Deriver)
)

// WithRaceStart sets the timestamp the first lap of every vehicle is
// measured against.
func WithRaceStart(ts float64) DeriverOption {
	return func(d *Deriver) {
		d.raceStart = ts
	}
}

func NewDeriver(opts ...DeriverOption) *Deriver {
	ret := &Deriver{raceStart: 0}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Derive builds the lap records for all vehicles in events.
// Events are sorted by timestamp per vehicle, entries without a usable
// timestamp yield no record (nothing is fabricated), duplicates yield
// a zero lap time and are flagged. Lap numbers are assigned from the
// sorted sequence, so they are strictly increasing per vehicle.
// The result is ordered by vehicle id, then lap number.
func (d *Deriver) Derive(events []model.LapEvent) []model.LapRecord {
	byVehicle := lo.GroupBy(events, func(e model.LapEvent) string {
		return e.VehicleID
	})
	vehicles := lo.Keys(byVehicle)
	sort.Strings(vehicles)

	ret := make([]model.LapRecord, 0, len(events))
	for _, vehicle := range vehicles {
		ret = append(ret, d.deriveVehicle(vehicle, byVehicle[vehicle])...)
	}
	return ret
}

func (d *Deriver) deriveVehicle(
	vehicle string,
	events []model.LapEvent,
) []model.LapRecord {
	valid := lo.Filter(events, func(e model.LapEvent, _ int) bool {
		return !math.IsNaN(e.EndTS)
	})
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].EndTS < valid[j].EndTS
	})

	ret := make([]model.LapRecord, 0, len(valid))
	prevEnd := d.raceStart
	for i, e := range valid {
		rec := model.LapRecord{
			VehicleID: vehicle,
			LapNo:     i + 1,
			StartTS:   prevEnd,
			EndTS:     e.EndTS,
			LapTime:   e.EndTS - prevEnd,
		}
		if rec.LapTime <= 0 {
			rec.LapTime = 0
			rec.Flagged = true
		}
		ret = append(ret, rec)
		prevEnd = e.EndTS
	}
	return ret
}

// ByVehicle groups records by vehicle id. Relative order is kept.
func ByVehicle(records []model.LapRecord) map[string][]model.LapRecord {
	return lo.GroupBy(records, func(r model.LapRecord) string {
		return r.VehicleID
	})
}

// Vehicles returns the distinct vehicle ids in ascending order.
func Vehicles(records []model.LapRecord) []string {
	ret := lo.Uniq(lo.Map(records, func(r model.LapRecord, _ int) string {
		return r.VehicleID
	}))
	sort.Strings(ret)
	return ret
}

// MaxLap returns the highest recorded lap of the vehicle, 0 if it has
// no laps. With the AllVehicles sentinel the overall maximum is used.
func MaxLap(records []model.LapRecord, vehicle string) int {
	ret := 0
	for i := range records {
		if vehicle != model.AllVehicles && records[i].VehicleID != vehicle {
			continue
		}
		if records[i].LapNo > ret {
			ret = records[i].LapNo
		}
	}
	return ret
}

// LapTimes extracts the lap time sequence ordered by lap number.
func LapTimes(records []model.LapRecord) []float64 {
	sorted := make([]model.LapRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LapNo < sorted[j].LapNo
	})
	return lo.Map(sorted, func(r model.LapRecord, _ int) float64 {
		return r.LapTime
	})
}

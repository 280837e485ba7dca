package model

import "time"

// AllVehicles is the vehicle filter sentinel selecting every vehicle.
const AllVehicles = ""

// SelectionState is the single source of truth for what the user is
// looking at. All processing takes it as a read-only parameter.
type SelectionState struct {
	RaceID        string `json:"raceId"`
	VehicleFilter string `json:"vehicleFilter"` // AllVehicles selects everything
	LapFilter     int    `json:"lapFilter"`
	LiveEnabled   bool   `json:"liveEnabled"`
}

func (s SelectionState) SingleVehicle() bool {
	return s.VehicleFilter != AllVehicles
}

// Snapshot is the result of one recomputation pass. Live mode
// publishes one snapshot per tick.
type Snapshot struct {
	ID         string               `json:"id"`
	RaceID     string               `json:"raceId"`
	Selection  SelectionState       `json:"selection"`
	KPI        KPISet               `json:"kpi"`
	Aggregates []TelemetryAggregate `json:"aggregates"`
	Standings  []Standing           `json:"standings"`
	TakenAt    time.Time            `json:"takenAt"`
}

package model

// TelemetrySample is one raw telemetry row. Channels missing in the
// source are NaN. Samples are append-only and never mutated.
type TelemetrySample struct {
	VehicleID    string
	TS           float64 // unit: sessionTime
	Speed        float64
	Throttle     float64 // 0-100
	Brake        float64 // 0-100
	LongAccel    float64
	Gear         float64
	EngineRPM    float64
	TyreCompound string
}

// TelemetryAggregate holds the per lap statistics of one vehicle.
// SampleCount 0 means the lap had no telemetry in the selected
// window; all metrics are undefined in that case.
type TelemetryAggregate struct {
	VehicleID    string `json:"vehicleId"`
	LapNo        int    `json:"lapNo"`
	SampleCount  int    `json:"sampleCount"`
	AvgSpeed     Metric `json:"avgSpeed"`
	MaxSpeed     Metric `json:"maxSpeed"`
	AvgThrottle  Metric `json:"avgThrottle"`
	AvgBrake     Metric `json:"avgBrake"`
	AvgLongAccel Metric `json:"avgLongAccel"`
	AvgGear      Metric `json:"avgGear"`
	AvgEngineRPM Metric `json:"avgEngineRpm"`
	EstFuelUsed  Metric `json:"estFuelUsed"` // heuristic, unit: pct of tank
	EstTyreWear  Metric `json:"estTyreWear"` // heuristic, unit: pct of tyre life
}

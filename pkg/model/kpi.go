package model

// KPISet holds the top line race metrics for the selected vehicle at
// the selected lap. Recomputed on every selection change, never
// persisted. Undefined entries stay undefined (JSON null), they are
// never reported as zero.
type KPISet struct {
	SelectedVehicle  string `json:"selectedVehicle"`
	CurrentLap       int    `json:"currentLap"`
	GapToLeader      Metric `json:"gapToLeader"`      // unit: seconds
	FuelRemainingPct Metric `json:"fuelRemainingPct"` // clamped to [0,100]
	TyreLifePct      Metric `json:"tyreLifePct"`      // clamped to [0,100]
	BestLap          Metric `json:"bestLap"`          // unit: seconds
	LastLap          Metric `json:"lastLap"`          // unit: seconds
	AvgPace          Metric `json:"avgPace"`          // unit: seconds
	// PitWindowLap suggests a pit lap once tyre life drops below the
	// planning threshold, undefined before that.
	PitWindowLap Metric `json:"pitWindowLap"`
}

// Standing is one leaderboard row.
type Standing struct {
	Pos          int    `json:"pos"`
	VehicleID    string `json:"vehicleId"`
	LapsDone     int    `json:"lapsDone"`
	EstTotalTime Metric `json:"estTotalTime"` // unit: seconds, gaps filled with rolling pace
	CurrentPace  Metric `json:"currentPace"`  // unit: seconds
	BestLap      Metric `json:"bestLap"`      // unit: seconds
	Consistency  Metric `json:"consistency"`  // scaled MAD of recent laps
}

// PaceDeltaEntry compares the rolling pace of two vehicles at one lap.
type PaceDeltaEntry struct {
	LapNo         int    `json:"lapNo"`
	OwnPace       Metric `json:"ownPace"`
	RivalPace     Metric `json:"rivalPace"`
	Delta         Metric `json:"delta"`         // own - rival, positive: rival is faster
	CumulativeGap Metric `json:"cumulativeGap"` // unit: seconds
}

// PaceDelta is the undercut analysis against one rival.
type PaceDelta struct {
	VehicleID      string           `json:"vehicleId"`
	RivalID        string           `json:"rivalId"`
	Entries        []PaceDeltaEntry `json:"entries"`
	Recommendation string           `json:"recommendation"`
}

// WeatherImpact is the correlation of one weather metric with pace.
type WeatherImpact struct {
	Name        string `json:"name"`
	Correlation Metric `json:"correlation"` // Pearson r, undefined without variance
	Samples     int    `json:"samples"`
}

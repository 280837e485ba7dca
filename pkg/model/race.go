package model

// LapEvent is one raw timing row: a vehicle crossed the line.
type LapEvent struct {
	VehicleID string
	Lap       int     // lap number from the timing sheet, 0 if unknown
	EndTS     float64 // unit: sessionTime
}

// LapRecord is one derived lap. Records are immutable once derived.
type LapRecord struct {
	VehicleID string  `json:"vehicleId"`
	LapNo     int     `json:"lapNo"`
	StartTS   float64 `json:"startTs"` // unit: sessionTime
	EndTS     float64 `json:"endTs"`   // unit: sessionTime
	LapTime   float64 `json:"lapTime"` // unit: seconds
	// Flagged marks suspicious laps (duplicate timestamps). They are
	// kept so lap numbering stays contiguous with the timing sheet.
	Flagged bool `json:"flagged,omitempty"`
}

// WeatherSample is one row of the weather sheet.
type WeatherSample struct {
	TS            float64 `json:"ts"` // unit: sessionTime
	AirTemp       Metric  `json:"airTemp"`
	TrackTemp     Metric  `json:"trackTemp"`
	WindSpeed     Metric  `json:"windSpeed"`
	RainIntensity Metric  `json:"rainIntensity"`
}

// ResultRow is one entry of the provisional results sheet.
type ResultRow struct {
	Pos       int    `json:"pos"`
	VehicleID string `json:"vehicleId"`
	Class     string `json:"class"`
	Laps      int    `json:"laps"`
	TotalTime Metric `json:"totalTime"` // unit: seconds
	Gap       Metric `json:"gap"`       // unit: seconds, leader has 0
}

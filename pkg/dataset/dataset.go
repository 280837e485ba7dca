// Package dataset loads and caches the per race data: derived lap
// records, telemetry (raw samples or preaggregated per lap rows),
// weather and provisional results. Loaded data is immutable; anything
// derived from it is recomputed, never mutated in place.
package dataset

import (
	"errors"
	"time"

	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

var (
	// ErrDataUnavailable marks a missing or malformed source file.
	// Callers surface it (HTTP 503, CLI exit), the process keeps
	// running.
	ErrDataUnavailable = errors.New("race data unavailable")
	// ErrUnknownRace marks a race id absent from the catalog.
	ErrUnknownRace = errors.New("unknown race")
)

// RaceData is one race's source data after ingestion. Exactly one of
// Samples/Preaggregated carries telemetry, depending on the source the
// loader picked; both paths end up as the same aggregate schema.
type RaceData struct {
	Race    config.Race
	Laps    []model.LapRecord
	Samples []model.TelemetrySample
	// Preaggregated holds the per lap aggregates from the store when
	// the race is configured to use it.
	Preaggregated []model.TelemetryAggregate
	Weather       []model.WeatherSample
	Results       []model.ResultRow
	LoadedAt      time.Time
}

// HasPreaggregated reports whether telemetry came from the aggregate
// store instead of raw samples.
func (d *RaceData) HasPreaggregated() bool {
	return d.Preaggregated != nil
}

// Vehicles lists the vehicle ids with at least one lap record.
func (d *RaceData) Vehicles() []string {
	return laps.Vehicles(d.Laps)
}

// MaxLap returns the last recorded lap of the vehicle (AllVehicles:
// overall). Races without lap records fall back to the configured
// fallback, so the lap selector stays bounded.
func (d *RaceData) MaxLap(vehicle string) int {
	if ret := laps.MaxLap(d.Laps, vehicle); ret > 0 {
		return ret
	}
	return d.Race.FallbackMaxLap
}

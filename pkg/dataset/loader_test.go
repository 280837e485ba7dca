//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-console-go/pkg/ingest/store"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/telemetry"
	"github.com/raceiq/raceiq-console-go/testsupport/basedata"
)

func TestLoader_rawTelemetry(t *testing.T) {
	catalog, err := basedata.WriteRaceFiles(t.TempDir())
	require.NoError(t, err)

	got, err := NewLoader(catalog).Load(context.Background(), basedata.RaceID)
	require.NoError(t, err)

	assert.Len(t, got.Laps, 6)
	assert.Equal(t, []string{basedata.VehicleA, basedata.VehicleB}, got.Vehicles())
	assert.Equal(t, 3, got.MaxLap(basedata.VehicleA))
	// 3 laps x 2 vehicles x 3 samples each
	assert.Len(t, got.Samples, 18)
	assert.False(t, got.HasPreaggregated())
	assert.Len(t, got.Weather, 4)
	require.Len(t, got.Results, 2)
	assert.Equal(t, basedata.VehicleA, got.Results[0].VehicleID)
	assert.InDelta(t, 310, got.Results[0].TotalTime.Float(), 1e-9)
}

func TestLoader_unknownRace(t *testing.T) {
	catalog := basedata.Catalog(t.TempDir())

	_, err := NewLoader(catalog).Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownRace)
}

func TestLoader_missingWorkbook(t *testing.T) {
	// catalog points at files that were never written
	catalog := basedata.Catalog(t.TempDir())

	_, err := NewLoader(catalog).Load(context.Background(), basedata.RaceID)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestLoader_preaggregated(t *testing.T) {
	catalog, err := basedata.WriteRaceFiles(t.TempDir())
	require.NoError(t, err)
	race := &catalog.Races[0]
	race.UseAggregated = true
	writeStore(t, race.AggregateStore)

	got, err := NewLoader(catalog).Load(context.Background(), basedata.RaceID)
	require.NoError(t, err)

	assert.True(t, got.HasPreaggregated())
	assert.Empty(t, got.Samples)
	require.Len(t, got.Preaggregated, 6)
	assert.Equal(t, 3, got.Preaggregated[0].SampleCount)
}

func TestLoader_storeMissingFallsBackToRaw(t *testing.T) {
	catalog, err := basedata.WriteRaceFiles(t.TempDir())
	require.NoError(t, err)
	catalog.Races[0].UseAggregated = true
	// no store file written

	got, err := NewLoader(catalog).Load(context.Background(), basedata.RaceID)
	require.NoError(t, err)

	assert.False(t, got.HasPreaggregated())
	assert.Len(t, got.Samples, 18)
}

func TestLoader_forceRaw(t *testing.T) {
	catalog, err := basedata.WriteRaceFiles(t.TempDir())
	require.NoError(t, err)
	race := &catalog.Races[0]
	race.UseAggregated = true
	writeStore(t, race.AggregateStore)

	got, err := NewLoader(catalog, WithForceRaw(true)).
		Load(context.Background(), basedata.RaceID)
	require.NoError(t, err)

	assert.False(t, got.HasPreaggregated())
	assert.Len(t, got.Samples, 18)
}

func TestLoader_noTelemetryConfigured(t *testing.T) {
	catalog, err := basedata.WriteRaceFiles(t.TempDir())
	require.NoError(t, err)
	catalog.Races[0].Telemetry = ""

	got, err := NewLoader(catalog).Load(context.Background(), basedata.RaceID)
	require.NoError(t, err)

	assert.Empty(t, got.Samples)
	assert.False(t, got.HasPreaggregated())
	assert.Len(t, got.Laps, 6)
}

func writeStore(t *testing.T, path string) {
	aggs := telemetry.NewAggregator().Aggregate(
		basedata.TelemetrySamples(), basedata.Records(),
		model.AllVehicles, telemetry.AllLaps())
	st, err := store.Create(path)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.WriteAggregates(context.Background(), aggs))
}

//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package processing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/telemetry"
	"github.com/raceiq/raceiq-console-go/testsupport/basedata"
)

// fixtureSource serves one in-memory race, no files involved.
type fixtureSource struct {
	data map[string]*dataset.RaceData
}

func (f *fixtureSource) Get(_ context.Context, raceID string) (*dataset.RaceData, error) {
	if d, ok := f.data[raceID]; ok {
		return d, nil
	}
	return nil, dataset.ErrUnknownRace
}

func rawSource() *fixtureSource {
	return &fixtureSource{data: map[string]*dataset.RaceData{
		basedata.RaceID: {
			Laps:    basedata.Records(),
			Samples: basedata.TelemetrySamples(),
			Weather: basedata.WeatherSamples(),
		},
	}}
}

func preaggregatedSource() *fixtureSource {
	aggs := telemetry.NewAggregator().Aggregate(
		basedata.TelemetrySamples(), basedata.Records(),
		model.AllVehicles, telemetry.AllLaps())
	return &fixtureSource{data: map[string]*dataset.RaceData{
		basedata.RaceID: {
			Laps:          basedata.Records(),
			Preaggregated: aggs,
			Weather:       basedata.WeatherSamples(),
		},
	}}
}

func TestRecompute(t *testing.T) {
	p := NewProcessor(rawSource())
	sel := model.SelectionState{
		RaceID:        basedata.RaceID,
		VehicleFilter: basedata.VehicleA,
		LapFilter:     2,
	}

	got, err := p.Recompute(context.Background(), sel)
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, basedata.RaceID, got.RaceID)
	assert.Equal(t, sel, got.Selection)
	assert.Equal(t, 2, got.KPI.CurrentLap)
	// vehicle A only, laps 1..2
	require.Len(t, got.Aggregates, 2)
	for _, a := range got.Aggregates {
		assert.Equal(t, basedata.VehicleA, a.VehicleID)
		assert.LessOrEqual(t, a.LapNo, 2)
		assert.Equal(t, 3, a.SampleCount)
	}
	// standings reflect the race as of lap 2
	require.Len(t, got.Standings, 2)
	assert.Equal(t, basedata.VehicleA, got.Standings[0].VehicleID)
	assert.Equal(t, 2, got.Standings[0].LapsDone)
}

func TestRecompute_snapshotsAreIndependent(t *testing.T) {
	p := NewProcessor(rawSource())
	sel := model.SelectionState{RaceID: basedata.RaceID, LapFilter: 3}

	first, err := p.Recompute(context.Background(), sel)
	require.NoError(t, err)
	second, err := p.Recompute(context.Background(), sel)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.KPI, second.KPI)
	assert.Equal(t, first.Standings, second.Standings)
}

func TestRecompute_lapFilterClampsToRecordedLaps(t *testing.T) {
	p := NewProcessor(rawSource())
	sel := model.SelectionState{
		RaceID:        basedata.RaceID,
		VehicleFilter: basedata.VehicleA,
		LapFilter:     99,
	}

	got, err := p.Recompute(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, 3, got.KPI.CurrentLap)
	assert.Len(t, got.Aggregates, 3)
}

func TestRecompute_preaggregatedMatchesRaw(t *testing.T) {
	sel := model.SelectionState{
		RaceID:        basedata.RaceID,
		VehicleFilter: basedata.VehicleB,
		LapFilter:     2,
	}

	raw, err := NewProcessor(rawSource()).Recompute(context.Background(), sel)
	require.NoError(t, err)
	pre, err := NewProcessor(preaggregatedSource()).Recompute(context.Background(), sel)
	require.NoError(t, err)

	assert.Equal(t, raw.Aggregates, pre.Aggregates)
	assert.Equal(t, raw.KPI, pre.KPI)
}

func TestRecompute_unknownRace(t *testing.T) {
	p := NewProcessor(rawSource())

	_, err := p.Recompute(context.Background(),
		model.SelectionState{RaceID: "nope", LapFilter: 1})
	assert.ErrorIs(t, err, dataset.ErrUnknownRace)
}

func TestConsistency_vehicleFilter(t *testing.T) {
	p := NewProcessor(rawSource())

	all, err := p.Consistency(context.Background(),
		model.SelectionState{RaceID: basedata.RaceID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, basedata.VehicleA, all[0].VehicleID)
	assert.Len(t, all[0].Values, 3)

	one, err := p.Consistency(context.Background(), model.SelectionState{
		RaceID:        basedata.RaceID,
		VehicleFilter: basedata.VehicleB,
	})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, basedata.VehicleB, one[0].VehicleID)
}

func TestPaceDelta(t *testing.T) {
	p := NewProcessor(rawSource())

	got, err := p.PaceDelta(context.Background(),
		basedata.RaceID, basedata.VehicleA, basedata.VehicleB)
	require.NoError(t, err)

	assert.Equal(t, basedata.VehicleA, got.VehicleID)
	assert.Equal(t, basedata.VehicleB, got.RivalID)
	require.Len(t, got.Entries, 3)
	// vehicle A laps 100/100/110, B 105/110/115: A is faster throughout
	assert.Negative(t, got.Entries[2].Delta.Float())
	assert.Equal(t, "Stay out", got.Recommendation)
}

func TestWeatherImpacts(t *testing.T) {
	p := NewProcessor(rawSource())

	got, err := p.WeatherImpacts(context.Background(),
		basedata.RaceID, basedata.VehicleA)
	require.NoError(t, err)

	require.Len(t, got, 4)
	names := make([]string, 0, len(got))
	for _, impact := range got {
		names = append(names, impact.Name)
	}
	assert.Contains(t, names, "trackTemp")
}

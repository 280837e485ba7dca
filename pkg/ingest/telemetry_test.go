//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package ingest

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/testsupport/basedata"
)

func TestDecodeTelemetry(t *testing.T) {
	csvData := `vehicle_id,timestamp,speed,aps,pbrake_f,tyre_compound
10,10.5,180,95,0,soft
,11.0,181,95,0,soft
10,garbage,182,95,0,soft
10,12.5,,96,0,soft
20,13.0,175,90,5,hard
`
	samples, err := DecodeTelemetry(strings.NewReader(csvData), config.DefaultCatalog().Columns)
	require.NoError(t, err)

	// rows without a vehicle or a usable timestamp are dropped
	require.Len(t, samples, 3)

	assert.Equal(t, "10", samples[0].VehicleID)
	assert.InDelta(t, 10.5, samples[0].TS, 1e-9)
	assert.InDelta(t, 180, samples[0].Speed, 1e-9)
	assert.InDelta(t, 95, samples[0].Throttle, 1e-9)
	assert.InDelta(t, 0, samples[0].Brake, 1e-9)
	assert.Equal(t, "soft", samples[0].TyreCompound)
	// channels absent from the capture stay NaN, never zero
	assert.True(t, math.IsNaN(samples[0].Gear))
	assert.True(t, math.IsNaN(samples[0].EngineRPM))

	// empty cell in a present column is also NaN
	assert.True(t, math.IsNaN(samples[1].Speed))
	assert.InDelta(t, 96, samples[1].Throttle, 1e-9)

	assert.Equal(t, "20", samples[2].VehicleID)
	assert.Equal(t, "hard", samples[2].TyreCompound)
}

func TestDecodeTelemetry_metaTimeFallback(t *testing.T) {
	csvData := `vehicle_id,meta_time,speed
10,100,150
10,101,151
`
	samples, err := DecodeTelemetry(strings.NewReader(csvData), config.DefaultCatalog().Columns)
	require.NoError(t, err)

	require.Len(t, samples, 2)
	assert.InDelta(t, 100, samples[0].TS, 1e-9)
	assert.InDelta(t, 101, samples[1].TS, 1e-9)
}

func TestDecodeTelemetry_missingVehicleColumn(t *testing.T) {
	csvData := `timestamp,speed
10.5,180
`
	_, err := DecodeTelemetry(strings.NewReader(csvData), config.DefaultCatalog().Columns)
	assert.Error(t, err)
}

func TestDecodeTelemetry_empty(t *testing.T) {
	samples, err := DecodeTelemetry(strings.NewReader(""), config.DefaultCatalog().Columns)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestReadTelemetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.csv")
	require.NoError(t, basedata.WriteTelemetryCSV(path))

	samples, err := ReadTelemetry(path, config.DefaultCatalog().Columns)
	require.NoError(t, err)

	// three samples per lap, three laps, two vehicles
	require.Len(t, samples, 18)
	assert.Equal(t, basedata.VehicleA, samples[0].VehicleID)
	assert.InDelta(t, 80, samples[0].Throttle, 1e-9)
	assert.InDelta(t, 20, samples[0].Brake, 1e-9)
	assert.InDelta(t, 6500, samples[0].EngineRPM, 1e-9)
}

func TestReadTelemetry_missingFile(t *testing.T) {
	_, err := ReadTelemetry(filepath.Join(t.TempDir(), "nope.csv"), config.DefaultCatalog().Columns)
	assert.Error(t, err)
}

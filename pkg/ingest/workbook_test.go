//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package ingest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/testsupport/basedata"
)

func openTestWorkbook(t *testing.T) *Workbook {
	path := filepath.Join(t.TempDir(), "workbook.xlsx")
	require.NoError(t, basedata.WriteWorkbook(path))
	w, err := OpenWorkbook(path, config.DefaultCatalog().Columns)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

// writeSheets builds a workbook from literal rows, first row being the
// header.
func writeSheets(t *testing.T, path string, sheets map[string][][]any) {
	f := excelize.NewFile()
	defer f.Close()
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))
	require.NoError(t, f.SaveAs(path))
}

func TestWorkbook_LapEvents(t *testing.T) {
	w := openTestWorkbook(t)

	events, err := w.LapEvents(config.Sheets{LapEnd: "lap_end", LapTime: "lap_time"})
	require.NoError(t, err)

	require.Len(t, events, 6)
	// sorted by vehicle, then lap
	assert.Equal(t, basedata.VehicleA, events[0].VehicleID)
	assert.Equal(t, 1, events[0].Lap)
	assert.InDelta(t, 100, events[0].EndTS, 1e-9)
	assert.Equal(t, basedata.VehicleB, events[5].VehicleID)
	assert.Equal(t, 3, events[5].Lap)
	assert.InDelta(t, 330, events[5].EndTS, 1e-9)
}

func TestWorkbook_LapEvents_lapTimeWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wb.xlsx")
	writeSheets(t, path, map[string][][]any{
		"lap_end": {
			{"vehicle_id", "lap", "meta_time"},
			{"10", 1, 100.0},
			{"10", 2, 200.0},
		},
		"lap_time": {
			{"vehicle_id", "lap", "timestamp"},
			{"10", 1, 99.0}, // disagrees with lap_end, wins
			{"10", 2, ""},   // unusable, lap_end value stays
			{"10", 3, 310.0},
		},
	})
	w, err := OpenWorkbook(path, config.DefaultCatalog().Columns)
	require.NoError(t, err)
	defer w.Close()

	events, err := w.LapEvents(config.Sheets{LapEnd: "lap_end", LapTime: "lap_time"})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.InDelta(t, 99, events[0].EndTS, 1e-9)
	assert.InDelta(t, 200, events[1].EndTS, 1e-9)
	assert.InDelta(t, 310, events[2].EndTS, 1e-9)
}

func TestWorkbook_LapEvents_lapEndOnly(t *testing.T) {
	w := openTestWorkbook(t)

	// a configured but absent lap-time sheet is not an error
	events, err := w.LapEvents(config.Sheets{LapEnd: "lap_end", LapTime: "nope"})
	require.NoError(t, err)
	assert.Len(t, events, 6)
}

func TestWorkbook_LapEvents_missingTimingSheet(t *testing.T) {
	w := openTestWorkbook(t)

	_, err := w.LapEvents(config.Sheets{LapEnd: "nope"})
	assert.ErrorIs(t, err, ErrNoSheet)
}

func TestWorkbook_Weather(t *testing.T) {
	w := openTestWorkbook(t)

	samples, err := w.Weather("weather")
	require.NoError(t, err)

	require.Len(t, samples, 4)
	for i, s := range samples {
		assert.InDelta(t, float64(i*100), s.TS, 1e-9)
		assert.InDelta(t, 20+float64(i), s.AirTemp.Float(), 1e-9)
		assert.InDelta(t, 28+2*float64(i), s.TrackTemp.Float(), 1e-9)
		assert.InDelta(t, 3, s.WindSpeed.Float(), 1e-9)
		assert.InDelta(t, 0, s.RainIntensity.Float(), 1e-9)
	}
}

func TestWorkbook_Weather_missingColumnsStayUndefined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wb.xlsx")
	writeSheets(t, path, map[string][][]any{
		"weather": {
			{"time_utc", "track_temp"},
			{0.0, 30.0},
			{100.0, ""},
		},
	})
	w, err := OpenWorkbook(path, config.DefaultCatalog().Columns)
	require.NoError(t, err)
	defer w.Close()

	samples, err := w.Weather("weather")
	require.NoError(t, err)

	require.Len(t, samples, 2)
	assert.InDelta(t, 30, samples[0].TrackTemp.Float(), 1e-9)
	assert.False(t, samples[0].AirTemp.Defined())
	assert.False(t, samples[0].WindSpeed.Defined())
	// an empty cell is no data, not zero
	assert.False(t, samples[1].TrackTemp.Defined())
}

func TestWorkbook_Weather_missingSheet(t *testing.T) {
	w := openTestWorkbook(t)

	_, err := w.Weather("nope")
	assert.ErrorIs(t, err, ErrNoSheet)
}

func TestWorkbook_Results(t *testing.T) {
	w := openTestWorkbook(t)

	rows, err := w.Results("results")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Pos)
	assert.Equal(t, basedata.VehicleA, rows[0].VehicleID)
	assert.Equal(t, "GR", rows[0].Class)
	assert.Equal(t, 3, rows[0].Laps)
	assert.InDelta(t, 310, rows[0].TotalTime.Float(), 1e-9)
	// the leader's empty gap reads as zero, not as missing
	require.True(t, rows[0].Gap.Defined())
	assert.InDelta(t, 0, rows[0].Gap.Float(), 1e-9)

	assert.Equal(t, 2, rows[1].Pos)
	assert.InDelta(t, 330, rows[1].TotalTime.Float(), 1e-9)
	assert.InDelta(t, 20, rows[1].Gap.Float(), 1e-9)
}

func TestWorkbook_Results_lappedGapStaysUndefined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wb.xlsx")
	writeSheets(t, path, map[string][][]any{
		"results": {
			{"position", "vehicle_id", "class", "laps", "total_time", "gap"},
			{1, "10", "GR", 30, "1:02:03.456", ""},
			{2, "20", "GR", 28, "1:03:00.000", "+2 Laps"},
		},
	})
	w, err := OpenWorkbook(path, config.DefaultCatalog().Columns)
	require.NoError(t, err)
	defer w.Close()

	rows, err := w.Results("results")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.InDelta(t, 3723.456, rows[0].TotalTime.Float(), 1e-9)
	assert.False(t, rows[1].Gap.Defined())
}

func TestParseRaceTime(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{in: "45.678", want: 45.678, ok: true},
		{in: "1:02.345", want: 62.345, ok: true},
		{in: "1:02:03.456", want: 3723.456, ok: true},
		{in: " 5:10.000 ", want: 310, ok: true},
		{in: "", ok: false},
		{in: "abc", ok: false},
		{in: "1:2:3:4", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseRaceTime(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseGap(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		defined bool
	}{
		{in: "+12.345", want: 12.345, defined: true},
		{in: "12.345", want: 12.345, defined: true},
		{in: "1:02.345", want: 62.345, defined: true},
		{in: "+2 Laps", defined: false},
		{in: "1 lap", defined: false},
		{in: "-", defined: false},
		{in: "", defined: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseGap(tt.in)
			assert.Equal(t, tt.defined, got.Defined())
			if tt.defined {
				assert.InDelta(t, tt.want, got.Float(), 1e-9)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	got, ok := parseTimestamp("301.5")
	require.True(t, ok)
	assert.InDelta(t, 301.5, got, 1e-9)

	want := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	got, ok = parseTimestamp("2024-05-04T10:00:00Z")
	require.True(t, ok)
	assert.InDelta(t, float64(want.Unix()), got, 1e-9)

	_, ok = parseTimestamp("")
	assert.False(t, ok)
	_, ok = parseTimestamp("garbage")
	assert.False(t, ok)
}

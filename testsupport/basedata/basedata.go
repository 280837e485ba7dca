// Package basedata provides the deterministic two vehicle test race
// used across the dataset, processing and api tests: timing workbook,
// telemetry capture and the catalog tying them together.
package basedata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

const (
	RaceID   = "race1"
	VehicleA = "10"
	VehicleB = "20"
)

// lap end timestamps per vehicle, race start 0. Vehicle 10 runs lap
// times [100,100,110], vehicle 20 [105,110,115].
var lapEnds = map[string][]float64{
	VehicleA: {100, 200, 310},
	VehicleB: {105, 215, 330},
}

// LapEvents returns the timing events of the test race.
func LapEvents() []model.LapEvent {
	ret := make([]model.LapEvent, 0, 6)
	for _, vehicle := range []string{VehicleA, VehicleB} {
		for i, ts := range lapEnds[vehicle] {
			ret = append(ret, model.LapEvent{VehicleID: vehicle, Lap: i + 1, EndTS: ts})
		}
	}
	return ret
}

// Records returns the derived lap records of the test race.
func Records() []model.LapRecord {
	return laps.NewDeriver().Derive(LapEvents())
}

// TelemetrySamples returns three samples per (vehicle, lap), placed at
// 10/50/90 percent of the lap interval.
func TelemetrySamples() []model.TelemetrySample {
	var ret []model.TelemetrySample
	for _, rec := range Records() {
		for i, frac := range []float64{0.1, 0.5, 0.9} {
			ts := rec.StartTS + frac*(rec.EndTS-rec.StartTS)
			ret = append(ret, model.TelemetrySample{
				VehicleID:    rec.VehicleID,
				TS:           ts,
				Speed:        150 + float64(rec.LapNo)*2 + float64(i)*10,
				Throttle:     80,
				Brake:        20,
				LongAccel:    1.2,
				Gear:         4,
				EngineRPM:    6500,
				TyreCompound: "soft",
			})
		}
	}
	return ret
}

// WeatherSamples returns a slowly warming track.
func WeatherSamples() []model.WeatherSample {
	ret := make([]model.WeatherSample, 0, 4)
	for i := 0; i < 4; i++ {
		ret = append(ret, model.WeatherSample{
			TS:            float64(i * 100),
			AirTemp:       model.MetricOf(20 + float64(i)),
			TrackTemp:     model.MetricOf(28 + 2*float64(i)),
			WindSpeed:     model.MetricOf(3),
			RainIntensity: model.MetricOf(0),
		})
	}
	return ret
}

// Catalog returns a catalog with one race whose source files live in
// dir. Columns and heuristics keep the defaults; the workbook sheet
// names are the plain test names used by WriteWorkbook.
func Catalog(dir string) *config.Catalog {
	ret := config.DefaultCatalog()
	ret.Races = []config.Race{
		{
			ID:       RaceID,
			Name:     "Test Race",
			Workbook: filepath.Join(dir, "workbook.xlsx"),
			Sheets: config.Sheets{
				LapEnd:  "lap_end",
				LapTime: "lap_time",
				Weather: "weather",
				Results: "results",
			},
			Telemetry:      filepath.Join(dir, "telemetry.csv"),
			AggregateStore: filepath.Join(dir, "aggregates.db"),
			UseAggregated:  false,
			RaceStart:      0,
			FallbackMaxLap: 3,
		},
	}
	ret.DefaultStartLap = 1
	return ret
}

// WriteRaceFiles writes the workbook and telemetry capture into dir
// and returns the catalog describing them.
func WriteRaceFiles(dir string) (*config.Catalog, error) {
	catalog := Catalog(dir)
	race := &catalog.Races[0]
	if err := WriteWorkbook(race.Workbook); err != nil {
		return nil, err
	}
	if err := WriteTelemetryCSV(race.Telemetry); err != nil {
		return nil, err
	}
	return catalog, nil
}

// WriteWorkbook writes the timing workbook: lap_end and lap_time carry
// the same timestamps (the loader merges them, lap_time wins), plus a
// weather and a results sheet.
//
//nolint:funlen // sheet by sheet
func WriteWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	writeSheet := func(name string, header []any, rows [][]any) error {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return err
			}
		}
		return nil
	}

	timingRows := func() [][]any {
		var ret [][]any
		for _, vehicle := range []string{VehicleA, VehicleB} {
			for i, ts := range lapEnds[vehicle] {
				ret = append(ret, []any{vehicle, i + 1, ts})
			}
		}
		return ret
	}

	if err := writeSheet("lap_end",
		[]any{"vehicle_id", "lap", "meta_time"}, timingRows()); err != nil {
		return err
	}
	if err := writeSheet("lap_time",
		[]any{"vehicle_id", "lap", "timestamp"}, timingRows()); err != nil {
		return err
	}

	weatherRows := make([][]any, 0, 4)
	for i, s := range WeatherSamples() {
		weatherRows = append(weatherRows, []any{
			float64(i * 100),
			s.AirTemp.Float(), s.TrackTemp.Float(),
			s.WindSpeed.Float(), s.RainIntensity.Float(),
		})
	}
	if err := writeSheet("weather",
		[]any{"time_utc", "air_temp", "track_temp", "wind_speed", "rain_intensity"},
		weatherRows); err != nil {
		return err
	}

	if err := writeSheet("results",
		[]any{"position", "vehicle_id", "class", "laps", "total_time", "gap"},
		[][]any{
			{1, VehicleA, "GR", 3, "5:10.000", ""},
			{2, VehicleB, "GR", 3, "5:30.000", "+20.000"},
		}); err != nil {
		return err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// WriteTelemetryCSV writes the raw telemetry capture using the default
// column names.
func WriteTelemetryCSV(path string) error {
	var sb strings.Builder
	sb.WriteString("vehicle_id,timestamp,speed,aps,pbrake_f,tyre_compound,accx_can,gear,nmot\n")
	for _, s := range TelemetrySamples() {
		sb.WriteString(fmt.Sprintf("%s,%g,%g,%g,%g,%s,%g,%g,%g\n",
			s.VehicleID, s.TS, s.Speed, s.Throttle, s.Brake,
			s.TyreCompound, s.LongAccel, s.Gear, s.EngineRPM))
	}
	return os.WriteFile(path, []byte(sb.String()), 0o600)
}

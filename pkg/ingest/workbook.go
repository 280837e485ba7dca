package ingest

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/model"
)

// Workbook wraps one open timing workbook. Sheet names and column
// headers come from the race catalog, not from code.
type Workbook struct {
	f    *excelize.File
	cols config.Columns
	l    *log.Logger
}

func OpenWorkbook(path string, cols config.Columns) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	return &Workbook{
		f:    f,
		cols: cols,
		l:    log.Default().Named("ingest"),
	}, nil
}

func (w *Workbook) Close() error { return w.f.Close() }

// Sheets lists the workbook's sheet names in file order.
func (w *Workbook) Sheets() []string { return w.f.GetSheetList() }

type lapKey struct {
	vehicle string
	lap     int
}

// LapEvents merges the lap-end and lap-time sheets into one event per
// (vehicle, lap). The union of both sheets defines the universe; where
// both carry a usable timestamp the lap-time sheet wins. Keys without
// any usable timestamp still yield an event with a NaN timestamp, so
// the deriver can account for them without fabricating a lap.
func (w *Workbook) LapEvents(sheets config.Sheets) ([]model.LapEvent, error) {
	merged, err := w.lapTimestamps(sheets.LapEnd, w.cols.Timestamp, w.cols.MetaTime)
	if err != nil {
		return nil, err
	}
	if sheets.LapTime != "" {
		timeTS, err := w.lapTimestamps(sheets.LapTime, w.cols.Timestamp)
		switch {
		case errors.Is(err, ErrNoSheet):
			w.l.Debug("no lap-time sheet, timing from lap-end only",
				log.String("sheet", sheets.LapTime))
		case err != nil:
			return nil, err
		default:
			for k, ts := range timeTS {
				if !math.IsNaN(ts) {
					merged[k] = ts
					continue
				}
				if _, ok := merged[k]; !ok {
					merged[k] = ts
				}
			}
		}
	}

	ret := make([]model.LapEvent, 0, len(merged))
	for k, ts := range merged {
		ret = append(ret, model.LapEvent{VehicleID: k.vehicle, Lap: k.lap, EndTS: ts})
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].VehicleID != ret[j].VehicleID {
			return ret[i].VehicleID < ret[j].VehicleID
		}
		return ret[i].Lap < ret[j].Lap
	})
	return ret, nil
}

// lapTimestamps reads one timing sheet into (vehicle, lap) -> end
// timestamp. The first timestamp candidate column present is used;
// duplicate keys keep the last row, matching the timing export
// convention of corrected rows appended at the end.
func (w *Workbook) lapTimestamps(
	sheet string,
	tsCandidates ...string,
) (map[lapKey]float64, error) {
	rows, err := w.rows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[lapKey]float64{}, nil
	}

	hdr := headerIndex(rows[0])
	vcol, ok := pickColumn(hdr, w.cols.VehicleID)
	if !ok {
		return nil, fmt.Errorf("sheet %s: missing column %q", sheet, w.cols.VehicleID)
	}
	lcol, ok := pickColumn(hdr, w.cols.Lap)
	if !ok {
		return nil, fmt.Errorf("sheet %s: missing column %q", sheet, w.cols.Lap)
	}
	tcol, ok := pickColumn(hdr, tsCandidates...)
	if !ok {
		return nil, fmt.Errorf("sheet %s: no timestamp column (tried %s)",
			sheet, strings.Join(tsCandidates, ", "))
	}

	ret := make(map[lapKey]float64)
	for _, row := range rows[1:] {
		vehicle := cell(row, vcol)
		if vehicle == "" {
			continue
		}
		lap, ok := parseInt(cell(row, lcol))
		if !ok {
			continue
		}
		ts, ok := parseTimestamp(cell(row, tcol))
		if !ok {
			ts = math.NaN()
		}
		ret[lapKey{vehicle, lap}] = ts
	}
	return ret, nil
}

// Weather reads the weather sheet. Columns are matched by header
// fragments since the exports vary; a missing metric stays undefined.
// Without a usable timestamp column the row index is used, which is
// all the lap alignment needs.
func (w *Workbook) Weather(sheet string) ([]model.WeatherSample, error) {
	rows, err := w.rows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	hdr := headerIndex(header)
	tcol, hasTS := pickColumn(hdr, w.cols.Timestamp, w.cols.MetaTime, "time_utc")
	trackCol := containsColumn(header, "track", "temp")
	airCol := airTempColumn(header, trackCol)
	windCol := containsColumn(header, "wind")
	rainCol := containsColumn(header, "rain")

	ret := make([]model.WeatherSample, 0, len(rows)-1)
	for i, row := range rows[1:] {
		s := model.WeatherSample{
			TS:            float64(i),
			AirTemp:       model.MetricOf(numCell(row, airCol)),
			TrackTemp:     model.MetricOf(numCell(row, trackCol)),
			WindSpeed:     model.MetricOf(numCell(row, windCol)),
			RainIntensity: model.MetricOf(numCell(row, rainCol)),
		}
		if hasTS {
			if ts, ok := parseTimestamp(cell(row, tcol)); ok {
				s.TS = ts
			}
		}
		ret = append(ret, s)
	}
	return ret, nil
}

// airTempColumn prefers a header naming air explicitly, otherwise the
// first temperature column that is not the track one.
func airTempColumn(header []string, trackCol int) int {
	if col := containsColumn(header, "air", "temp"); col >= 0 {
		return col
	}
	for i, h := range header {
		if i == trackCol {
			continue
		}
		if strings.Contains(strings.ToLower(h), "temp") {
			return i
		}
	}
	return -1
}

// Results reads the provisional results sheet. Headers are matched by
// fragment; total times and gaps arrive as strings like "1:02:03.456"
// or "+12.345" and are parsed exactly.
func (w *Workbook) Results(sheet string) ([]model.ResultRow, error) {
	rows, err := w.rows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	hdr := headerIndex(header)
	posCol := containsColumn(header, "pos")
	vcol, ok := pickColumn(hdr, w.cols.VehicleID)
	if !ok {
		vcol = containsColumn(header, "vehicle")
	}
	classCol := containsColumn(header, "class")
	lapsCol := containsColumn(header, "lap")
	totalCol := containsColumn(header, "total")
	if totalCol < 0 {
		totalCol = containsColumn(header, "time")
	}
	gapCol := containsColumn(header, "gap")
	if gapCol < 0 {
		gapCol = containsColumn(header, "diff")
	}

	ret := make([]model.ResultRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		r := model.ResultRow{
			Pos:       i + 1,
			VehicleID: cell(row, vcol),
			Class:     cell(row, classCol),
			TotalTime: model.UndefinedMetric(),
			Gap:       parseGap(cell(row, gapCol)),
		}
		if r.VehicleID == "" {
			continue
		}
		if pos, ok := parseInt(cell(row, posCol)); ok {
			r.Pos = pos
		}
		if laps, ok := parseInt(cell(row, lapsCol)); ok {
			r.Laps = laps
		}
		if total, ok := parseRaceTime(cell(row, totalCol)); ok {
			r.TotalTime = model.MetricOf(total)
		}
		if r.Pos == 1 && !r.Gap.Defined() {
			r.Gap = model.MetricOf(0)
		}
		ret = append(ret, r)
	}
	return ret, nil
}

func (w *Workbook) rows(sheet string) ([][]string, error) {
	if sheet == "" {
		return nil, fmt.Errorf("%w: no sheet configured", ErrNoSheet)
	}
	idx, err := w.f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSheet, sheet)
	}
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// parseRaceTime converts "1:23:45.678", "23:45.678" or plain seconds
// into seconds. decimal keeps the fraction exact until the final
// conversion, so "45.678" never turns into 45.677999.
func parseRaceTime(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	total := decimal.Zero
	for _, p := range parts {
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return 0, false
		}
		total = total.Mul(decimal.NewFromInt(60)).Add(d)
	}
	f, _ := total.Float64()
	return f, true
}

// parseGap handles "+12.345", "1:02.345" and "+2 Laps". Gaps measured
// in laps have no seconds value and stay undefined.
func parseGap(s string) model.Metric {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	if s == "" || s == "-" {
		return model.UndefinedMetric()
	}
	if strings.Contains(strings.ToLower(s), "lap") {
		return model.UndefinedMetric()
	}
	if v, ok := parseRaceTime(s); ok {
		return model.MetricOf(v)
	}
	return model.UndefinedMetric()
}

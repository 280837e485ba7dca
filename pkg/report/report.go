// Package report renders the derived race data as a self contained
// HTML page: lap times per vehicle plus the rolling consistency
// series. The report command writes it to a file, the debug chart
// route serves it directly.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

// Render writes the chart page for one race. window is the trailing
// lap count feeding the consistency series.
func Render(w io.Writer, data *dataset.RaceData, window int) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("RaceIQ %s", data.Race.Name)
	page.AddCharts(
		lapTrend(data),
		consistencyTrend(data, window),
	)
	return page.Render(w)
}

func lapTrend(data *dataset.RaceData) *charts.Line {
	byVehicle := laps.ByVehicle(data.Laps)
	maxLap := data.MaxLap(model.AllVehicles)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Lap times",
			Subtitle: fmt.Sprintf("race=%s vehicles=%d", data.Race.ID, len(byVehicle)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "lap"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)
	line.SetXAxis(lapAxis(maxLap))
	for _, vehicle := range data.Vehicles() {
		line.AddSeries(vehicle, lapTimeSeries(byVehicle[vehicle], maxLap),
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}
	return line
}

func consistencyTrend(data *dataset.RaceData, window int) *charts.Line {
	byVehicle := laps.ByVehicle(data.Laps)
	maxLap := data.MaxLap(model.AllVehicles)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Consistency",
			Subtitle: fmt.Sprintf("scaled MAD over the trailing %d laps, lower is steadier", window),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "lap"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)
	line.SetXAxis(lapAxis(maxLap))
	for _, vehicle := range data.Vehicles() {
		values := laps.RollingConsistency(laps.LapTimes(byVehicle[vehicle]), window)
		line.AddSeries(vehicle, metricSeries(values, maxLap))
	}
	return line
}

func lapAxis(maxLap int) []int {
	ret := make([]int, maxLap)
	for i := range ret {
		ret[i] = i + 1
	}
	return ret
}

// lapTimeSeries places each lap time at its lap number. Laps a vehicle
// never completed and flagged laps stay nil, which echarts renders as
// gaps instead of zero second laps.
func lapTimeSeries(records []model.LapRecord, maxLap int) []opts.LineData {
	ret := make([]opts.LineData, maxLap)
	for i := range ret {
		ret[i] = opts.LineData{Value: nil}
	}
	for i := range records {
		r := &records[i]
		if r.Flagged || r.LapNo < 1 || r.LapNo > maxLap {
			continue
		}
		ret[r.LapNo-1] = opts.LineData{Value: r.LapTime}
	}
	return ret
}

func metricSeries(values []model.Metric, maxLap int) []opts.LineData {
	ret := make([]opts.LineData, maxLap)
	for i := range ret {
		ret[i] = opts.LineData{Value: nil}
	}
	for i, v := range values {
		if i >= maxLap || !v.Defined() {
			continue
		}
		ret[i] = opts.LineData{Value: v.Float()}
	}
	return ret
}

// Package weather correlates track weather with one vehicle's pace.
// Weather samples rarely line up 1:1 with laps, so the sample sequence
// is stretched or compressed onto the lap axis by linear index mapping
// before correlating.
package weather

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

// metric names as they appear in WeatherImpact.Name
const (
	AirTemp       = "airTemp"
	TrackTemp     = "trackTemp"
	WindSpeed     = "windSpeed"
	RainIntensity = "rainIntensity"
)

type picker struct {
	name string
	pick func(*model.WeatherSample) model.Metric
}

var metrics = []picker{
	{AirTemp, func(s *model.WeatherSample) model.Metric { return s.AirTemp }},
	{TrackTemp, func(s *model.WeatherSample) model.Metric { return s.TrackTemp }},
	{WindSpeed, func(s *model.WeatherSample) model.Metric { return s.WindSpeed }},
	{RainIntensity, func(s *model.WeatherSample) model.Metric { return s.RainIntensity }},
}

// Impacts computes the Pearson correlation of every weather metric
// against the rolling pace of one vehicle's lap records. The i-th lap
// is paired with weather sample floor(i*(m-1)/(n-1)). Pairs where
// either side is undefined are dropped; fewer than two remaining pairs
// or a side without variance yields an undefined correlation, never a
// fabricated zero.
func Impacts(
	samples []model.WeatherSample,
	records []model.LapRecord,
	window int,
) []model.WeatherImpact {
	sorted := make([]model.LapRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LapNo < sorted[j].LapNo
	})
	pace := laps.RollingPace(sorted, window)
	idx := alignment(len(samples), len(sorted))

	ret := make([]model.WeatherImpact, 0, len(metrics))
	for _, m := range metrics {
		ret = append(ret, correlate(m, samples, pace, idx))
	}
	return ret
}

func correlate(
	m picker,
	samples []model.WeatherSample,
	pace []model.Metric,
	idx []int,
) model.WeatherImpact {
	xs := make([]float64, 0, len(idx))
	ys := make([]float64, 0, len(idx))
	for i, wxIdx := range idx {
		v := m.pick(&samples[wxIdx])
		if !v.Defined() || !pace[i].Defined() {
			continue
		}
		xs = append(xs, v.Float())
		ys = append(ys, pace[i].Float())
	}

	ret := model.WeatherImpact{
		Name:        m.name,
		Correlation: model.UndefinedMetric(),
		Samples:     len(xs),
	}
	if len(xs) < 2 {
		return ret
	}
	// zero variance on either side divides by zero inside and comes
	// back NaN, which Metric already treats as undefined
	ret.Correlation = model.MetricOf(stat.Correlation(xs, ys, nil))
	return ret
}

// alignment maps each of n lap indices onto one of m sample indices,
// endpoints pinned, evenly spread in between.
func alignment(m, n int) []int {
	if m == 0 || n == 0 {
		return nil
	}
	ret := make([]int, n)
	if n == 1 {
		ret[0] = 0
		return ret
	}
	for i := 0; i < n; i++ {
		ret[i] = i * (m - 1) / (n - 1)
	}
	return ret
}

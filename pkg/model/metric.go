package model

import (
	"bytes"
	"math"
	"strconv"
)

// Metric is a numeric value that may be undefined. Undefined is
// represented as NaN and serialized as JSON null, so consumers can
// tell "no data" from an actual zero.
type Metric float64

var null = []byte("null")

func MetricOf(v float64) Metric { return Metric(v) }

func UndefinedMetric() Metric { return Metric(math.NaN()) }

func (m Metric) Defined() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (m Metric) Float() float64 { return float64(m) }

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Defined() {
		return null, nil
	}
	return strconv.AppendFloat(nil, float64(m), 'g', -1, 64), nil
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, null) {
		*m = UndefinedMetric()
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = Metric(f)
	return nil
}

// Package ingest reads the race source files: the timing workbook
// (xlsx) and the raw telemetry captures (csv). The pre-aggregated
// store lives in ingest/store.
package ingest

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrNoSheet marks a sheet missing from the workbook. Callers decide
// whether that is fatal (timing) or not (weather, results).
var ErrNoSheet = errors.New("sheet not found")

// timestamp layouts seen in timing exports besides plain numerics
var tsLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04:05",
	"1/2/06 15:04",
}

// parseTimestamp interprets a timing cell. Plain numbers are session
// seconds already; date-time strings become epoch seconds so the
// downstream math stays unit-agnostic.
func parseTimestamp(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.UnixNano()) / float64(time.Second), true
		}
	}
	return math.NaN(), false
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	// timing exports sometimes carry laps as "12.0"
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// headerIndex maps lowercased trimmed headers to their column index.
// The first occurrence wins.
func headerIndex(header []string) map[string]int {
	ret := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key == "" {
			continue
		}
		if _, ok := ret[key]; !ok {
			ret[key] = i
		}
	}
	return ret
}

// pickColumn returns the index of the first candidate present.
func pickColumn(hdr map[string]int, candidates ...string) (int, bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if idx, ok := hdr[strings.ToLower(c)]; ok {
			return idx, true
		}
	}
	return -1, false
}

// containsColumn returns the first column whose header contains all
// the given fragments.
func containsColumn(header []string, fragments ...string) int {
	for i, h := range header {
		low := strings.ToLower(h)
		all := true
		for _, frag := range fragments {
			if !strings.Contains(low, frag) {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func numCell(row []string, col int) float64 {
	s := cell(row, col)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

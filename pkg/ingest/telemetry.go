package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/model"
)

// ReadTelemetry reads a raw telemetry capture from disk.
func ReadTelemetry(path string, cols config.Columns) ([]model.TelemetrySample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry %s: %w", path, err)
	}
	defer f.Close()

	ret, err := DecodeTelemetry(f, cols)
	if err != nil {
		return nil, fmt.Errorf("telemetry %s: %w", path, err)
	}
	return ret, nil
}

// DecodeTelemetry streams one sample per row. The captures run to
// millions of rows, so rows are decoded one at a time instead of
// loading the file whole. Vehicle id and timestamp are mandatory per
// row (rows without them are skipped); missing channels are NaN so
// "absent" never reads as zero.
func DecodeTelemetry(r io.Reader, cols config.Columns) ([]model.TelemetrySample, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	hdr := headerIndex(header)
	vcol, ok := pickColumn(hdr, cols.VehicleID)
	if !ok {
		return nil, fmt.Errorf("missing column %q", cols.VehicleID)
	}
	tcol, ok := pickColumn(hdr, cols.Timestamp, cols.MetaTime)
	if !ok {
		return nil, fmt.Errorf("missing column %q", cols.Timestamp)
	}
	speedCol, _ := pickColumn(hdr, cols.Speed)
	throttleCol, _ := pickColumn(hdr, cols.Throttle)
	brakeCol, _ := pickColumn(hdr, cols.Brake)
	accelCol, _ := pickColumn(hdr, cols.LongAccel)
	gearCol, _ := pickColumn(hdr, cols.Gear)
	rpmCol, _ := pickColumn(hdr, cols.EngineRPM)
	compoundCol, _ := pickColumn(hdr, cols.TyreCompound)

	var ret []model.TelemetrySample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		vehicle := cell(rec, vcol)
		if vehicle == "" {
			continue
		}
		ts, ok := parseTimestamp(cell(rec, tcol))
		if !ok {
			continue
		}
		ret = append(ret, model.TelemetrySample{
			VehicleID:    vehicle,
			TS:           ts,
			Speed:        numCell(rec, speedCol),
			Throttle:     numCell(rec, throttleCol),
			Brake:        numCell(rec, brakeCol),
			LongAccel:    numCell(rec, accelCol),
			Gear:         numCell(rec, gearCol),
			EngineRPM:    numCell(rec, rpmCol),
			TyreCompound: cell(rec, compoundCol),
		})
	}
	return ret, nil
}

// Package processing holds the derivation pipeline. The Processor is
// its entry point: a pure function of (selection, cached race data)
// producing one Snapshot, with no implicit triggers. The API layer and
// the live ticker both call it; neither owns any derived state.
package processing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/kpi"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
	"github.com/raceiq/raceiq-console-go/pkg/processing/standings"
	"github.com/raceiq/raceiq-console-go/pkg/processing/telemetry"
	"github.com/raceiq/raceiq-console-go/pkg/processing/weather"
)

type (
	// DataSource supplies the per race data. dataset.Cache satisfies
	// it; tests plug in fixtures without touching the filesystem.
	DataSource interface {
		Get(ctx context.Context, raceID string) (*dataset.RaceData, error)
	}

	Processor struct {
		data       DataSource
		heuristics config.Heuristics
		aggregator *telemetry.Aggregator
		calculator *kpi.Calculator
		l          *log.Logger
		tracer     trace.Tracer
	}
	ProcessorOption func(*Processor)

	// ConsistencySeries is one vehicle's rolling consistency values,
	// entry i belonging to lap i+1.
	ConsistencySeries struct {
		VehicleID string         `json:"vehicleId"`
		Values    []model.Metric `json:"values"`
	}
)

// WithHeuristics overrides the coefficient set and the rolling windows.
func WithHeuristics(h config.Heuristics) ProcessorOption {
	return func(p *Processor) {
		p.heuristics = h
	}
}

func WithProcessorLogger(l *log.Logger) ProcessorOption {
	return func(p *Processor) {
		p.l = l
	}
}

func NewProcessor(data DataSource, opts ...ProcessorOption) *Processor {
	ret := &Processor{
		data:       data,
		heuristics: config.DefaultCatalog().Heuristics,
		l:          log.Default().Named("processing"),
		tracer:     otel.Tracer("raceiq/processing"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	coeffs := kpi.DefaultCoefficients()
	coeffs.FuelBurnPerLap = ret.heuristics.FuelBurnPerLap
	coeffs.FuelFallbackThrottle = ret.heuristics.FuelFallbackThrottle
	coeffs.TyreWearPerLap = ret.heuristics.TyreWearPerLap
	coeffs.TyreFallbackBrake = ret.heuristics.TyreFallbackBrake
	ret.aggregator = telemetry.NewAggregator(
		telemetry.WithFuelEstimate(telemetry.LinearEstimate(coeffs.FuelBurnPerLap)),
		telemetry.WithTyreEstimate(telemetry.LinearEstimate(coeffs.TyreWearPerLap)),
		telemetry.WithLogger(ret.l.Named("telemetry")),
	)
	ret.calculator = kpi.NewCalculator(kpi.WithCoefficients(coeffs))
	return ret
}

// Recompute derives one Snapshot for the selection: telemetry
// aggregates (restricted to the selected vehicle and the laps up to
// the effective current lap), the KPI set, and the standings as of
// that lap. It reads only cached immutable data and owns no state, so
// concurrent calls are safe.
func (p *Processor) Recompute(
	ctx context.Context,
	sel model.SelectionState,
) (*model.Snapshot, error) {
	ctx, span := p.tracer.Start(ctx, "processing.recompute",
		trace.WithAttributes(
			attribute.String("race", sel.RaceID),
			attribute.String("vehicle", sel.VehicleFilter),
			attribute.Int("lap", sel.LapFilter)))
	defer span.End()
	start := time.Now()

	data, err := p.data.Get(ctx, sel.RaceID)
	if err != nil {
		return nil, err
	}
	effLap := laps.EffectiveLap(data.Laps, sel.VehicleFilter, sel.LapFilter)

	aggs := p.aggregates(data, sel.VehicleFilter, effLap)
	ret := &model.Snapshot{
		ID:         uuid.NewString(),
		RaceID:     sel.RaceID,
		Selection:  sel,
		KPI:        p.calculator.Compute(sel, data.Laps, aggs),
		Aggregates: aggs,
		Standings: standings.Build(
			recordsUpTo(data.Laps, effLap),
			p.heuristics.PaceWindow,
			p.heuristics.ConsistencyWindow),
		TakenAt: time.Now(),
	}

	p.l.Debug("recomputed snapshot",
		log.String("race", sel.RaceID),
		log.String("vehicle", sel.VehicleFilter),
		log.Int("lap", effLap),
		log.Int("aggregates", len(aggs)),
		log.Duration("duration", time.Since(start)))
	return ret, nil
}

// aggregates returns the per lap telemetry rows for the selection.
// Preaggregated races are served by filtering the stored rows, raw
// races by aggregating the samples; both paths yield the same schema.
func (p *Processor) aggregates(
	data *dataset.RaceData,
	vehicle string,
	lap int,
) []model.TelemetryAggregate {
	lapRange := telemetry.UpTo(lap)
	if !data.HasPreaggregated() {
		return p.aggregator.Aggregate(data.Samples, data.Laps, vehicle, lapRange)
	}
	ret := make([]model.TelemetryAggregate, 0, len(data.Preaggregated))
	for i := range data.Preaggregated {
		a := &data.Preaggregated[i]
		if vehicle != model.AllVehicles && a.VehicleID != vehicle {
			continue
		}
		if !lapRange.Contains(a.LapNo) {
			continue
		}
		ret = append(ret, *a)
	}
	return ret
}

// Consistency returns the rolling consistency series per vehicle,
// restricted to the selected vehicle when one is set. Flagged laps
// enter the window as holes, not as zero second laps.
func (p *Processor) Consistency(
	ctx context.Context,
	sel model.SelectionState,
) ([]ConsistencySeries, error) {
	data, err := p.data.Get(ctx, sel.RaceID)
	if err != nil {
		return nil, err
	}
	byVehicle := laps.ByVehicle(data.Laps)

	ret := make([]ConsistencySeries, 0, len(byVehicle))
	for _, vehicle := range data.Vehicles() {
		if sel.SingleVehicle() && vehicle != sel.VehicleFilter {
			continue
		}
		ret = append(ret, ConsistencySeries{
			VehicleID: vehicle,
			Values: laps.RollingConsistency(
				laps.LapTimes(byVehicle[vehicle]),
				p.heuristics.ConsistencyWindow),
		})
	}
	return ret, nil
}

// PaceDelta compares one vehicle against a rival for the undercut
// call. Unknown vehicles yield empty series, not errors; the timing
// data never drops a vehicle and neither does this.
func (p *Processor) PaceDelta(
	ctx context.Context,
	raceID, vehicleID, rivalID string,
) (*model.PaceDelta, error) {
	data, err := p.data.Get(ctx, raceID)
	if err != nil {
		return nil, err
	}
	ret := standings.PaceDelta(data.Laps, vehicleID, rivalID,
		p.heuristics.PaceWindow, p.heuristics.UndercutThreshold)
	return &ret, nil
}

// WeatherImpacts correlates the weather metrics against rolling pace.
// With a vehicle selected only that vehicle's laps feed the pace axis,
// otherwise the whole field's lap sequence does.
func (p *Processor) WeatherImpacts(
	ctx context.Context,
	raceID, vehicleID string,
) ([]model.WeatherImpact, error) {
	data, err := p.data.Get(ctx, raceID)
	if err != nil {
		return nil, err
	}
	records := data.Laps
	if vehicleID != model.AllVehicles {
		records = laps.ByVehicle(records)[vehicleID]
	}
	return weather.Impacts(data.Weather, records, p.heuristics.PaceWindow), nil
}

// recordsUpTo filters to the laps at or before lap, preserving order.
func recordsUpTo(records []model.LapRecord, lap int) []model.LapRecord {
	ret := make([]model.LapRecord, 0, len(records))
	for i := range records {
		if records[i].LapNo <= lap {
			ret = append(ret, records[i])
		}
	}
	return ret
}

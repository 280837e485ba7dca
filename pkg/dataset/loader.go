package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/ingest"
	"github.com/raceiq/raceiq-console-go/pkg/ingest/store"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

type (
	// Loader reads one race's source files and derives the lap
	// records. It holds no per race state, all of that lives in the
	// returned RaceData.
	Loader struct {
		catalog  *config.Catalog
		forceRaw bool
		l        *log.Logger
		tracer   trace.Tracer
	}
	LoaderOption func(*Loader)
)

func WithLogger(l *log.Logger) LoaderOption {
	return func(ld *Loader) {
		ld.l = l
	}
}

// WithForceRaw makes the loader read raw telemetry even when the race
// is configured to use the aggregate store. The preprocess command
// needs the raw samples to build that store in the first place.
func WithForceRaw(force bool) LoaderOption {
	return func(ld *Loader) {
		ld.forceRaw = force
	}
}

func NewLoader(catalog *config.Catalog, opts ...LoaderOption) *Loader {
	ret := &Loader{
		catalog: catalog,
		l:       log.Default().Named("dataset"),
		tracer:  otel.Tracer("raceiq/dataset"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Load reads the race's workbook and telemetry source. The workbook's
// timing sheets are mandatory; weather and results sheets are optional
// extras. Telemetry comes from the aggregate store when the race is
// configured for it and the store file exists, otherwise from the raw
// capture. Unreadable configured sources map to ErrDataUnavailable.
//
//nolint:funlen // sequential load steps
func (ld *Loader) Load(ctx context.Context, raceID string) (*RaceData, error) {
	ctx, span := ld.tracer.Start(ctx, "dataset.load",
		trace.WithAttributes(attribute.String("race", raceID)))
	defer span.End()

	race, ok := ld.catalog.Race(raceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRace, raceID)
	}
	start := time.Now()

	wb, err := ingest.OpenWorkbook(race.Workbook, ld.catalog.Columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer wb.Close()

	events, err := wb.LapEvents(race.Sheets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	deriver := laps.NewDeriver(laps.WithRaceStart(race.RaceStart))
	ret := &RaceData{
		Race:     *race,
		Laps:     deriver.Derive(events),
		LoadedAt: start,
	}

	if ret.Weather, err = wb.Weather(race.Sheets.Weather); err != nil {
		if !errors.Is(err, ingest.ErrNoSheet) {
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}
		ld.l.Debug("race has no weather sheet", log.String("race", raceID))
	}
	if ret.Results, err = wb.Results(race.Sheets.Results); err != nil {
		if !errors.Is(err, ingest.ErrNoSheet) {
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}
		ld.l.Debug("race has no results sheet", log.String("race", raceID))
	}

	if err := ld.loadTelemetry(ctx, race, ret); err != nil {
		return nil, err
	}

	ld.l.Info("race data loaded",
		log.String("race", raceID),
		log.Int("laps", len(ret.Laps)),
		log.Int("samples", len(ret.Samples)),
		log.Int("preaggregated", len(ret.Preaggregated)),
		log.Int("weather", len(ret.Weather)),
		log.Bool("fromStore", ret.HasPreaggregated()),
		log.Duration("duration", time.Since(start)))
	return ret, nil
}

// loadTelemetry fills either Preaggregated or Samples. A race without
// a configured telemetry source yields neither, the lap data alone is
// still usable.
func (ld *Loader) loadTelemetry(
	ctx context.Context,
	race *config.Race,
	ret *RaceData,
) error {
	if !ld.forceRaw && race.UseAggregated && race.AggregateStore != "" {
		if _, err := os.Stat(race.AggregateStore); err == nil {
			return ld.loadPreaggregated(ctx, race, ret)
		}
		ld.l.Warn("aggregate store missing, falling back to raw telemetry",
			log.String("race", race.ID),
			log.String("store", race.AggregateStore))
	}
	if race.Telemetry == "" {
		ld.l.Debug("race has no telemetry source", log.String("race", race.ID))
		return nil
	}
	samples, err := ingest.ReadTelemetry(race.Telemetry, ld.catalog.Columns)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	ret.Samples = samples
	return nil
}

func (ld *Loader) loadPreaggregated(
	ctx context.Context,
	race *config.Race,
	ret *RaceData,
) error {
	st, err := store.Open(race.AggregateStore)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer st.Close()
	aggs, err := st.ReadAggregates(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if aggs == nil {
		aggs = []model.TelemetryAggregate{}
	}
	ret.Preaggregated = aggs
	return nil
}

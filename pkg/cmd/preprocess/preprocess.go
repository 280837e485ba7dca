// Package preprocess implements the one-shot telemetry aggregation
// command. It crunches a race's raw telemetry capture into the per lap
// sqlite store so later sessions skip the CSV cost.
package preprocess

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/ingest/store"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/telemetry"
)

var (
	output string
	force  bool
)

func NewPreprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess raceId",
		Short: "aggregates raw telemetry into the per lap store",
		Long: `preprocess reads the race's timing workbook and telemetry capture,
computes the per vehicle and lap aggregates and writes them to the
sqlite aggregate store. A race configured with useAggregated serves
dashboards from that store without touching the raw capture again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreprocess(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"target store file (default: the race's aggregateStore entry)")
	cmd.Flags().BoolVar(&force, "force", false,
		"overwrite an existing store file")
	return cmd
}

func runPreprocess(ctx context.Context, raceID string) error {
	logger := log.DevLogger(
		os.Stderr,
		parseLogLevel(config.LogLevel, log.InfoLevel),
		log.WithCaller(true),
		log.AddCallerSkip(1))
	log.ResetDefault(logger)

	catalog, err := config.LoadCatalog(config.CatalogPath)
	if err != nil {
		return err
	}
	race, ok := catalog.Race(raceID)
	if !ok {
		return fmt.Errorf("unknown race %q", raceID)
	}
	target := output
	if target == "" {
		target = race.AggregateStore
	}
	if target == "" {
		return fmt.Errorf("race %q has no aggregate store configured, use --output", raceID)
	}
	if _, statErr := os.Stat(target); statErr == nil && !force {
		return fmt.Errorf("%s exists, use --force to overwrite", target)
	}

	log.Info("Aggregating telemetry",
		log.String("race", raceID),
		log.String("telemetry", race.Telemetry),
		log.String("output", target))

	loader := dataset.NewLoader(catalog, dataset.WithForceRaw(true))
	data, err := loader.Load(ctx, raceID)
	if err != nil {
		return err
	}
	if len(data.Samples) == 0 {
		log.Warn("the race has no telemetry samples, writing an empty store")
	}

	agg := telemetry.NewAggregator(
		telemetry.WithFuelEstimate(telemetry.LinearEstimate(catalog.Heuristics.FuelBurnPerLap)),
		telemetry.WithTyreEstimate(telemetry.LinearEstimate(catalog.Heuristics.TyreWearPerLap)))
	rows := agg.Aggregate(data.Samples, data.Laps, model.AllVehicles, telemetry.AllLaps())

	st, err := store.Create(target)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.WriteAggregates(ctx, rows); err != nil {
		return err
	}

	log.Info("Store written",
		log.String("path", target),
		log.Int("laps", len(data.Laps)),
		log.Int("samples", len(data.Samples)),
		log.Int("aggregates", len(rows)))
	return nil
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

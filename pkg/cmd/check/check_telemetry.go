package check

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

func NewCheckTelemetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telemetry raceId",
		Short: "validates the raw telemetry of a race",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkTelemetry(cmd.Context(), args[0])
		},
	}
	return cmd
}

// checkTelemetry loads the raw capture even when the race is
// configured with a preaggregated store and verifies the channel
// ranges. Samples outside the vehicle's lap window are counted but
// not treated as violations: captures regularly start before the
// first line crossing.
//
//nolint:funlen,gocognit // sequential checks read better in one piece
func checkTelemetry(ctx context.Context, raceID string) error {
	logger := newCheckLogger()

	catalog, err := config.LoadCatalog(config.CatalogPath)
	if err != nil {
		return err
	}
	loader := dataset.NewLoader(catalog, dataset.WithForceRaw(true))
	data, err := loader.Load(ctx, raceID)
	if err != nil {
		return err
	}

	byVehicle := laps.ByVehicle(data.Laps)
	violations := 0
	outside := 0
	perVehicle := map[string]int{}
	for i := range data.Samples {
		s := &data.Samples[i]
		perVehicle[s.VehicleID]++
		if !math.IsNaN(s.Throttle) && (s.Throttle < 0 || s.Throttle > 100) {
			logger.Debug("throttle out of range",
				log.String("vehicle", s.VehicleID),
				log.Float64("ts", s.TS),
				log.Float64("throttle", s.Throttle))
			violations++
		}
		if !math.IsNaN(s.Brake) && s.Brake < 0 {
			logger.Debug("brake out of range",
				log.String("vehicle", s.VehicleID),
				log.Float64("ts", s.TS),
				log.Float64("brake", s.Brake))
			violations++
		}
		if !math.IsNaN(s.Speed) && s.Speed < 0 {
			logger.Debug("negative speed",
				log.String("vehicle", s.VehicleID),
				log.Float64("ts", s.TS),
				log.Float64("speed", s.Speed))
			violations++
		}
		recs := byVehicle[s.VehicleID]
		if len(recs) == 0 ||
			s.TS < recs[0].StartTS || s.TS > recs[len(recs)-1].EndTS {
			outside++
		}
	}

	for vehicle, count := range perVehicle {
		logger.Debug("vehicle samples",
			log.String("vehicle", vehicle),
			log.Int("count", count))
	}
	logger.Info("telemetry checked",
		log.String("race", raceID),
		log.Int("samples", len(data.Samples)),
		log.Int("vehicles", len(perVehicle)),
		log.Int("outsideLaps", outside),
		log.Int("violations", violations))
	if violations > 0 {
		return fmt.Errorf("%d telemetry range violations", violations)
	}
	return nil
}

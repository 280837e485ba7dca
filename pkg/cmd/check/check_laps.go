package check

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing/laps"
)

func NewCheckLapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "laps raceId",
		Short: "validates the derived laps of a race",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkLaps(cmd.Context(), args[0])
		},
	}
	return cmd
}

// checkLaps verifies what the derivation promises: per vehicle the lap
// numbers increase strictly, laps do not overlap, and every unflagged
// lap has a positive time.
//
//nolint:funlen // sequential checks read better in one piece
func checkLaps(ctx context.Context, raceID string) error {
	logger := newCheckLogger()

	catalog, err := config.LoadCatalog(config.CatalogPath)
	if err != nil {
		return err
	}
	data, err := dataset.NewLoader(catalog).Load(ctx, raceID)
	if err != nil {
		return err
	}

	violations := 0
	flagged := 0
	byVehicle := laps.ByVehicle(data.Laps)
	for _, vehicle := range data.Vehicles() {
		recs := byVehicle[vehicle]
		for i := range recs {
			r := &recs[i]
			if r.Flagged {
				flagged++
			}
			if !r.Flagged && r.LapTime <= 0 {
				logger.Error("lap time not positive",
					log.String("vehicle", vehicle),
					log.Int("lap", r.LapNo),
					log.Float64("lapTime", r.LapTime))
				violations++
			}
			if r.EndTS < r.StartTS {
				logger.Error("lap ends before it starts",
					log.String("vehicle", vehicle),
					log.Int("lap", r.LapNo),
					log.Float64("startTs", r.StartTS),
					log.Float64("endTs", r.EndTS))
				violations++
			}
			if i == 0 {
				continue
			}
			prev := &recs[i-1]
			if r.LapNo <= prev.LapNo {
				logger.Error("lap numbers not increasing",
					log.String("vehicle", vehicle),
					log.Int("lap", r.LapNo),
					log.Int("previous", prev.LapNo))
				violations++
			}
			if r.StartTS < prev.EndTS {
				logger.Error("laps overlap",
					log.String("vehicle", vehicle),
					log.Int("lap", r.LapNo),
					log.Float64("startTs", r.StartTS),
					log.Float64("previousEndTs", prev.EndTS))
				violations++
			}
		}
		logger.Debug("vehicle checked",
			log.String("vehicle", vehicle),
			log.Int("laps", len(recs)),
			log.Int("maxLap", laps.MaxLap(recs, model.AllVehicles)))
	}

	logger.Info("laps checked",
		log.String("race", raceID),
		log.Int("vehicles", len(byVehicle)),
		log.Int("records", len(data.Laps)),
		log.Int("flagged", flagged),
		log.Int("violations", violations))
	if violations > 0 {
		return fmt.Errorf("%d lap invariant violations", violations)
	}
	return nil
}

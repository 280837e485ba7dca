package check

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/ingest/store"
)

func NewCheckStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store path",
		Short: "validates an aggregate store file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkStore(cmd.Context(), args[0])
		},
	}
	return cmd
}

// checkStore opens the store (which already gates on the schema
// version) and verifies the row ordering plus the rule that a lap
// without samples carries no defined metrics.
func checkStore(ctx context.Context, path string) error {
	logger := newCheckLogger()

	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	version, err := st.Version(ctx)
	if err != nil {
		return err
	}
	rows, err := st.ReadAggregates(ctx)
	if err != nil {
		return err
	}

	violations := 0
	vehicles := map[string]struct{}{}
	for i := range rows {
		r := &rows[i]
		vehicles[r.VehicleID] = struct{}{}
		if r.SampleCount < 0 {
			logger.Error("negative sample count",
				log.String("vehicle", r.VehicleID),
				log.Int("lap", r.LapNo))
			violations++
		}
		if r.SampleCount == 0 && (r.AvgSpeed.Defined() || r.MaxSpeed.Defined()) {
			logger.Error("lap without samples has defined metrics",
				log.String("vehicle", r.VehicleID),
				log.Int("lap", r.LapNo))
			violations++
		}
		if i == 0 {
			continue
		}
		prev := &rows[i-1]
		if r.VehicleID < prev.VehicleID ||
			(r.VehicleID == prev.VehicleID && r.LapNo <= prev.LapNo) {
			logger.Error("rows out of order",
				log.String("vehicle", r.VehicleID),
				log.Int("lap", r.LapNo),
				log.String("previousVehicle", prev.VehicleID),
				log.Int("previousLap", prev.LapNo))
			violations++
		}
	}

	logger.Info("store checked",
		log.String("path", path),
		log.String("schema", version),
		log.Int("rows", len(rows)),
		log.Int("vehicles", len(vehicles)),
		log.Int("violations", violations))
	if violations > 0 {
		return fmt.Errorf("%d store invariant violations", violations)
	}
	return nil
}

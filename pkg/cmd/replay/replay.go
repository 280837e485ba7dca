// Package replay implements the terminal live simulation: it ticks
// through a race lap by lap like the serve command's live mode and
// prints the derived standings as they evolve. Useful to eyeball a
// dataset without a dashboard, or to feed NATS subscribers from a
// recording.
package replay

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/model"
	"github.com/raceiq/raceiq-console-go/pkg/processing"
	"github.com/raceiq/raceiq-console-go/pkg/session"
	"github.com/raceiq/raceiq-console-go/pkg/session/publish"
)

var (
	interval string
	vehicle  string
	startLap int
)

func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay raceId",
		Short: "replays a race as a live session in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVar(&interval, "interval", "1s",
		"time between laps (use 100ms to rush through a race)")
	cmd.Flags().StringVar(&vehicle, "vehicle", "",
		"restrict the replay to one vehicle")
	cmd.Flags().IntVar(&startLap, "start-lap", 0,
		"lap to start from (0: the catalog default)")
	cmd.Flags().StringVar(&config.NatsURL, "nats-url", "",
		"publish the snapshots to NATS as well")
	return cmd
}

//nolint:funlen,cyclop // wiring plus the render loop, same as serve
func runReplay(mainCtx context.Context, raceID string) error {
	logger := log.DevLogger(
		os.Stderr,
		parseLogLevel(config.LogLevel, log.WarnLevel),
		log.WithCaller(true),
		log.AddCallerSkip(1))
	log.ResetDefault(logger)

	ctx, stop := signal.NotifyContext(mainCtx, os.Interrupt)
	defer stop()

	catalog, err := config.LoadCatalog(config.CatalogPath)
	if err != nil {
		return err
	}
	cache := dataset.NewCache(dataset.NewLoader(catalog))
	proc := processing.NewProcessor(cache,
		processing.WithHeuristics(catalog.Heuristics))

	managerOpts := []session.ManagerOption{session.WithInitialRace(raceID)}
	if startLap > 0 {
		managerOpts = append(managerOpts, session.WithStartLap(startLap))
	} else {
		managerOpts = append(managerOpts,
			session.WithStartLap(catalog.DefaultStartLap))
	}
	manager := session.NewManager(cache.MaxLap, managerOpts...)
	if _, err = manager.SelectRace(ctx, raceID); err != nil {
		return err
	}
	if vehicle != "" {
		manager.SelectVehicle(vehicle)
	}
	endLap, err := cache.MaxLap(ctx, raceID, vehicle)
	if err != nil {
		return err
	}

	local := publish.NewLocalPublisher(raceID)
	defer local.Close()
	var publisher publish.Publisher = local
	if config.NatsURL != "" {
		conn, natsErr := nats.Connect(config.NatsURL)
		if natsErr != nil {
			return natsErr
		}
		defer conn.Close()
		publisher = publish.NewMulti(local, publish.NewNatsPublisher(conn))
	}

	tickInterval, err := time.ParseDuration(interval)
	if err != nil || tickInterval <= 0 {
		tickInterval = time.Second
	}
	ticker := session.NewTicker(manager, proc.Recompute, publisher,
		session.WithInterval(tickInterval))
	defer ticker.Stop()

	sub := local.Subscribe()
	manager.SetLive(true)
	ticker.Start(ctx)

	data, err := cache.Get(ctx, raceID)
	if err != nil {
		return err
	}
	fmt.Printf("replaying %s (%d vehicles, laps %d..%d)\n",
		data.Race.Name, len(data.Vehicles()), manager.Current().LapFilter, endLap)

	var last *model.Snapshot
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\ninterrupted")
			return nil
		case snap, open := <-sub:
			if !open {
				return nil
			}
			last = snap
			printTick(snap)
			if snap.Selection.LapFilter >= endLap {
				printFinal(last)
				return nil
			}
		}
	}
}

// printTick renders one snapshot as a single progress line: the lap
// cursor, the top three, and the selected vehicle's KPI when the
// replay is restricted to one.
func printTick(snap *model.Snapshot) {
	line := fmt.Sprintf("lap %3d |", snap.Selection.LapFilter)
	for i, s := range snap.Standings {
		if i >= 3 {
			break
		}
		line += fmt.Sprintf(" P%d %s (%s)", s.Pos, s.VehicleID, fmtMetric(s.CurrentPace))
	}
	if snap.KPI.SelectedVehicle != model.AllVehicles {
		line += fmt.Sprintf(" | #%s best %s last %s gap %s",
			snap.KPI.SelectedVehicle,
			fmtMetric(snap.KPI.BestLap),
			fmtMetric(snap.KPI.LastLap),
			fmtMetric(snap.KPI.GapToLeader))
	}
	fmt.Println(line)
}

func printFinal(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	fmt.Printf("\nfinal standings after lap %d\n", snap.Selection.LapFilter)
	fmt.Println("pos vehicle laps best     pace     consistency")
	for _, s := range snap.Standings {
		fmt.Printf("%3d %-7s %4d %-8s %-8s %s\n",
			s.Pos, s.VehicleID, s.LapsDone,
			fmtMetric(s.BestLap), fmtMetric(s.CurrentPace), fmtMetric(s.Consistency))
	}
}

func fmtMetric(m model.Metric) string {
	if !m.Defined() {
		return "-"
	}
	return strconv.FormatFloat(m.Float(), 'f', 3, 64)
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

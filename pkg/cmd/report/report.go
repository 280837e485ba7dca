// Package report implements the command that renders a race's charts
// to a standalone HTML file, the offline twin of the debug chart route.
package report

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/report"
)

var output string

func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report raceId",
		Short: "renders a race's charts to a standalone HTML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "report.html",
		"target HTML file")
	return cmd
}

func runReport(ctx context.Context, raceID string) error {
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
	data, err := dataset.NewLoader(catalog).Load(ctx, raceID)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.Render(f, data, catalog.Heuristics.ConsistencyWindow); err != nil {
		return err
	}

	log.Info("Report written",
		log.String("race", data.Race.Name),
		log.Int("laps", len(data.Laps)),
		log.String("path", output))
	return nil
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

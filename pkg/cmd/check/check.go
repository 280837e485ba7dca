// Package check holds small data validation commands. They load races
// the same way the server does and report rows that violate the
// derivation invariants, which makes them the first stop when a new
// dataset misbehaves.
package check

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "commands to validate race data files",
	}

	cmd.AddCommand(NewCheckLapsCmd())
	cmd.AddCommand(NewCheckTelemetryCmd())
	cmd.AddCommand(NewCheckStoreCmd())

	return cmd
}

func newCheckLogger() *log.Logger {
	logger := log.DevLogger(
		os.Stderr,
		parseLogLevel(config.LogLevel, log.InfoLevel),
		log.WithCaller(true),
		log.AddCallerSkip(1))
	log.ResetDefault(logger)
	return logger.Named("check")
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

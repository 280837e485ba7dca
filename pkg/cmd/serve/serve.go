package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/api"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/processing"
	"github.com/raceiq/raceiq-console-go/pkg/session"
	"github.com/raceiq/raceiq-console-go/pkg/session/publish"
	"github.com/raceiq/raceiq-console-go/pkg/utils"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"addr",
		"a",
		"localhost:8080",
		"HTTP server listen address")
	cmd.Flags().StringVar(&config.AdminToken,
		"admin-token",
		"",
		"token for the mutating routes (empty: no auth)")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"NATS url for publishing live snapshots (empty: in-process only)")
	cmd.Flags().StringVar(&config.LiveInterval,
		"live-interval",
		"5s",
		"interval between live mode ticks")
	cmd.Flags().StringVar(&config.LivePolicy,
		"live-policy",
		"tick-overrides",
		"how live ticks and manual lap edits interact (tick-overrides, manual-reseeds)")
	cmd.Flags().StringVar(&config.CacheTTL,
		"cache-ttl",
		"0s",
		"expiration for cached race data (0: keep forever)")
	cmd.Flags().BoolVar(&config.WatchSources,
		"watch",
		false,
		"invalidate cached races when their source files change")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() *log.Logger {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogConfig != "" {
		filter, err := log.ParseFilterRules(config.LogConfig)
		if err == nil {
			opts = append(opts, filter)
		} else {
			fmt.Fprintf(os.Stderr, "ignoring invalid log filter rules: %v\n", err)
		}
	}
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			opts...)
	default:
		return log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			opts...)
	}
}

//nolint:funlen,cyclop // by design
func startServer(mainCtx context.Context) error {
	var telemetry *config.Telemetry
	log.ResetDefault(setupLogger())

	log.Debug("Config:",
		log.String("addr", config.ServerAddr),
		log.String("catalog", config.CatalogPath),
		log.String("natsUrl", config.NatsURL),
		log.String("liveInterval", config.LiveInterval),
		log.String("livePolicy", config.LivePolicy),
		log.String("cacheTtl", config.CacheTTL),
		log.Bool("watch", config.WatchSources),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // by design
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices()

	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(context.Background()); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	catalog, err := config.LoadCatalog(config.CatalogPath)
	if err != nil {
		log.Error("could not load the race catalog", log.ErrorField(err))
		return err
	}
	if len(catalog.Races) == 0 {
		return errors.New("the race catalog contains no races")
	}

	cacheOpts := []dataset.CacheOption{}
	if ttl, ttlErr := time.ParseDuration(config.CacheTTL); ttlErr == nil && ttl > 0 {
		cacheOpts = append(cacheOpts, dataset.WithTTL(ttl))
	}
	cache := dataset.NewCache(dataset.NewLoader(catalog), cacheOpts...)

	var watcher *dataset.Watcher
	if config.WatchSources {
		if watcher, err = dataset.NewWatcher(cache, catalog); err != nil {
			log.Error("could not create the source watcher", log.ErrorField(err))
			return err
		}
		if err = watcher.Start(mainCtx); err != nil {
			log.Error("could not start the source watcher", log.ErrorField(err))
			return err
		}
	}

	proc := processing.NewProcessor(cache,
		processing.WithHeuristics(catalog.Heuristics))
	manager := session.NewManager(cache.MaxLap,
		session.WithInitialRace(catalog.Races[0].ID),
		session.WithStartLap(catalog.DefaultStartLap))

	local := publish.NewLocalPublisher(catalog.Races[0].ID)
	var publisher publish.Publisher = local
	var natsConn *nats.Conn
	if config.NatsURL != "" {
		if natsConn, err = nats.Connect(config.NatsURL); err != nil {
			log.Error("could not connect to NATS", log.ErrorField(err))
			return err
		}
		publisher = publish.NewMulti(local, publish.NewNatsPublisher(natsConn))
	}

	ticker := session.NewTicker(manager, proc.Recompute, publisher,
		session.WithInterval(parseTickInterval()),
		session.WithPolicy(parseLivePolicy()))

	srv := api.NewServer(
		api.WithAddr(config.ServerAddr),
		api.WithAdminToken(config.AdminToken),
		api.WithCatalog(catalog),
		api.WithDatasets(cache),
		api.WithProcessor(proc),
		api.WithSessionManager(manager),
		api.WithTicker(ticker),
		api.WithLivePublisher(local),
	)

	log.Info("Starting server", log.String("addr", config.ServerAddr))
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()
	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	select {
	case err = <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server could not be started", log.ErrorField(err))
			return err
		}
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown incomplete", log.ErrorField(err))
	}
	if watcher != nil {
		//nolint:errcheck // nothing to do about a failed watcher close
		watcher.Close()
	}
	local.Close()
	if natsConn != nil {
		natsConn.Close()
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}

	log.Info("Server terminated")
	return nil
}

func parseTickInterval() time.Duration {
	d, err := time.ParseDuration(config.LiveInterval)
	if err != nil || d <= 0 {
		log.Warn("Invalid live interval, using default",
			log.String("value", config.LiveInterval),
			log.Duration("default", session.DefaultTickInterval))
		return session.DefaultTickInterval
	}
	return d
}

func parseLivePolicy() session.LivePolicy {
	p, err := session.ParseLivePolicy(config.LivePolicy)
	if err != nil {
		log.Warn("Invalid live policy, using default",
			log.String("value", config.LivePolicy),
			log.ErrorField(err))
		return session.TickOverrides
	}
	return p
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices() {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 15s", log.ErrorField(err))
		timeout = 15 * time.Second
	}

	if natsAddr := utils.ExtractFromNatsURL(config.NatsURL); natsAddr != "" {
		log.Debug("Waiting for NATS", log.String("addr", natsAddr))
		if err = utils.WaitForTCP(natsAddr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}
	log.Debug("Required services are available")
}

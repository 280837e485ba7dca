package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	CatalogPath       string // path to the race catalog file
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogConfig         string // log filter rules (zapfilter syntax)
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry
	ProfilingPort     int    // port for profiling
	ServerAddr        string // listen addr for the HTTP API
	AdminToken        string // token for mutating API access
	NatsURL           string // NATS url for live snapshot publishing (empty: in-process)
	WaitForServices   string // duration to wait for other services to be ready
	LiveInterval      string // interval between live mode ticks
	LivePolicy        string // manual vs auto lap precedence (tick-overrides, manual-reseeds)
	WatchSources      bool   // invalidate cached races when their source files change
	CacheTTL          string // optional expiration for cached race data (0: keep forever)
)

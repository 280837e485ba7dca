// Package api exposes the processed race data as JSON over HTTP: read
// routes per race, the shared session state, live mode control and the
// SSE snapshot stream. The package serializes what the processing layer
// computes; it renders nothing itself (the debug chart route excepted).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/config"
	"github.com/raceiq/raceiq-console-go/pkg/dataset"
	"github.com/raceiq/raceiq-console-go/pkg/processing"
	"github.com/raceiq/raceiq-console-go/pkg/session"
	"github.com/raceiq/raceiq-console-go/pkg/session/publish"
)

type (
	// Server wires the HTTP routes to the catalog, the dataset cache,
	// the processor and the session manager. Mutating routes (session
	// updates, live toggles) are guarded by the admin token when one is
	// configured.
	Server struct {
		addr       string
		adminToken string
		catalog    *config.Catalog
		data       *dataset.Cache
		proc       *processing.Processor
		sessions   *session.Manager
		ticker     *session.Ticker
		live       *publish.LocalPublisher
		l          *log.Logger

		// ctx outlives any single request; the live ticker runs on it.
		ctx    context.Context
		cancel context.CancelFunc
		srv    *http.Server
	}
	Option func(*Server)
)

func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithAdminToken guards the mutating routes with a bearer token. An
// empty token leaves them open.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

func WithCatalog(c *config.Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

func WithDatasets(d *dataset.Cache) Option {
	return func(s *Server) {
		s.data = d
	}
}

func WithProcessor(p *processing.Processor) Option {
	return func(s *Server) {
		s.proc = p
	}
}

func WithSessionManager(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithTicker attaches the live mode ticker. Without one the live
// start/stop routes answer 503.
func WithTicker(t *session.Ticker) Option {
	return func(s *Server) {
		s.ticker = t
	}
}

// WithLivePublisher attaches the in-process fan-out feeding the SSE
// stream. Without one the stream route answers 503.
func WithLivePublisher(p *publish.LocalPublisher) Option {
	return func(s *Server) {
		s.live = p
	}
}

func WithServerLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

func NewServer(opts ...Option) *Server {
	ret := &Server{
		addr: "localhost:8080",
		l:    log.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.ctx, ret.cancel = context.WithCancel(context.Background())
	if ret.adminToken == "" {
		ret.l.Warn("no admin token configured, mutating routes are open")
	}
	return ret
}

// Start serves until Shutdown or a listener error. h2c keeps the
// server reachable for both HTTP/1.1 and cleartext HTTP/2 clients.
func (s *Server) Start() error {
	s.l.Info("starting api server", log.String("addr", s.addr))
	//nolint:gosec // by design
	s.srv = &http.Server{
		Addr:    s.addr,
		Handler: h2c.NewHandler(newCORS().Handler(s.Handler()), &http2.Server{}),
	}
	return s.srv.ListenAndServe()
}

// Shutdown stops the live ticker and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func newCORS() *cors.Cors {
	// The dashboard frontend is served from a different origin during
	// development, so the CORS setup is very permissive.
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			// Allow all origins, which effectively disables CORS.
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			// Content-Type is in the default safelist.
			"Accept",
			"Accept-Encoding",
			"Cache-Control",
			"Content-Encoding",
		},
		// Let browsers cache CORS information for longer, which reduces
		// the number of preflight requests.
		MaxAge: int(2 * time.Hour / time.Second),
	})
}

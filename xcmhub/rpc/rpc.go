package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var Logger zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	Logger = zerolog.New(out).With().Timestamp().Str("component", "rpc").Logger()
}

// SetLogger replaces the package logger
func SetLogger(l zerolog.Logger) {
	Logger = l
}

const (
	healthPath  = "/server/health"
	readyPath   = "/server/ready"
	metricsPath = "/server/metrics"
)

// ServerConfig configures the transfer RPC server
type ServerConfig struct {
	Address        string
	AllowedOrigins []string
	EnableMetrics  bool
	// nil or zero disables the limit
	RatePerMinute         *int
	MaxConcurrentRequests *int
	// RequestTimeout bounds one request including chain binding, 60s when zero
	RequestTimeout time.Duration
	OTelConfig     *OTelConfig
	// Gatherer backs /server/metrics, the default registry when nil
	Gatherer prometheus.Gatherer
}

func DefaultServerConfig() *ServerConfig {
	rate := 0
	concurrent := 100
	return &ServerConfig{
		Address:               "localhost:8090",
		AllowedOrigins:        []string{"*"},
		EnableMetrics:         true,
		RatePerMinute:         &rate,
		MaxConcurrentRequests: &concurrent,
		RequestTimeout:        60 * time.Second,
		OTelConfig:            DefaultOTelConfig(),
	}
}

func (c *ServerConfig) metricsEnabled() bool {
	return c.EnableMetrics || (c.OTelConfig != nil && c.OTelConfig.UsePrometheus)
}

// Server serves the transfer service next to the health and metrics endpoints
type Server struct {
	config       *ServerConfig
	httpServer   *http.Server
	otelShutdown func(context.Context) error
	onShutdown   []func()
}

// NewServer mounts the transfer service and the server endpoints. Telemetry
// that fails to start is logged and skipped.
func NewServer(ctx context.Context, config *ServerConfig, svc *TransferServer) (*Server, error) {
	if config == nil {
		config = DefaultServerConfig()
	}
	if svc == nil {
		return nil, errors.New("transfer service is required")
	}

	s := &Server{config: config}
	if config.OTelConfig.enabled() {
		shutdown, err := NewOTelSDK(ctx, config.OTelConfig)
		if err != nil {
			Logger.Error().Err(err).Msg("Failed to initialize OpenTelemetry")
		} else {
			s.otelShutdown = shutdown
		}
	}

	interceptors, err := s.interceptors()
	if err != nil {
		return nil, err
	}

	mux := s.router()
	s.mountServerRoutes(mux, svc)
	path, handler := NewTransferServiceHandler(svc,
		connect.WithRecover(recoverHandler),
		connect.WithInterceptors(interceptors...),
	)
	mux.Handle(path+"*", handler)

	s.httpServer = &http.Server{
		Addr:              config.Address,
		Handler:           h2c.NewHandler(newCORSHandler(config.AllowedOrigins, mux), &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      s.requestTimeout() + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) requestTimeout() time.Duration {
	if s.config.RequestTimeout > 0 {
		return s.config.RequestTimeout
	}
	return 60 * time.Second
}

// router builds the chi mux with the HTTP middleware stack
func (s *Server) router() *chi.Mux {
	mux := chi.NewMux()
	mux.Use(requestLogger, recoverer, middleware.RequestID, clientIP)
	mux.Use(middleware.Compress(5))
	mux.Use(middleware.Timeout(s.requestTimeout()))

	if limit := s.config.RatePerMinute; limit != nil && *limit > 0 {
		mux.Use(httprate.LimitByIP(*limit, time.Minute))
	}
	if limit := s.config.MaxConcurrentRequests; limit != nil && *limit > 0 {
		mux.Use(middleware.Throttle(*limit))
	}
	return mux
}

func (s *Server) mountServerRoutes(mux *chi.Mux, svc *TransferServer) {
	if s.config.metricsEnabled() {
		gatherer := s.config.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		mux.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	mux.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "xcmhub-rpc"})
	})
	mux.Get(readyPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ready",
			"chains": svc.engine.Registry().Len(),
		})
	})
}

// interceptors returns the connect chain, outermost first
func (s *Server) interceptors() ([]connect.Interceptor, error) {
	metrics, err := metricsInterceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc metrics: %w", err)
	}
	chain := []connect.Interceptor{metrics}

	if s.config.OTelConfig != nil && s.config.OTelConfig.EnableTracing {
		tracing, err := otelconnect.NewInterceptor()
		if err != nil {
			Logger.Warn().Err(err).Msg("Tracing interceptor unavailable, serving without it")
		} else {
			chain = append(chain, tracing)
		}
	}
	return append(chain, loggingInterceptor(), validationInterceptor(), noCacheInterceptor()), nil
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// OnShutdown registers fn to run after the HTTP server stopped
func (s *Server) OnShutdown(fn func()) {
	s.onShutdown = append(s.onShutdown, fn)
}

// Start serves plain HTTP (h2c included) until Shutdown is called
func (s *Server) Start() error {
	s.announce("http")
	return s.httpServer.ListenAndServe()
}

// StartTLS serves HTTPS until Shutdown is called
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.announce("https")
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

func (s *Server) announce(protocol string) {
	Logger.Info().
		Str("address", s.config.Address).
		Str("protocol", protocol).
		Str("service", "/"+TransferServiceName+"/").
		Msg("XCM transfer RPC server starting")

	paths := []string{healthPath, readyPath}
	if s.config.metricsEnabled() {
		paths = append(paths, metricsPath)
	}
	Logger.Info().Strs("paths", paths).Msg("Server endpoints")
}

// Shutdown drains the HTTP server, runs the shutdown hooks and flushes
// telemetry last so the hooks can still report
func (s *Server) Shutdown(ctx context.Context) error {
	Logger.Info().Msg("Shutting down RPC server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		Logger.Error().Err(err).Msg("HTTP server did not drain")
	}
	for _, fn := range s.onShutdown {
		fn()
	}

	var err error
	if s.otelShutdown != nil {
		if err = s.otelShutdown(ctx); err != nil {
			Logger.Error().Err(err).Msg("Failed to flush telemetry")
		}
	}
	Logger.Info().Msg("RPC server stopped")
	return err
}

// recoverHandler reports panics in rpc handlers as Internal without details
func recoverHandler(_ context.Context, spec connect.Spec, _ http.Header, p any) error {
	Logger.Error().
		Interface("panic", p).
		Str("procedure", spec.Procedure).
		Msg("Panic in RPC handler")
	return connect.NewError(connect.CodeInternal, errors.New("internal server error"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/config"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/router"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/rpc"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/transport"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	rpc.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "", "rpc config file (toml); environment variables are used when empty")
	tlsCert := flag.String("tls-cert", "", "TLS certificate file")
	tlsKey := flag.String("tls-key", "", "TLS key file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var cfgPath *string
	if *configPath != "" {
		cfgPath = configPath
	}
	rpcConfig, err := config.LoadRPCConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load RPC config")
	}

	// Built-in chains, optionally overlaid by a chains file
	reg, err := config.NewChainConfigLoader().LoadRegistry(rpcConfig.ChainsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load chain registry")
	}
	log.Info().Int("count", reg.Len()).Msg("Loaded chains")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tables, err := config.NewDataLoader(rpcConfig).Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load asset tables")
	}

	engine := router.NewEngine(reg, tables)

	// Without endpoints the server still builds inert calls
	var pool rpc.ChainPool
	var chainPool *transport.Pool
	if len(rpcConfig.Endpoints) > 0 {
		chainPool = transport.NewPool(
			transport.NewDialer(transport.DefaultClientConfig()),
			rpcConfig.Endpoints,
			transport.PoolOptions{
				TTL:        rpcConfig.APICacheTTL,
				Grace:      rpcConfig.APICacheGrace,
				MaxSize:    rpcConfig.APICacheMaxSize,
				Registerer: prometheus.DefaultRegisterer,
			},
		)
		pool = chainPool
		log.Info().Int("chains", len(rpcConfig.Endpoints)).Msg("Chain connection pool initialized")
	} else {
		log.Warn().Msg("No chain endpoints configured, bound transactions are disabled")
	}

	server, err := rpc.NewServer(ctx, buildServerConfig(rpcConfig), rpc.NewTransferServer(engine, pool))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create RPC server")
	}
	if chainPool != nil {
		server.OnShutdown(func() {
			chainPool.Close()
			log.Info().Msg("Closed chain connections")
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		var err error
		if *tlsCert != "" && *tlsKey != "" {
			err = server.StartTLS(*tlsCert, *tlsKey)
		} else {
			err = server.Start()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// buildServerConfig converts the loaded RPCConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.RPCConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics || cfg.UsePrometheus,
	}
	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}
	if cfg.EnableTracing || cfg.EnableMetrics || cfg.EnableLogs || cfg.UsePrometheus {
		serverConfig.OTelConfig = rpc.OTelConfigFrom(cfg)
	}
	return serverConfig
}

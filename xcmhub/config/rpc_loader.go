package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "XCMHUB"

// LoadRPCConfig loads the server config from the given toml file, or from
// XCMHUB_* environment variables when path is nil
func LoadRPCConfig(configPath *string) (*RPCConfig, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == nil {
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}
	config, err := loadFile(v, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "xcmhub")
	v.SetDefault("rate_per_minute", 300)
	v.SetDefault("max_concurrent_requests", 100)
	v.SetDefault("assets_fetch_attempts", 3)
	v.SetDefault("api_cache_ttl", 5*time.Minute)
	v.SetDefault("api_cache_max_size", 32)
	v.SetDefault("api_cache_grace", 30*time.Second)
}

func loadEnv(v *viper.Viper) (*RPCConfig, error) {
	// a missing .env is fine, the envs can come from docker or systemd
	_ = godotenv.Load()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config RPCConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each key to its env var so Unmarshal sees env values in
// env only mode. Endpoints can only be set from a file.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests",
		"service_name", "service_version", "environment",
		"enable_tracing", "use_otlp_traces", "otlp_traces_url",
		"enable_metrics", "use_prometheus", "use_otlp_metrics", "otlp_metrics_url",
		"enable_logs", "use_otlp_logs", "otlp_logs_url",
		"insecure_otlp", "development_mode",
		"chains_file", "assets_file", "pallets_file", "existential_deposits_file",
		"assets_url", "assets_fetch_attempts",
		"api_cache_ttl", "api_cache_max_size", "api_cache_grace",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*RPCConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config RPCConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

func verifyConfig(config *RPCConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if config.Host == "" {
		return fmt.Errorf("host is required")
	}

	if len(config.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required")
	}

	if config.RatePerMinute < 0 || config.MaxConcurrentRequests < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	if config.UseOTLPTraces && config.OTLPTracesURL == "" {
		return fmt.Errorf("otlp_traces_url is required when use_otlp_traces is set")
	}
	if config.UseOTLPMetrics && config.OTLPMetricsURL == "" {
		return fmt.Errorf("otlp_metrics_url is required when use_otlp_metrics is set")
	}
	if config.UseOTLPLogs && config.OTLPLogsURL == "" {
		return fmt.Errorf("otlp_logs_url is required when use_otlp_logs is set")
	}

	if config.APICacheTTL <= 0 {
		return fmt.Errorf("api_cache_ttl must be positive")
	}
	if config.APICacheMaxSize < 0 || config.APICacheGrace < 0 {
		return fmt.Errorf("api_cache_max_size and api_cache_grace must not be negative")
	}

	for chain, urls := range config.Endpoints {
		if len(urls) == 0 {
			return fmt.Errorf("endpoints of %s must not be empty", chain)
		}
		for _, url := range urls {
			if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
				return fmt.Errorf("endpoint %q of %s is not a websocket url", url, chain)
			}
		}
	}

	return nil
}

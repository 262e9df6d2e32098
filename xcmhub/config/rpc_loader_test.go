package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zeebo/assert"

	. "github.com/Cogwheel-Validator/spectra-xcm/xcmhub/config"
)

// unsetEnv clears XCMHUB_ variables and moves to an empty dir so godotenv
// finds no .env file
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "XCMHUB_") {
			if idx := strings.Index(e, "="); idx != -1 {
				_ = os.Unsetenv(e[:idx])
			}
		}
	}
	t.Chdir(t.TempDir())
}

func TestLoadRPCConfig_FromEnv(t *testing.T) {
	unsetEnv(t)
	t.Setenv("XCMHUB_PORT", "8080")
	t.Setenv("XCMHUB_HOST", "0.0.0.0")
	t.Setenv("XCMHUB_ALLOWED_ORIGINS", "*")
	t.Setenv("XCMHUB_API_CACHE_TTL", "90s")
	t.Setenv("XCMHUB_ASSETS_URL", "https://example.com/assets.json")

	cfg, err := LoadRPCConfig(nil)
	assert.NoError(t, err)
	assert.Equal(t, cfg.Port, 8080)
	assert.Equal(t, cfg.Host, "0.0.0.0")
	assert.Equal(t, len(cfg.AllowedOrigins), 1)
	assert.Equal(t, cfg.APICacheTTL, 90*time.Second)
	assert.Equal(t, cfg.AssetsURL, "https://example.com/assets.json")

	// defaults
	assert.Equal(t, cfg.ServiceName, "xcmhub")
	assert.Equal(t, cfg.APICacheMaxSize, 32)
	assert.Equal(t, cfg.APICacheGrace, 30*time.Second)
	assert.Equal(t, cfg.AssetsFetchAttempts, uint(3))
}

func TestLoadRPCConfig_FromEnv_FailVerification(t *testing.T) {
	unsetEnv(t)
	// missing host
	t.Setenv("XCMHUB_PORT", "8080")
	t.Setenv("XCMHUB_ALLOWED_ORIGINS", "*")

	_, err := LoadRPCConfig(nil)
	assert.Error(t, err)
}

func TestLoadRPCConfig_FromFile(t *testing.T) {
	unsetEnv(t)
	cfg, err := LoadRPCConfig(ptr(testdata("rpc_config.toml")))
	assert.NoError(t, err)
	assert.Equal(t, cfg.Port, 9090)
	assert.Equal(t, cfg.RatePerMinute, 120)
	assert.Equal(t, cfg.APICacheTTL, 2*time.Minute)
	assert.Equal(t, cfg.APICacheGrace, 15*time.Second)
	assert.Equal(t, len(cfg.Endpoints), 2)
	// viper lowercases map keys
	assert.Equal(t, len(cfg.Endpoints["polkadot"]), 2)
}

func TestLoadRPCConfig_FromFile_Errors(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		assert.NoError(t, os.WriteFile(p, []byte(content), 0o600))
		return p
	}

	cases := map[string]string{
		"not toml":     write("config.yaml", "port: 1"),
		"missing file": filepath.Join(dir, "missing.toml"),
		"bad port": write("port.toml", `
port = 70000
host = "127.0.0.1"
allowed_origins = ["*"]
`),
		"http endpoint": write("endpoint.toml", `
port = 9090
host = "127.0.0.1"
allowed_origins = ["*"]
[endpoints]
Polkadot = ["https://rpc.polkadot.example"]
`),
		"otlp without url": write("otlp.toml", `
port = 9090
host = "127.0.0.1"
allowed_origins = ["*"]
use_otlp_traces = true
`),
		"zero ttl": write("ttl.toml", `
port = 9090
host = "127.0.0.1"
allowed_origins = ["*"]
api_cache_ttl = "0s"
`),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRPCConfig(&path)
			assert.Error(t, err)
		})
	}
}

func ptr[T any](v T) *T { return &v }

// resolved before any test changes the working dir
var testdataDir, _ = filepath.Abs("testdata")

func testdata(name string) string {
	return filepath.Join(testdataDir, name)
}

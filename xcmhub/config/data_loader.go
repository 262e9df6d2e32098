package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	getter "github.com/hashicorp/go-getter"
	"github.com/rs/zerolog"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/assets"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(output).With().Timestamp().Str("component", "config").Logger()
}

const (
	defaultFetchTimeout = 60 * time.Second
	fetchRetryDelay     = 500 * time.Millisecond
)

// DataLoader builds the asset tables from the built-in data, optional local
// files and an optional remote asset table
type DataLoader struct {
	AssetsFile   string
	PalletsFile  string
	DepositsFile string

	// AssetsURL is any go-getter source of an assets.json
	AssetsURL     string
	FetchAttempts uint
	FetchTimeout  time.Duration
}

func NewDataLoader(cfg *RPCConfig) *DataLoader {
	return &DataLoader{
		AssetsFile:    cfg.AssetsFile,
		PalletsFile:   cfg.PalletsFile,
		DepositsFile:  cfg.ExistentialDepositsFile,
		AssetsURL:     cfg.AssetsURL,
		FetchAttempts: cfg.AssetsFetchAttempts,
	}
}

// Load builds the tables. Local files replace the built-in tables; a remote
// asset table is merged over them and a failed fetch keeps them as they are.
func (l *DataLoader) Load(ctx context.Context) (*assets.Tables, error) {
	assetMap, pallets, deposits, err := assets.EmbeddedData()
	if err != nil {
		return nil, err
	}

	if l.AssetsFile != "" {
		if assetMap, err = readTable(l.AssetsFile, assets.ParseAssetMap); err != nil {
			return nil, err
		}
	}
	if l.PalletsFile != "" {
		if pallets, err = readTable(l.PalletsFile, assets.ParsePalletMap); err != nil {
			return nil, err
		}
	}
	if l.DepositsFile != "" {
		if deposits, err = readTable(l.DepositsFile, assets.ParseDepositMap); err != nil {
			return nil, err
		}
	}

	if l.AssetsURL != "" {
		fetched, err := FetchAssets(ctx, l.AssetsURL, l.FetchAttempts, l.FetchTimeout)
		if err != nil {
			log.Warn().Err(err).Str("url", l.AssetsURL).Msg("Asset refresh failed, keeping local tables")
		} else {
			assetMap = MergeAssetMaps(assetMap, fetched)
		}
	}

	tables, err := assets.NewTables(assetMap, pallets, deposits)
	if err != nil {
		return nil, fmt.Errorf("failed to build asset tables: %w", err)
	}
	return tables, nil
}

func readTable[T any](path string, parse func([]byte) (T, error)) (T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("failed to read %s: %w", path, err)
	}
	table, err := parse(data)
	if err != nil {
		return zero, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return table, nil
}

// FetchAssets downloads an asset table with go-getter, retrying transport
// failures. A table that does not parse is not retried.
func FetchAssets(ctx context.Context, src string, attempts uint, timeout time.Duration) (assets.AssetMap, error) {
	if attempts == 0 {
		attempts = 1
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	dir, err := os.MkdirTemp("", "xcmhub-assets")
	if err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("Failed to remove download dir")
		}
	}()
	dst := filepath.Join(dir, "assets.json")

	var table assets.AssetMap
	err = retry.Do(func() error {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		_ = os.Remove(dst)
		client := getter.Client{
			Ctx:  fetchCtx,
			Src:  src,
			Dst:  dst,
			Mode: getter.ClientModeFile,
		}
		if err := client.Get(); err != nil {
			return fmt.Errorf("failed to download asset table: %w", err)
		}
		data, err := os.ReadFile(dst)
		if err != nil {
			return fmt.Errorf("failed to read downloaded asset table: %w", err)
		}
		parsed, err := assets.ParseAssetMap(data)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if len(parsed) == 0 {
			return retry.Unrecoverable(fmt.Errorf("downloaded asset table is empty"))
		}
		table = parsed
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(fetchRetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Uint("attempt", n+1).Str("src", src).Msg("Retrying asset table download")
		}),
	)
	if err != nil {
		return nil, err
	}
	log.Info().Str("src", src).Int("chains", len(table)).Msg("Asset table downloaded")
	return table, nil
}

// MergeAssetMaps lays fetched over prior. A fetched chain replaces the prior
// entry but keeps its manually added assets; chains the fetch omits stay as
// they were. Neither input is modified.
func MergeAssetMaps(prior, fetched assets.AssetMap) assets.AssetMap {
	merged := make(assets.AssetMap, len(prior)+len(fetched))
	priorKeys := make(map[string]string, len(prior))
	for chain, table := range prior {
		merged[chain] = table
		priorKeys[strings.ToLower(chain)] = chain
	}

	for chain, table := range fetched {
		if table == nil {
			continue
		}
		next := *table
		next.NativeAssets = append([]assets.Asset{}, table.NativeAssets...)
		next.OtherAssets = append([]assets.Asset{}, table.OtherAssets...)

		if key, ok := priorKeys[strings.ToLower(chain)]; ok {
			if old := prior[key]; old != nil {
				next.NativeAssets = keepManual(next.NativeAssets, old.NativeAssets)
				next.OtherAssets = keepManual(next.OtherAssets, old.OtherAssets)
			}
			delete(merged, key)
		}
		merged[chain] = &next
	}
	return merged
}

// keepManual appends the manually added assets of old that fresh lacks
func keepManual(fresh, old []assets.Asset) []assets.Asset {
	for _, a := range old {
		if !a.ManuallyAdded || containsAsset(fresh, a) {
			continue
		}
		fresh = append(fresh, a)
	}
	return fresh
}

func containsAsset(list []assets.Asset, a assets.Asset) bool {
	for _, b := range list {
		if a.AssetID != "" && b.AssetID == a.AssetID {
			return true
		}
		if a.AssetID == "" && b.AssetID == "" && strings.EqualFold(a.Symbol, b.Symbol) {
			return true
		}
	}
	return false
}

package assets

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

//go:embed data/*.json
var embedded embed.FS

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(output).With().Timestamp().Str("component", "assets").Logger()
}

// Asset is one entry of a chain's asset table
type Asset struct {
	Symbol             string             `json:"symbol"`
	AssetID            string             `json:"assetId,omitempty"`
	Alias              string             `json:"alias,omitempty"`
	Decimals           *int               `json:"decimals,omitempty"`
	Location           *xcm.MultiLocation `json:"multiLocation,omitempty"`
	ExistentialDeposit string             `json:"existentialDeposit,omitempty"`
	// ManuallyAdded entries survive a remote refresh of the table
	ManuallyAdded bool `json:"manuallyAdded,omitempty"`
}

// ChainAssets is the asset table of one chain
type ChainAssets struct {
	RelayChainAssetSymbol string  `json:"relayChainAssetSymbol"`
	NativeAssetSymbol     string  `json:"nativeAssetSymbol"`
	IsEVM                 bool    `json:"isEVM"`
	NativeAssets          []Asset `json:"nativeAssets"`
	OtherAssets           []Asset `json:"otherAssets"`
}

// AssetMap is chain id -> asset table, the on-disk format of assets.json
type AssetMap map[string]*ChainAssets

// PalletInfo lists the transfer pallets of a chain runtime
type PalletInfo struct {
	DefaultPallet    string   `json:"defaultPallet"`
	SupportedPallets []string `json:"supportedPallets"`
}

type PalletMap map[string]PalletInfo

// DepositMap is chain id -> existential deposit of the native asset
type DepositMap map[string]string

func ParseAssetMap(data []byte) (AssetMap, error) {
	var m AssetMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse asset table: %w", err)
	}
	return m, nil
}

func ParsePalletMap(data []byte) (PalletMap, error) {
	var m PalletMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse pallet table: %w", err)
	}
	return m, nil
}

func ParseDepositMap(data []byte) (DepositMap, error) {
	var m DepositMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse existential deposit table: %w", err)
	}
	return m, nil
}

// Tables holds the static data tables. It is read only after construction.
type Tables struct {
	assets   map[string]*ChainAssets
	pallets  map[string]PalletInfo
	deposits map[string]decimal.Decimal
}

// NewTables indexes the tables by lowercase chain id
func NewTables(assetMap AssetMap, pallets PalletMap, deposits DepositMap) (*Tables, error) {
	t := &Tables{
		assets:   make(map[string]*ChainAssets, len(assetMap)),
		pallets:  make(map[string]PalletInfo, len(pallets)),
		deposits: make(map[string]decimal.Decimal, len(deposits)),
	}
	for chain, table := range assetMap {
		if table == nil {
			return nil, fmt.Errorf("chain %s has an empty asset table", chain)
		}
		for _, a := range append(append([]Asset{}, table.NativeAssets...), table.OtherAssets...) {
			if a.Symbol == "" {
				return nil, fmt.Errorf("chain %s has an asset without a symbol", chain)
			}
			if a.Location != nil {
				if err := a.Location.Validate(); err != nil {
					return nil, fmt.Errorf("chain %s asset %s: %w", chain, a.Symbol, err)
				}
			}
		}
		t.assets[strings.ToLower(chain)] = table
	}
	for chain, info := range pallets {
		t.pallets[strings.ToLower(chain)] = info
	}
	for chain, raw := range deposits {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("chain %s has an invalid existential deposit %q: %w", chain, raw, err)
		}
		t.deposits[strings.ToLower(chain)] = d
	}
	log.Debug().
		Int("chains", len(t.assets)).
		Int("pallets", len(t.pallets)).
		Msg("Asset tables indexed")
	return t, nil
}

// EmbeddedData returns the raw built-in tables, used as the merge base for refreshed data
func EmbeddedData() (AssetMap, PalletMap, DepositMap, error) {
	raw, err := embedded.ReadFile("data/assets.json")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read embedded assets: %w", err)
	}
	assetMap, err := ParseAssetMap(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	raw, err = embedded.ReadFile("data/pallets.json")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read embedded pallets: %w", err)
	}
	pallets, err := ParsePalletMap(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	raw, err = embedded.ReadFile("data/existential_deposits.json")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read embedded deposits: %w", err)
	}
	deposits, err := ParseDepositMap(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	return assetMap, pallets, deposits, nil
}

// DefaultTables builds the tables from the embedded data
func DefaultTables() *Tables {
	assetMap, pallets, deposits, err := EmbeddedData()
	if err != nil {
		panic(err)
	}
	t, err := NewTables(assetMap, pallets, deposits)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded asset tables: %v", err))
	}
	return t
}

// Chain returns the asset table of a chain
func (t *Tables) Chain(chain string) (*ChainAssets, bool) {
	table, ok := t.assets[strings.ToLower(chain)]
	return table, ok
}

func (t *Tables) NativeSymbol(chain string) string {
	if table, ok := t.Chain(chain); ok {
		return table.NativeAssetSymbol
	}
	return ""
}

func (t *Tables) RelaySymbol(chain string) string {
	if table, ok := t.Chain(chain); ok {
		return table.RelayChainAssetSymbol
	}
	return ""
}

// HasSupportForAsset reports whether the chain's table lists the symbol
func (t *Tables) HasSupportForAsset(chain, symbol string) bool {
	table, ok := t.Chain(chain)
	if !ok {
		return false
	}
	for _, a := range table.NativeAssets {
		if strings.EqualFold(a.Symbol, symbol) {
			return true
		}
	}
	for _, a := range table.OtherAssets {
		if strings.EqualFold(a.Symbol, symbol) {
			return true
		}
	}
	return false
}

// ExistentialDeposit returns the native existential deposit of a chain, falling
// back to the value stored on the native asset entry
func (t *Tables) ExistentialDeposit(chain string) (decimal.Decimal, bool) {
	if d, ok := t.deposits[strings.ToLower(chain)]; ok {
		return d, true
	}
	table, ok := t.Chain(chain)
	if !ok {
		return decimal.Zero, false
	}
	for _, a := range table.NativeAssets {
		if a.ExistentialDeposit == "" {
			continue
		}
		if d, err := decimal.NewFromString(a.ExistentialDeposit); err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}

// DefaultPallet returns the default transfer pallet of a chain
func (t *Tables) DefaultPallet(chain string) (string, bool) {
	info, ok := t.pallets[strings.ToLower(chain)]
	if !ok || info.DefaultPallet == "" {
		return "", false
	}
	return info.DefaultPallet, true
}

// SupportsPallet reports whether the pallet is listed for the chain
func (t *Tables) SupportsPallet(chain, pallet string) bool {
	info, ok := t.pallets[strings.ToLower(chain)]
	if !ok {
		return false
	}
	if strings.EqualFold(info.DefaultPallet, pallet) {
		return true
	}
	for _, p := range info.SupportedPallets {
		if strings.EqualFold(p, pallet) {
			return true
		}
	}
	return false
}

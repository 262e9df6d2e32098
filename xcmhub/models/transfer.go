package models

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// Scenario classifies a transfer by where it starts and ends
type Scenario string

const (
	ScenarioRelayToPara Scenario = "RelayToPara"
	ScenarioParaToRelay Scenario = "ParaToRelay"
	ScenarioParaToPara  Scenario = "ParaToPara"
)

// BridgeKind is layered on top of ParaToPara when the transfer leaves the relay network
type BridgeKind string

const (
	BridgeNone      BridgeKind = ""
	BridgeRelayPair BridgeKind = "relay_pair" // AssetHub <-> AssetHub across the two relay networks
	BridgeExternal  BridgeKind = "external"   // e.g. Ethereum
)

// SymbolKind tags a symbol with the part of the asset table it must be looked up in
type SymbolKind string

const (
	SymbolAny             SymbolKind = ""
	SymbolNative          SymbolKind = "native"
	SymbolForeign         SymbolKind = "foreign"
	SymbolForeignAbstract SymbolKind = "foreign_abstract"
)

type SymbolSpec struct {
	Value string     `json:"value"`          // e.g. "DOT"
	Kind  SymbolKind `json:"kind,omitempty"` // empty matches native and foreign assets
}

// MultiAssetEntry is one element of a multi-asset currency
type MultiAssetEntry struct {
	Location   xcm.MultiLocation `json:"location"`
	Amount     string            `json:"amount"`
	IsFeeAsset bool              `json:"is_fee_asset,omitempty"`
}

// CurrencySpec selects the asset to transfer. Exactly one field must be set.
type CurrencySpec struct {
	Symbol      *SymbolSpec        `json:"symbol,omitempty"`
	ID          string             `json:"id,omitempty"`
	Location    *xcm.MultiLocation `json:"location,omitempty"`
	MultiAssets []MultiAssetEntry  `json:"multi_assets,omitempty"`
}

func Symbol(symbol string) CurrencySpec {
	return CurrencySpec{Symbol: &SymbolSpec{Value: symbol}}
}

func NativeSymbol(symbol string) CurrencySpec {
	return CurrencySpec{Symbol: &SymbolSpec{Value: symbol, Kind: SymbolNative}}
}

func ForeignSymbol(symbol string) CurrencySpec {
	return CurrencySpec{Symbol: &SymbolSpec{Value: symbol, Kind: SymbolForeign}}
}

func ForeignAbstractSymbol(alias string) CurrencySpec {
	return CurrencySpec{Symbol: &SymbolSpec{Value: alias, Kind: SymbolForeignAbstract}}
}

func AssetID(id string) CurrencySpec {
	return CurrencySpec{ID: id}
}

func LocationOverride(loc xcm.MultiLocation) CurrencySpec {
	return CurrencySpec{Location: &loc}
}

func MultiAssets(entries ...MultiAssetEntry) CurrencySpec {
	// keep a non-nil slice so an explicit empty list is distinguishable from "unset"
	return CurrencySpec{MultiAssets: append([]MultiAssetEntry{}, entries...)}
}

// IsMultiAsset reports whether the multi-asset form is used, including an empty list
func (c CurrencySpec) IsMultiAsset() bool {
	return c.MultiAssets != nil
}

// SetCount returns how many of the mutually exclusive selectors are set
func (c CurrencySpec) SetCount() int {
	n := 0
	if c.Symbol != nil {
		n++
	}
	if c.ID != "" {
		n++
	}
	if c.Location != nil {
		n++
	}
	if c.IsMultiAsset() {
		n++
	}
	return n
}

func (c CurrencySpec) String() string {
	switch {
	case c.Symbol != nil && c.Symbol.Kind != SymbolAny:
		return fmt.Sprintf("%s(%s)", c.Symbol.Kind, c.Symbol.Value)
	case c.Symbol != nil:
		return c.Symbol.Value
	case c.ID != "":
		return "id:" + c.ID
	case c.Location != nil:
		return c.Location.String()
	case c.IsMultiAsset():
		return fmt.Sprintf("multiassets[%d]", len(c.MultiAssets))
	default:
		return "<none>"
	}
}

// Destination is a chain id or an explicit location
type Destination struct {
	Chain    string             `json:"chain,omitempty"`    // e.g. "Hydration"
	Location *xcm.MultiLocation `json:"location,omitempty"` // raw destination, used as-is
}

func ToChain(chain string) *Destination {
	return &Destination{Chain: chain}
}

func ToLocation(loc xcm.MultiLocation) *Destination {
	return &Destination{Location: &loc}
}

// Validate rejects a destination naming both a chain and a location. A nil
// destination is the relay chain and is valid.
func (d *Destination) Validate() error {
	if d != nil && d.Chain != "" && d.Location != nil {
		return NewInvalidParameterError("destination takes a chain or a location, not both")
	}
	return nil
}

func (d *Destination) String() string {
	switch {
	case d == nil:
		return "relay"
	case d.Chain != "":
		return d.Chain
	case d.Location != nil:
		return d.Location.String()
	default:
		return "<none>"
	}
}

// TransferIntent is the high level description of a single transfer
type TransferIntent struct {
	From     string       `json:"from,omitempty"` // origin chain; empty means the relay chain
	To       *Destination `json:"to,omitempty"`   // nil means the relay chain
	Currency CurrencySpec `json:"currency"`
	Amount   string       `json:"amount,omitempty"` // smallest units, decimal string; empty with multi-assets
	Address  string       `json:"address"`          // SS58, 32 byte hex or 20 byte hex
	FeeAsset *int         `json:"fee_asset,omitempty"`
	Version  *xcm.Version `json:"version,omitempty"`
}

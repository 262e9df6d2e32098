package assets

import (
	"strings"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// Resolved is the outcome of currency resolution on the origin chain
type Resolved struct {
	Chain  string
	Asset  Asset
	Native bool // the origin chain's own native asset
	// RelayNative is set when the asset is the relay family's native asset
	RelayNative bool
	// Override is the caller supplied location, encoded verbatim
	Override *xcm.MultiLocation
	// Synthetic is set when the origin disables asset checking and no table lookup happened
	Synthetic bool
}

// Symbol returns the symbol of the resolved asset, empty for synthetic id or location lookups
func (r *Resolved) Symbol() string {
	return r.Asset.Symbol
}

// Resolver looks currencies up in the asset tables, similar to how a denom
// resolver maps human readable denoms to chain specific ones
type Resolver struct {
	tables *Tables
}

func NewResolver(tables *Tables) *Resolver {
	return &Resolver{tables: tables}
}

func (r *Resolver) Tables() *Tables {
	return r.tables
}

// Resolve resolves a single-asset currency on the origin chain. Multi-asset
// currencies are carried verbatim by the caller and are rejected here.
func (r *Resolver) Resolve(origin *registry.Chain, currency models.CurrencySpec) (*Resolved, error) {
	if err := ValidateCurrencySpec(currency); err != nil {
		return nil, err
	}
	if currency.IsMultiAsset() {
		return nil, models.NewInvalidParameterError("multi-asset currencies are not resolved against the asset table")
	}
	if err := ValidateWrapperAllowed(origin, currency); err != nil {
		return nil, err
	}
	if !origin.AssetCheckEnabled {
		return r.synthetic(origin, currency), nil
	}

	switch {
	case currency.Symbol != nil:
		return r.FindBySymbol(origin.ID, *currency.Symbol)
	case currency.ID != "":
		return r.FindByID(origin.ID, currency.ID)
	default:
		res, err := r.FindByLocation(origin.ID, *currency.Location)
		if err != nil {
			return nil, err
		}
		res.Override = currency.Location
		return res, nil
	}
}

func (r *Resolver) synthetic(origin *registry.Chain, currency models.CurrencySpec) *Resolved {
	res := &Resolved{Chain: origin.ID, Synthetic: true, Override: currency.Location}
	switch {
	case currency.Symbol != nil:
		res.Asset = Asset{Symbol: currency.Symbol.Value}
	case currency.ID != "":
		res.Asset = Asset{AssetID: currency.ID}
	}
	if table, ok := r.tables.Chain(origin.ID); ok && res.Asset.Symbol != "" {
		res.Native = strings.EqualFold(res.Asset.Symbol, table.NativeAssetSymbol)
		res.RelayNative = strings.EqualFold(res.Asset.Symbol, table.RelayChainAssetSymbol)
	}
	return res
}

// FindBySymbol looks the symbol up on a chain. A plain symbol matches both
// native and foreign assets; tagged symbols only match their part of the table.
func (r *Resolver) FindBySymbol(chain string, spec models.SymbolSpec) (*Resolved, error) {
	table, ok := r.tables.Chain(chain)
	if !ok {
		return nil, models.NewInvalidCurrencyError(chain, "chain has no asset table")
	}

	var native, foreign []Asset
	if spec.Kind == models.SymbolAny || spec.Kind == models.SymbolNative {
		for _, a := range table.NativeAssets {
			if strings.EqualFold(a.Symbol, spec.Value) {
				native = append(native, a)
			}
		}
	}
	switch spec.Kind {
	case models.SymbolAny, models.SymbolForeign:
		for _, a := range table.OtherAssets {
			if strings.EqualFold(a.Symbol, spec.Value) {
				foreign = append(foreign, a)
			}
		}
	case models.SymbolForeignAbstract:
		for _, a := range table.OtherAssets {
			if strings.EqualFold(a.Alias, spec.Value) {
				foreign = append(foreign, a)
			}
		}
	}

	if len(native) > 0 && len(foreign) > 0 {
		return nil, models.NewDuplicateAssetError(chain, spec.Value).
			WithHint("use a native or foreign symbol, or specify the currency by id")
	}
	if len(foreign) > 1 && !sameAsset(foreign) {
		return nil, models.NewDuplicateAssetError(chain, spec.Value)
	}

	switch {
	case len(native) > 0:
		return r.resolved(chain, table, native[0], true), nil
	case len(foreign) > 0:
		return r.resolved(chain, table, foreign[0], false), nil
	default:
		return nil, models.NewInvalidCurrencyError(chain, "asset %s is not registered", describeSymbol(spec))
	}
}

// FindByID looks an asset id up on a chain
func (r *Resolver) FindByID(chain, id string) (*Resolved, error) {
	table, ok := r.tables.Chain(chain)
	if !ok {
		return nil, models.NewInvalidCurrencyError(chain, "chain has no asset table")
	}
	want := normalizeID(id)

	var matches []Asset
	var native bool
	for _, a := range table.NativeAssets {
		if a.AssetID != "" && normalizeID(a.AssetID) == want {
			matches = append(matches, a)
			native = true
		}
	}
	for _, a := range table.OtherAssets {
		if a.AssetID != "" && normalizeID(a.AssetID) == want {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 0:
		return nil, models.NewInvalidCurrencyError(chain, "asset id %s is not registered", id)
	case 1:
		return r.resolved(chain, table, matches[0], native), nil
	default:
		return nil, models.NewDuplicateAssetIDError(chain, id)
	}
}

// FindByLocation finds the asset registered under a location on a chain
func (r *Resolver) FindByLocation(chain string, loc xcm.MultiLocation) (*Resolved, error) {
	table, ok := r.tables.Chain(chain)
	if !ok {
		return nil, models.NewInvalidCurrencyError(chain, "chain has no asset table")
	}
	for _, a := range table.NativeAssets {
		if a.Location != nil && a.Location.Equal(loc) {
			return r.resolved(chain, table, a, true), nil
		}
	}
	for _, a := range table.OtherAssets {
		if a.Location != nil && a.Location.Equal(loc) {
			return r.resolved(chain, table, a, false), nil
		}
	}
	return nil, models.NewInvalidCurrencyError(chain, "no asset is registered at location %s", loc)
}

// CheckDestination verifies the destination chain lists the resolved asset.
// Chains with asset checking disabled accept anything.
func (r *Resolver) CheckDestination(dest *registry.Chain, res *Resolved) error {
	if !dest.AssetCheckEnabled || res.Synthetic || res.Asset.Symbol == "" {
		return nil
	}
	if r.tables.HasSupportForAsset(dest.ID, res.Asset.Symbol) {
		return nil
	}
	return models.NewInvalidCurrencyError(dest.ID, "destination does not support asset %s", res.Asset.Symbol)
}

func (r *Resolver) resolved(chain string, table *ChainAssets, a Asset, native bool) *Resolved {
	return &Resolved{
		Chain:       chain,
		Asset:       a,
		Native:      native,
		RelayNative: strings.EqualFold(a.Symbol, table.RelayChainAssetSymbol),
	}
}

// sameAsset reports whether every entry carries the same asset id, which
// happens when a table lists an asset twice
func sameAsset(list []Asset) bool {
	for _, a := range list[1:] {
		if a.AssetID == "" || normalizeID(a.AssetID) != normalizeID(list[0].AssetID) {
			return false
		}
	}
	return true
}

// ids are often written with thousands separators, e.g. "1,984"
func normalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), ",", ""))
}

func describeSymbol(spec models.SymbolSpec) string {
	if spec.Kind == models.SymbolAny {
		return spec.Value
	}
	return string(spec.Kind) + "(" + spec.Value + ")"
}

package router

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// fixed destination weights for runtimes that predate WeightLimit
const (
	legacyWeightToRelay uint64 = 4_600_000_000
	legacyWeightToPara  uint64 = 399_600_000_000
)

// tokenTransfer emits an xTokens call. Plain currencies use "transfer" with a
// chain specific currency selector; location overrides and AssetHub
// destinations use "transferMultiasset"; multi-asset lists use "transferMultiassets".
func (e *Engine) tokenTransfer(tc *transferContext) (*models.SerializedCall, error) {
	route := tc.route
	origin := route.Origin
	v := route.Version

	dest := e.tokenTransferDestination(tc)
	call := &models.SerializedCall{Module: lowerFirst(e.tokenPallet(origin))}

	switch {
	case tc.isMultiAsset():
		list := make([]xcm.Asset, len(tc.multi))
		for i, m := range tc.multi {
			list[i] = xcm.Fungible(m.Location, m.Amount)
		}
		call.Section = "transferMultiassets"
		call.Parameters = models.Params{
			{Name: "assets", Value: xcm.NewVersionedAssets(v, list...)},
			{Name: "fee_item", Value: uint32(tc.feeItem)},
			{Name: "dest", Value: xcm.NewVersionedLocation(v, dest)},
		}

	case tc.asset.Override != nil || (route.Destination != nil && route.Destination.AssetHub):
		loc, err := e.tokenTransferAssetLocation(tc)
		if err != nil {
			return nil, err
		}
		call.Section = "transferMultiasset"
		call.Parameters = models.Params{
			{Name: "asset", Value: xcm.NewVersionedAsset(v, xcm.Fungible(loc, tc.intent.Amount))},
			{Name: "dest", Value: xcm.NewVersionedLocation(v, dest)},
		}

	default:
		currency, err := currencySelector(origin, tc)
		if err != nil {
			return nil, err
		}
		call.Section = "transfer"
		call.Parameters = models.Params{
			{Name: "currency_id", Value: currency},
			{Name: "amount", Value: json.Number(tc.intent.Amount)},
			{Name: "dest", Value: xcm.NewVersionedLocation(v, dest)},
		}
	}

	call.Parameters = append(call.Parameters, tokenTransferWeight(route))
	return call, nil
}

func (e *Engine) tokenPallet(origin *registry.Chain) string {
	if p, ok := e.tables.DefaultPallet(origin.ID); ok && isTokenPallet(p) {
		return p
	}
	if origin.TokenPallet != "" {
		return origin.TokenPallet
	}
	return "XTokens"
}

func isTokenPallet(p string) bool {
	return strings.EqualFold(p, "XTokens") || strings.EqualFold(p, "OrmlXTokens")
}

// lowerFirst turns a pallet name into its module name, XTokens -> xTokens
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func (e *Engine) tokenTransferDestination(tc *transferContext) xcm.MultiLocation {
	route := tc.route
	switch {
	case route.DestLocation != nil:
		// the dest carries the recipient, unlike the xcm pallet's beneficiary
		return xcm.LocationWithAccount(*route.DestLocation, tc.account)
	case route.Scenario == models.ScenarioParaToRelay:
		return xcm.RelayAccountLocation(tc.account)
	default:
		return xcm.SiblingAccountLocation(route.Destination.ParaID, tc.account)
	}
}

// tokenTransferAssetLocation is the asset location for transferMultiasset
func (e *Engine) tokenTransferAssetLocation(tc *transferContext) (xcm.MultiLocation, error) {
	res := tc.asset
	if res.Override != nil {
		return *res.Override, nil
	}

	hub := tc.route.Destination
	if res.RelayNative {
		return xcm.MultiLocation{}, models.NewInvalidCurrencyError(tc.route.Origin.ID,
			"%s can not be sent to %s through %s", res.Symbol(), hub.ID, e.tokenPallet(tc.route.Origin)).
			WithHint("send the relay asset through the relay chain or the xcm pallet")
	}
	// the table location already points at the hub's assets pallet
	if loc := res.Asset.Location; loc != nil && len(loc.Interior) > 0 &&
		loc.Interior[0] == xcm.Parachain(hub.ParaID) {
		return *loc, nil
	}
	if res.Asset.AssetID == "" {
		return xcm.MultiLocation{}, models.NewInvalidCurrencyError(tc.route.Origin.ID,
			"%s has no %s asset id", res.Symbol(), hub.ID)
	}
	return xcm.AssetHubAssetLocation(hub.ParaID, res.Asset.AssetID), nil
}

// tokenTransferWeight is an Unlimited weight limit from V3 on and a fixed
// weight before
func tokenTransferWeight(route *Route) models.Param {
	if route.Version >= xcm.V3 {
		return models.Param{Name: "dest_weight_limit", Value: xcm.Unlimited}
	}
	if route.Scenario == models.ScenarioParaToRelay {
		return models.Param{Name: "dest_weight", Value: legacyWeightToRelay}
	}
	return models.Param{Name: "dest_weight", Value: legacyWeightToPara}
}

// currencySelector builds the currency argument the way the origin's token
// pallet expects it
func currencySelector(origin *registry.Chain, tc *transferContext) (any, error) {
	res := tc.asset
	symbol := res.Asset.Symbol
	id := res.Asset.AssetID

	switch origin.Selector {
	case registry.SelectorSymbol:
		if res.Native || id == "" {
			if symbol == "" {
				return nil, models.NewInvalidCurrencyError(origin.ID, "asset %s has no symbol", id)
			}
			return map[string]any{"Token": strings.ToUpper(symbol)}, nil
		}
		return foreignCurrency(origin, id), nil

	case registry.SelectorAssetID:
		if res.Native {
			if origin.NativeID == "" {
				return nil, models.NewInvalidCurrencyError(origin.ID, "the native asset can not be sent with the token pallet").
					WithHint("use the xcm pallet")
			}
			return idValue(origin.NativeID), nil
		}
		if id == "" {
			return nil, models.NewInvalidCurrencyError(origin.ID, "asset %s has no asset id", symbol)
		}
		return foreignCurrency(origin, id), nil

	case registry.SelectorKeyword:
		if res.Native {
			return origin.NativeKeyword, nil
		}
		if id == "" {
			return nil, models.NewInvalidCurrencyError(origin.ID, "asset %s has no asset id", symbol)
		}
		return foreignCurrency(origin, id), nil

	case registry.SelectorBifrost:
		switch {
		case res.Native:
			return map[string]any{"Native": strings.ToUpper(symbol)}, nil
		case id != "":
			return map[string]any{"Token2": idValue(id)}, nil
		default:
			return map[string]any{"Token": strings.ToUpper(symbol)}, nil
		}

	default:
		return nil, models.NewNodeNotSupportedError(origin.ID, "unknown currency selector %d", origin.Selector)
	}
}

// foreignCurrency wraps an id in the chain's foreign asset key, if any
func foreignCurrency(origin *registry.Chain, id string) any {
	if origin.ForeignKey == "" {
		return idValue(id)
	}
	return map[string]any{origin.ForeignKey: idValue(id)}
}

// idValue keeps numeric ids as JSON numbers without going through a float
func idValue(id string) any {
	id = strings.ReplaceAll(id, ",", "")
	if id == "" {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	return json.Number(id)
}

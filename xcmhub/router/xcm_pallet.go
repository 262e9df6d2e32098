package router

import (
	"strings"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

const (
	sectionTeleport        = "limited_teleport_assets"
	sectionReserveTransfer = "reserve_transfer_assets"
	sectionLimitedReserve  = "limited_reserve_transfer_assets"
	sectionTransferAssets  = "transfer_assets"
	relayXcmModule         = "XcmPallet"
	parachainXcmModule     = "PolkadotXcm"
)

// xcmSection picks the xcm pallet section. Relay chains teleport to their
// system chains and reserve transfer to everything else.
func xcmSection(route *Route) string {
	if route.Scenario != models.ScenarioRelayToPara {
		return route.Origin.XcmSection(route.Scenario)
	}
	if route.Destination != nil && route.Destination.System {
		return sectionTeleport
	}
	return sectionReserveTransfer
}

func xcmModule(tc *transferContext) string {
	if tc.route.Origin.IsRelay() {
		return relayXcmModule
	}
	return parachainXcmModule
}

// xcmPalletTransfer emits a polkadotXcm / xcmPallet call
func (e *Engine) xcmPalletTransfer(tc *transferContext, section string) (*models.SerializedCall, error) {
	route := tc.route
	v := route.Version

	var assetList []xcm.Asset
	feeItem := uint32(0)
	if tc.isMultiAsset() {
		for _, m := range tc.multi {
			assetList = append(assetList, xcm.Fungible(m.Location, m.Amount))
		}
		feeItem = uint32(tc.feeItem)
	} else {
		loc, err := e.xcmAssetLocation(tc)
		if err != nil {
			return nil, err
		}
		assetList = []xcm.Asset{xcm.Fungible(loc, tc.intent.Amount)}
	}

	params := models.Params{
		{Name: "dest", Value: xcm.NewVersionedLocation(v, xcmDestination(route))},
		{Name: "beneficiary", Value: xcm.NewVersionedLocation(v, xcm.AccountLocation(tc.account))},
		{Name: "assets", Value: xcm.NewVersionedAssets(v, assetList...)},
		{Name: "fee_asset_item", Value: feeItem},
	}
	if strings.HasPrefix(section, "limited_") || section == sectionTransferAssets {
		params = append(params, models.Param{Name: "weight_limit", Value: xcm.Unlimited})
	}
	return &models.SerializedCall{Module: xcmModule(tc), Section: section, Parameters: params}, nil
}

func xcmDestination(route *Route) xcm.MultiLocation {
	switch {
	case route.DestLocation != nil:
		return *route.DestLocation
	case route.Scenario == models.ScenarioRelayToPara:
		return xcm.ParachainLocation(0, route.Destination.ParaID)
	case route.Scenario == models.ScenarioParaToRelay:
		return xcm.RelayLocation()
	default:
		return xcm.ParachainLocation(1, route.Destination.ParaID)
	}
}

// xcmAssetLocation locates the asset as seen from the origin chain
func (e *Engine) xcmAssetLocation(tc *transferContext) (xcm.MultiLocation, error) {
	res := tc.asset
	origin := tc.route.Origin

	switch {
	case res.Override != nil:
		return *res.Override, nil
	case origin.IsRelay():
		if !res.Native {
			return xcm.MultiLocation{}, models.NewInvalidCurrencyError(origin.ID, "relay chains only transfer their native asset")
		}
		return xcm.Here(0), nil
	case res.RelayNative:
		return xcm.RelayLocation(), nil
	case res.Native:
		if ov, ok := e.overrides[origin.ID]; ok && ov.nativeLocation != nil {
			return *ov.nativeLocation, nil
		}
		return xcm.Here(0), nil
	case res.Asset.Location != nil:
		return *res.Asset.Location, nil
	case origin.AssetHub && res.Asset.AssetID != "":
		return xcm.LocalAssetLocation(xcm.AssetsPalletInstance, res.Asset.AssetID), nil
	default:
		return xcm.MultiLocation{}, models.NewInvalidCurrencyError(origin.ID,
			"no location is known for asset %s", describeAsset(tc))
	}
}

func describeAsset(tc *transferContext) string {
	if tc.asset.Asset.Symbol != "" {
		return tc.asset.Asset.Symbol
	}
	return "id:" + tc.asset.Asset.AssetID
}

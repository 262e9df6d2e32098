package router

import (
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// override adjusts dispatch for chains whose runtimes do not follow the
// generic rules
type override struct {
	// dispatch replaces the pallet selection entirely
	dispatch func(e *Engine, tc *transferContext) (*models.SerializedCall, error)
	// skipTokenTransfer sends matching transfers to the next pallet
	skipTokenTransfer func(tc *transferContext) bool
	// nativeLocation is where the xcm pallet finds the native asset
	nativeLocation *xcm.MultiLocation
}

func defaultOverrides() map[string]override {
	balances := xcm.MustLocation(0, xcm.PalletInstance(5))
	evmNative := override{nativeLocation: &balances}
	nativeViaXcm := override{skipTokenTransfer: func(tc *transferContext) bool {
		return !tc.isMultiAsset() && tc.asset.Native
	}}
	hub := override{dispatch: assetHubTransfer}

	return map[string]override{
		"AssetHubPolkadot": hub,
		"AssetHubKusama":   hub,
		"Darwinia":         evmNative,
		"Crab":             evmNative,
		"Astar":            nativeViaXcm,
		"Shiden":           nativeViaXcm,
	}
}

// assetHubTransfer teleports the relay asset to the relay and to system
// chains and reserve transfers everything else
func assetHubTransfer(e *Engine, tc *transferContext) (*models.SerializedCall, error) {
	route := tc.route
	section := sectionLimitedReserve
	switch {
	case route.Scenario == models.ScenarioParaToRelay:
		section = sectionTeleport
	case tc.isMultiAsset():
	case route.Destination != nil && route.Destination.System && tc.asset.RelayNative:
		section = sectionTeleport
	}
	return e.xcmPalletTransfer(tc, section)
}

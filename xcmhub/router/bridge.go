package router

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/assets"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// bridgeAsset resolves and validates the single asset of a bridge transfer
func (e *Engine) bridgeAsset(route *Route, intent models.TransferIntent) (*assets.Resolved, error) {
	if intent.Currency.IsMultiAsset() {
		return nil, models.NewInvalidCurrencyError(route.Origin.ID, "multi-asset currencies can not be bridged")
	}
	if err := assets.ValidateAmount(intent.Amount, false); err != nil {
		return nil, err
	}
	if intent.FeeAsset != nil {
		return nil, models.NewInvalidParameterError("fee asset index is only used with multi-asset currencies")
	}
	return e.resolver.Resolve(route.Origin, intent.Currency)
}

// buildRelayPairBridge moves a relay native asset between the AssetHubs of the
// two relay networks
func (e *Engine) buildRelayPairBridge(route *Route, intent models.TransferIntent) (*models.SerializedCall, error) {
	res, err := e.bridgeAsset(route, intent)
	if err != nil {
		return nil, err
	}
	account, err := e.substrateAccount(route.Destination.ID, intent.Address)
	if err != nil {
		return nil, err
	}

	destNetwork := route.Destination.Relay.Network()
	destRelaySymbol := e.tables.RelaySymbol(route.Destination.ID)

	var assetLoc xcm.MultiLocation
	switch {
	case res.RelayNative:
		assetLoc = xcm.RelayLocation()
	case destRelaySymbol != "" && strings.EqualFold(res.Asset.Symbol, destRelaySymbol):
		assetLoc = xcm.BridgedRelayLocation(destNetwork)
	default:
		return nil, models.NewInvalidCurrencyError(route.Origin.ID,
			"%s can not be bridged to %s", res.Asset.Symbol, route.Destination.ID).
			WithHint("only the native assets of the two relay networks are bridged")
	}

	v := route.Version
	log.Debug().
		Str("origin", route.Origin.ID).
		Str("destination", route.Destination.ID).
		Str("asset", res.Asset.Symbol).
		Msg("Building relay pair bridge transfer")
	return &models.SerializedCall{
		Module:  parachainXcmModule,
		Section: sectionLimitedReserve,
		Parameters: models.Params{
			{Name: "dest", Value: xcm.NewVersionedLocation(v, xcm.BridgedParachainLocation(destNetwork, route.Destination.ParaID))},
			{Name: "beneficiary", Value: xcm.NewVersionedLocation(v, xcm.AccountLocation(account))},
			{Name: "assets", Value: xcm.NewVersionedAssets(v, xcm.Fungible(assetLoc, intent.Amount))},
			{Name: "fee_asset_item", Value: uint32(0)},
			{Name: "weight_limit", Value: xcm.Unlimited},
		},
	}, nil
}

// buildExternalBridge sends an ERC-20 backed asset to an external consensus
// system such as Ethereum
func (e *Engine) buildExternalBridge(route *Route, intent models.TransferIntent) (*models.SerializedCall, error) {
	origin, dest := route.Origin, route.Destination
	if !origin.CanBridgeTo(dest.ID) {
		return nil, models.NewIncompatibleNodesError("%s can not bridge to %s", origin.ID, dest.ID).
			WithHint("bridged transfers leave from the AssetHub")
	}
	if !common.IsHexAddress(intent.Address) {
		return nil, models.NewInvalidAddressError(dest.ID, "%s expects a 20 byte address, got %s", dest.ID, intent.Address)
	}
	if intent.Currency.IsMultiAsset() {
		return nil, models.NewInvalidCurrencyError(origin.ID, "multi-asset currencies can not be bridged")
	}
	if err := assets.ValidateAmount(intent.Amount, false); err != nil {
		return nil, err
	}
	if err := assets.ValidateCurrencySpec(intent.Currency); err != nil {
		return nil, err
	}

	// the currency must be one of the bridgeable assets held for the external chain
	var res *assets.Resolved
	var err error
	switch {
	case intent.Currency.Symbol != nil:
		res, err = e.resolver.FindBySymbol(dest.ID, *intent.Currency.Symbol)
	case intent.Currency.ID != "":
		res, err = e.resolver.FindByID(dest.ID, intent.Currency.ID)
	default:
		err = models.NewInvalidCurrencyError(origin.ID, "bridged currencies are given by symbol or contract address")
	}
	if err != nil {
		return nil, err
	}
	contract := res.Asset.AssetID
	if !common.IsHexAddress(contract) {
		return nil, models.NewInvalidCurrencyError(dest.ID, "%s is not a bridgeable token", res.Asset.Symbol)
	}
	if origin.AssetCheckEnabled && !e.tables.HasSupportForAsset(origin.ID, res.Asset.Symbol) {
		return nil, models.NewInvalidCurrencyError(origin.ID, "%s is not held on %s", res.Asset.Symbol, origin.ID)
	}

	v := route.Version
	network := xcm.EthereumNetwork(dest.EthereumChainID)
	destLoc := xcm.MustLocation(2, xcm.GlobalConsensus(network))
	assetLoc := xcm.EthereumAssetLocation(dest.EthereumChainID, strings.ToLower(contract))

	log.Debug().
		Str("origin", origin.ID).
		Str("destination", dest.ID).
		Str("asset", res.Asset.Symbol).
		Msg("Building external bridge transfer")
	return &models.SerializedCall{
		Module:  parachainXcmModule,
		Section: sectionTransferAssets,
		Parameters: models.Params{
			{Name: "dest", Value: xcm.NewVersionedLocation(v, destLoc)},
			{Name: "beneficiary", Value: xcm.NewVersionedLocation(v, xcm.AccountLocation(evmAccount(intent.Address)))},
			{Name: "assets", Value: xcm.NewVersionedAssets(v, xcm.Fungible(assetLoc, intent.Amount))},
			{Name: "fee_asset_item", Value: uint32(0)},
			{Name: "weight_limit", Value: xcm.Unlimited},
		},
	}, nil
}

package router

import (
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// xTransfer emits an XTransfer.transfer call. The pallet takes unversioned V3
// shaped arguments and a fixed weight per destination.
func (e *Engine) xTransfer(tc *transferContext) (*models.SerializedCall, error) {
	route := tc.route
	origin := route.Origin

	weight, err := xTransferWeight(route)
	if err != nil {
		return nil, err
	}
	if tc.isMultiAsset() || !tc.asset.Native {
		return nil, models.NewInvalidCurrencyError(origin.ID, "xTransfer only transfers the native asset")
	}

	asset, err := xcm.Fungible(xcm.Here(0), tc.intent.Amount).Encode(xcm.V3)
	if err != nil {
		return nil, models.NewInvalidParameterError("invalid asset").WithCause(err)
	}
	dest, err := xcm.SiblingAccountLocation(route.Destination.ParaID, tc.account).Encode(xcm.V3)
	if err != nil {
		return nil, models.NewInvalidParameterError("invalid destination").WithCause(err)
	}

	return &models.SerializedCall{
		Module:  "XTransfer",
		Section: "transfer",
		Parameters: models.Params{
			{Name: "asset", Value: asset},
			{Name: "dest", Value: dest},
			{Name: "dest_weight", Value: weight},
		},
	}, nil
}

func xTransferOnly(c *registry.Chain) bool {
	return c.Supports(registry.CapBridgeTransfer) &&
		!c.Supports(registry.CapTokenTransfer) && !c.Supports(registry.CapXcmPallet)
}

// xTransferWeight returns the fixed weight for the destination; chains without
// one can not be reached
func xTransferWeight(route *Route) (uint64, error) {
	if route.Destination == nil {
		return 0, models.NewNodeNotSupportedError(route.Origin.ID, "xTransfer needs a known destination chain")
	}
	weight, ok := route.Origin.XTransferWeights[route.Destination.ID]
	if !ok {
		return 0, models.NewNodeNotSupportedError(route.Destination.ID,
			"%s can not reach this chain through xTransfer", route.Origin.ID)
	}
	return weight, nil
}

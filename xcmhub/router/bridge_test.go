package router_test

import (
	"errors"
	"testing"

	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

const ethereumConsensus = `{"GlobalConsensus":{"Ethereum":{"chainId":1}}}`

func TestRelayPairBridge(t *testing.T) {
	tr := build(t, intent("AssetHubPolkadot", "AssetHubKusama", models.Symbol("KSM"), "1000"))

	assert.Equal(t, tr.Route.Bridge, models.BridgeRelayPair)
	assert.Equal(t, tr.Route.Version, xcm.V4)
	assert.Equal(t, tr.Call.String(), "PolkadotXcm.limited_reserve_transfer_assets")
	assert.Equal(t, tr.Call.Parameters.Names(), []string{"dest", "beneficiary", "assets", "fee_asset_item", "weight_limit"})
	assert.Equal(t, param(t, tr.Call, "dest"),
		`{"V4":{"parents":2,"interior":{"X2":[{"GlobalConsensus":"Kusama"},{"Parachain":1000}]}}}`)
	assert.Equal(t, param(t, tr.Call, "beneficiary"),
		`{"V4":{"parents":0,"interior":{"X1":[`+aliceJunction+`]}}}`)
	assert.Equal(t, param(t, tr.Call, "assets"),
		`{"V4":[{"id":{"parents":2,"interior":{"X1":[{"GlobalConsensus":"Kusama"}]}},"fun":{"Fungible":"1000"}}]}`)
	assert.Equal(t, param(t, tr.Call, "weight_limit"), `"Unlimited"`)

	// the sending side's own relay asset
	tr = build(t, intent("AssetHubPolkadot", "AssetHubKusama", models.Symbol("DOT"), "1000"))
	assert.Equal(t, param(t, tr.Call, "assets"),
		`{"V4":[{"id":{"parents":1,"interior":"Here"},"fun":{"Fungible":"1000"}}]}`)

	tr = build(t, intent("AssetHubKusama", "AssetHubPolkadot", models.Symbol("DOT"), "1000"))
	assert.Equal(t, param(t, tr.Call, "assets"),
		`{"V4":[{"id":{"parents":2,"interior":{"X1":[{"GlobalConsensus":"Polkadot"}]}},"fun":{"Fungible":"1000"}}]}`)
}

func TestRelayPairBridge_Errors(t *testing.T) {
	err := buildErr(t, intent("AssetHubPolkadot", "AssetHubKusama", models.Symbol("USDT"), "1000"))
	assert.True(t, errors.Is(err, models.ErrInvalidCurrency))

	err = buildErr(t, intent("AssetHubPolkadot", "AssetHubKusama", models.Symbol("KSM"), "0"))
	assert.True(t, errors.Is(err, models.ErrInvalidParameter))

	i := intent("AssetHubPolkadot", "AssetHubKusama", models.MultiAssets(
		models.MultiAssetEntry{Location: xcm.RelayLocation(), Amount: "1"}), "")
	assert.True(t, errors.Is(buildErr(t, i), models.ErrInvalidCurrency))

	i = intent("AssetHubPolkadot", "AssetHubKusama", models.Symbol("KSM"), "1000")
	i.Address = evmAddr
	assert.True(t, errors.Is(buildErr(t, i), models.ErrInvalidAddress))
}

func TestExternalBridge(t *testing.T) {
	i := intent("AssetHubPolkadot", "Ethereum", models.Symbol("WETH"), "1000")
	i.Address = evmAddr
	tr := build(t, i)

	assert.Equal(t, tr.Route.Bridge, models.BridgeExternal)
	assert.Equal(t, tr.Call.String(), "PolkadotXcm.transfer_assets")
	assert.Equal(t, param(t, tr.Call, "dest"),
		`{"V4":{"parents":2,"interior":{"X1":[`+ethereumConsensus+`]}}}`)
	assert.Equal(t, param(t, tr.Call, "beneficiary"),
		`{"V4":{"parents":0,"interior":{"X1":[{"AccountKey20":{"network":null,"key":"`+evmAddr+`"}}]}}}`)
	assert.Equal(t, param(t, tr.Call, "assets"),
		`{"V4":[{"id":{"parents":2,"interior":{"X2":[`+ethereumConsensus+
			`,{"AccountKey20":{"network":null,"key":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"}}]}},"fun":{"Fungible":"1000"}}]}`)
	assert.Equal(t, param(t, tr.Call, "fee_asset_item"), `0`)

	// contract addresses work as ids
	i.Currency = models.AssetID("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	tr = build(t, i)
	assert.Equal(t, param(t, tr.Call, "assets"),
		`{"V4":[{"id":{"parents":2,"interior":{"X2":[`+ethereumConsensus+
			`,{"AccountKey20":{"network":null,"key":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"}}]}},"fun":{"Fungible":"1000"}}]}`)
}

func TestExternalBridge_Errors(t *testing.T) {
	cases := []struct {
		name     string
		from     string
		currency models.CurrencySpec
		address  string
		err      error
	}{
		{"not a bridge hub", "Hydration", models.Symbol("WETH"), evmAddr, models.ErrIncompatibleNodes},
		{"other family", "AssetHubKusama", models.Symbol("WETH"), evmAddr, models.ErrIncompatibleNodes},
		{"substrate address", "AssetHubPolkadot", models.Symbol("WETH"), aliceSS58, models.ErrInvalidAddress},
		{"native ether", "AssetHubPolkadot", models.Symbol("ETH"), evmAddr, models.ErrInvalidCurrency},
		{"unknown token", "AssetHubPolkadot", models.Symbol("DOT"), evmAddr, models.ErrInvalidCurrency},
		{"location currency", "AssetHubPolkadot", models.LocationOverride(xcm.RelayLocation()), evmAddr, models.ErrInvalidCurrency},
		{"multi-asset", "AssetHubPolkadot", models.MultiAssets(
			models.MultiAssetEntry{Location: xcm.RelayLocation(), Amount: "1"}), evmAddr, models.ErrInvalidCurrency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount := "1000"
			if tc.currency.IsMultiAsset() {
				amount = ""
			}
			i := intent(tc.from, "Ethereum", tc.currency, amount)
			i.Address = tc.address
			assert.True(t, errors.Is(buildErr(t, i), tc.err))
		})
	}
}

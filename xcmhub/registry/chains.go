package registry

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

const (
	sectionTeleport       = "limited_teleport_assets"
	sectionLimitedReserve = "limited_reserve_transfer_assets"
	sectionReserve        = "reserve_transfer_assets"
)

type chainOption func(*Chain)

func relay(id string, family RelayFamily) Chain {
	return Chain{
		ID:                id,
		Kind:              KindRelay,
		Relay:             family,
		Version:           xcm.V3,
		Capabilities:      Caps(CapXcmPallet),
		AssetCheckEnabled: true,
	}
}

func external(id string, ethereumChainID uint64) Chain {
	return Chain{
		ID:                id,
		Kind:              KindExternal,
		Version:           xcm.LatestVersion,
		AssetCheckEnabled: true,
		EVM:               true,
		EthereumChainID:   ethereumChainID,
	}
}

func para(id string, family RelayFamily, paraID uint32, caps CapabilitySet, opts ...chainOption) Chain {
	c := Chain{
		ID:                id,
		Kind:              KindParachain,
		Relay:             family,
		ParaID:            paraID,
		Version:           xcm.V3,
		Capabilities:      caps,
		AssetCheckEnabled: true,
		TokenPallet:       "XTokens",
		ForeignKey:        "ForeignAsset",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func version(v xcm.Version) chainOption { return func(c *Chain) { c.Version = v } }
func evm() chainOption { return func(c *Chain) { c.EVM = true } }
func noAssetCheck() chainOption { return func(c *Chain) { c.AssetCheckEnabled = false } }
func tokenPallet(p string) chainOption { return func(c *Chain) { c.TokenPallet = p } }
func foreignKey(k string) chainOption { return func(c *Chain) { c.ForeignKey = k } }

func system() chainOption {
	return func(c *Chain) { c.System = true }
}

func assetHub() chainOption {
	return func(c *Chain) {
		c.System = true
		c.AssetHub = true
	}
}

func selector(s CurrencySelector) chainOption {
	return func(c *Chain) { c.Selector = s }
}

func assetIDs(nativeID string) chainOption {
	return func(c *Chain) {
		c.Selector = SelectorAssetID
		c.NativeID = nativeID
		c.ForeignKey = ""
	}
}

func keyword(k string) chainOption {
	return func(c *Chain) {
		c.Selector = SelectorKeyword
		c.NativeKeyword = k
	}
}

func sections(toRelay, toPara string) chainOption {
	return func(c *Chain) {
		c.XcmSections = map[models.Scenario]string{
			models.ScenarioParaToRelay: toRelay,
			models.ScenarioParaToPara:  toPara,
		}
	}
}

func unsupported(s models.Scenario, hint string) chainOption {
	return func(c *Chain) {
		if c.Unsupported == nil {
			c.Unsupported = map[models.Scenario]string{}
		}
		c.Unsupported[s] = hint
	}
}

func xtransferWeights(w map[string]uint64) chainOption {
	return func(c *Chain) { c.XTransferWeights = w }
}

func bridgeTargets(targets ...string) chainOption {
	return func(c *Chain) { c.BridgeTargets = targets }
}

var (
	tokens    = Caps(CapTokenTransfer)
	xcmPallet = Caps(CapXcmPallet)
	both      = Caps(CapTokenTransfer, CapXcmPallet)
	xtransfer = Caps(CapBridgeTransfer)
)

func defaultChains() []Chain {
	const (
		dot = RelayPolkadot
		ksm = RelayKusama
	)
	noRelay := func(name string) chainOption {
		return unsupported(models.ScenarioParaToRelay,
			fmt.Sprintf("%s cannot send to the relay chain, send to AssetHub instead", name))
	}

	return []Chain{
		relay("Polkadot", dot),
		para("AssetHubPolkadot", dot, 1000, xcmPallet, assetHub(),
			sections(sectionTeleport, sectionLimitedReserve), bridgeTargets("Ethereum")),
		para("Collectives", dot, 1001, xcmPallet, system(), sections(sectionTeleport, sectionTeleport)),
		para("BridgeHubPolkadot", dot, 1002, xcmPallet, system(), noAssetCheck(),
			sections(sectionTeleport, sectionTeleport)),
		para("Acala", dot, 2000, tokens, selector(SelectorSymbol)),
		para("Moonbeam", dot, 2004, tokens, evm(), keyword("SelfReserve")),
		para("Astar", dot, 2006, both, assetIDs("")),
		para("Crust", dot, 2008, tokens, keyword("SelfReserve"), foreignKey("OtherReserve")),
		para("Parallel", dot, 2012, tokens, assetIDs("1")),
		para("ComposableFinance", dot, 2019, tokens, assetIDs("1")),
		para("Nodle", dot, 2026, tokens, keyword("NodleNative")),
		para("BifrostPolkadot", dot, 2030, tokens, selector(SelectorBifrost)),
		para("Centrifuge", dot, 2031, tokens, keyword("Native"), tokenPallet("OrmlXTokens")),
		para("Interlay", dot, 2032, tokens, selector(SelectorSymbol)),
		para("Hydration", dot, 2034, tokens, assetIDs("0")),
		para("Phala", dot, 2035, xtransfer, noRelay("Phala"),
			xtransferWeights(map[string]uint64{
				"Acala":     6_000_000_000,
				"Astar":     6_000_000_000,
				"Moonbeam":  5_000_000_000,
				"Hydration": 5_000_000_000,
			})),
		para("Unique", dot, 2037, tokens, assetIDs("0"), foreignKey("ForeignAssetId")),
		para("Darwinia", dot, 2046, xcmPallet, evm(), noRelay("Darwinia")),
		para("Zeitgeist", dot, 2092, tokens, keyword("Ztg")),
		para("Pendulum", dot, 2094, tokens, keyword("Native"), foreignKey("XCM")),
		para("Manta", dot, 2104, tokens, assetIDs("1"), foreignKey("MantaCurrency")),
		para("Mythos", dot, 3369, xcmPallet, evm(), version(xcm.V4),
			sections("", sectionLimitedReserve), noRelay("Mythos")),
		external("Ethereum", 1),

		relay("Kusama", ksm),
		para("AssetHubKusama", ksm, 1000, xcmPallet, assetHub(), sections(sectionTeleport, sectionLimitedReserve)),
		para("Encointer", ksm, 1001, xcmPallet, system(), sections(sectionTeleport, sectionTeleport)),
		para("BridgeHubKusama", ksm, 1002, xcmPallet, system(), noAssetCheck(),
			sections(sectionTeleport, sectionTeleport)),
		para("Karura", ksm, 2000, tokens, selector(SelectorSymbol)),
		para("BifrostKusama", ksm, 2001, tokens, selector(SelectorBifrost)),
		para("Khala", ksm, 2004, xtransfer, noRelay("Khala"),
			xtransferWeights(map[string]uint64{
				"Karura":        6_000_000_000,
				"Moonriver":     5_000_000_000,
				"BifrostKusama": 5_000_000_000,
				"Basilisk":      5_000_000_000,
			})),
		para("Shiden", ksm, 2007, both, assetIDs("")),
		para("Moonriver", ksm, 2023, tokens, evm(), keyword("SelfReserve")),
		para("Robonomics", ksm, 2048, xcmPallet, version(xcm.V1), sections("", sectionReserve)),
		para("Calamari", ksm, 2084, tokens, assetIDs("1"), foreignKey("MantaCurrency")),
		para("Picasso", ksm, 2087, tokens, assetIDs("1")),
		para("Altair", ksm, 2088, tokens, keyword("Native"), tokenPallet("OrmlXTokens")),
		para("Basilisk", ksm, 2090, tokens, assetIDs("0")),
		para("Kintsugi", ksm, 2092, tokens, selector(SelectorSymbol)),
		para("Quartz", ksm, 2095, tokens, assetIDs("0"), foreignKey("ForeignAssetId"), version(xcm.V2)),
		para("Crab", ksm, 2105, xcmPallet, evm(), noRelay("Crab")),
		para("Turing", ksm, 2114, tokens, assetIDs("0")),
	}
}

// DefaultChains returns a fresh copy of the built-in chain table
func DefaultChains() []Chain {
	return defaultChains()
}

// Default builds the registry from the built-in chain table
func Default() *Registry {
	r, err := New(defaultChains())
	if err != nil {
		panic(fmt.Sprintf("invalid built-in chain table: %v", err))
	}
	return r
}

package registry_test

import (
	"testing"

	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

var syntheticChains = []registry.Chain{
	{ID: "RelayA", Kind: registry.KindRelay, Relay: registry.RelayPolkadot, Version: xcm.V3},
	{ID: "ParaA", Relay: registry.RelayPolkadot, ParaID: 2000, Version: xcm.V3,
		Capabilities: registry.Caps(registry.CapTokenTransfer)},
	{ID: "HubA", Relay: registry.RelayPolkadot, ParaID: 1000, Version: xcm.V4, AssetHub: true, System: true,
		Capabilities: registry.Caps(registry.CapXcmPallet)},
}

func TestNew_Lookup(t *testing.T) {
	reg, err := registry.New(syntheticChains)
	assert.NoError(t, err)
	assert.Equal(t, reg.Len(), 3)

	c, ok := reg.Get("paraa")
	assert.True(t, ok)
	assert.Equal(t, c.ID, "ParaA")
	assert.Equal(t, c.Name, "ParaA")

	relay, ok := reg.Relay(registry.RelayPolkadot)
	assert.True(t, ok)
	assert.Equal(t, relay.ID, "RelayA")

	hub, ok := reg.AssetHub(registry.RelayPolkadot)
	assert.True(t, ok)
	assert.Equal(t, hub.ID, "HubA")

	_, ok = reg.AssetHub(registry.RelayKusama)
	assert.False(t, ok)

	_, ok = reg.Get("Unknown")
	assert.False(t, ok)
}

func TestNew_RejectsInvalidTables(t *testing.T) {
	cases := map[string][]registry.Chain{
		"duplicate id": {
			{ID: "A", Relay: registry.RelayKusama, ParaID: 1, Version: xcm.V3},
			{ID: "a", Relay: registry.RelayKusama, ParaID: 2, Version: xcm.V3},
		},
		"missing version": {{ID: "A", Relay: registry.RelayKusama, ParaID: 1}},
		"missing para id": {{ID: "A", Relay: registry.RelayKusama, Version: xcm.V3}},
		"unknown relay":   {{ID: "A", Relay: "westend", ParaID: 1, Version: xcm.V3}},
		"external without chain id": {
			{ID: "Eth", Kind: registry.KindExternal, Version: xcm.V4},
		},
		"two relays": {
			{ID: "R1", Kind: registry.KindRelay, Relay: registry.RelayKusama, Version: xcm.V3},
			{ID: "R2", Kind: registry.KindRelay, Relay: registry.RelayKusama, Version: xcm.V3},
		},
	}
	for name, chains := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := registry.New(chains)
			assert.Error(t, err)
		})
	}
}

func TestDefault_Table(t *testing.T) {
	reg := registry.Default()

	for _, family := range []registry.RelayFamily{registry.RelayPolkadot, registry.RelayKusama} {
		_, ok := reg.Relay(family)
		assert.True(t, ok)
		hub, ok := reg.AssetHub(family)
		assert.True(t, ok)
		assert.Equal(t, hub.ParaID, uint32(1000))
	}

	seen := map[string]uint32{}
	for _, c := range reg.Chains() {
		if c.Kind != registry.KindParachain {
			continue
		}
		assert.False(t, c.Capabilities.Empty())
		key := string(c.Relay) + "/" + c.Name
		_, dup := seen[key]
		assert.False(t, dup)
		seen[key] = c.ParaID
	}

	eth := reg.MustGet("Ethereum")
	assert.True(t, eth.IsExternal())
	assert.Equal(t, eth.EthereumChainID, uint64(1))
	assert.True(t, reg.MustGet("AssetHubPolkadot").CanBridgeTo("ethereum"))
	assert.False(t, reg.MustGet("AssetHubKusama").CanBridgeTo("Ethereum"))

	assert.False(t, reg.MustGet("BridgeHubPolkadot").AssetCheckEnabled)
	assert.True(t, reg.MustGet("Astar").Supports(registry.CapTokenTransfer))
	assert.True(t, reg.MustGet("Astar").Supports(registry.CapXcmPallet))
	assert.True(t, reg.MustGet("Phala").Supports(registry.CapBridgeTransfer))
	assert.Equal(t, reg.MustGet("Robonomics").Version, xcm.V1)
}

func TestChain_XcmSection(t *testing.T) {
	reg := registry.Default()

	hub := reg.MustGet("AssetHubKusama")
	assert.Equal(t, hub.XcmSection(models.ScenarioParaToRelay), "limited_teleport_assets")
	assert.Equal(t, hub.XcmSection(models.ScenarioParaToPara), "limited_reserve_transfer_assets")

	astar := reg.MustGet("Astar")
	assert.Equal(t, astar.XcmSection(models.ScenarioParaToRelay), "reserve_withdraw_assets")
	assert.Equal(t, astar.XcmSection(models.ScenarioParaToPara), "reserve_transfer_assets")

	hint, ok := reg.MustGet("Phala").ScenarioHint(models.ScenarioParaToRelay)
	assert.True(t, ok)
	assert.True(t, hint != "")
	_, ok = reg.MustGet("Phala").ScenarioHint(models.ScenarioParaToPara)
	assert.False(t, ok)
}

func TestCapabilitySet(t *testing.T) {
	s := registry.Caps(registry.CapXcmPallet, registry.CapBridgeTransfer)
	assert.True(t, s.Has(registry.CapXcmPallet))
	assert.False(t, s.Has(registry.CapTokenTransfer))
	assert.Equal(t, len(s.Names()), 2)
	assert.True(t, registry.Caps().Empty())

	c, err := registry.ParseCapability("polkadotXcm")
	assert.NoError(t, err)
	assert.Equal(t, c, registry.CapXcmPallet)
	_, err = registry.ParseCapability("teleporter")
	assert.Error(t, err)
}

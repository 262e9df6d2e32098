package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// RelayFamily is the relay network a chain belongs to
type RelayFamily string

const (
	RelayPolkadot RelayFamily = "polkadot"
	RelayKusama   RelayFamily = "kusama"
)

// Network returns the consensus network id of the relay family
func (f RelayFamily) Network() xcm.NetworkID {
	switch f {
	case RelayPolkadot:
		return xcm.NetworkPolkadot
	case RelayKusama:
		return xcm.NetworkKusama
	default:
		return xcm.NetworkID{}
	}
}

type Kind uint8

const (
	KindParachain Kind = iota
	KindRelay
	KindExternal // another consensus system reached through a bridge
)

func (k Kind) String() string {
	switch k {
	case KindRelay:
		return "relay"
	case KindExternal:
		return "external"
	default:
		return "parachain"
	}
}

// Capability is a transfer pallet exposed by a chain runtime
type Capability uint8

const (
	CapTokenTransfer  Capability = 1 << iota // orml xTokens
	CapXcmPallet                             // polkadotXcm
	CapBridgeTransfer                        // xTransfer
)

// CapabilitySet is a bit set of capabilities
type CapabilitySet uint8

func Caps(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

func (s CapabilitySet) Empty() bool {
	return s == 0
}

func (s CapabilitySet) Names() []string {
	names := []string{}
	if s.Has(CapTokenTransfer) {
		names = append(names, "TokenTransfer")
	}
	if s.Has(CapXcmPallet) {
		names = append(names, "XcmPalletTransfer")
	}
	if s.Has(CapBridgeTransfer) {
		names = append(names, "BridgeTransfer")
	}
	return names
}

// CurrencySelector is how a token-transfer pallet expects the currency argument
type CurrencySelector uint8

const (
	// {Token: SYMBOL} for native and symbol assets, {<ForeignKey>: id} for foreign ones
	SelectorSymbol CurrencySelector = iota
	// raw asset id, the native asset uses NativeID
	SelectorAssetID
	// NativeKeyword for the native asset, {<ForeignKey>: id} otherwise
	SelectorKeyword
	// {Native: SYMBOL} for the native asset, {Token2: id} or {Token: SYMBOL} otherwise
	SelectorBifrost
)

// ParseKind parses "parachain", "relay" or "external"
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "parachain":
		return KindParachain, nil
	case "relay":
		return KindRelay, nil
	case "external":
		return KindExternal, nil
	default:
		return 0, fmt.Errorf("unknown chain kind %q", s)
	}
}

// ParseCapability parses a capability name as returned by CapabilitySet.Names
func ParseCapability(s string) (Capability, error) {
	switch strings.ToLower(s) {
	case "tokentransfer", "xtokens":
		return CapTokenTransfer, nil
	case "xcmpallettransfer", "polkadotxcm":
		return CapXcmPallet, nil
	case "bridgetransfer", "xtransfer":
		return CapBridgeTransfer, nil
	default:
		return 0, fmt.Errorf("unknown capability %q", s)
	}
}

// ParseSelector parses "symbol", "asset_id", "keyword" or "bifrost"
func ParseSelector(s string) (CurrencySelector, error) {
	switch strings.ToLower(s) {
	case "", "symbol":
		return SelectorSymbol, nil
	case "asset_id":
		return SelectorAssetID, nil
	case "keyword":
		return SelectorKeyword, nil
	case "bifrost":
		return SelectorBifrost, nil
	default:
		return 0, fmt.Errorf("unknown currency selector %q", s)
	}
}

// Chain is one entry of the capability registry. Entries are never mutated
// after the registry is built.
type Chain struct {
	ID     string
	Name   string
	Kind   Kind
	Relay  RelayFamily
	ParaID uint32

	Version           xcm.Version
	Capabilities      CapabilitySet
	AssetCheckEnabled bool

	EVM      bool // accounts are 20 byte keys
	System   bool // system parachain, teleport-trusted by its relay
	AssetHub bool // hosts the relay's asset registry

	// token-transfer pallet settings
	TokenPallet   string
	Selector      CurrencySelector
	NativeKeyword string
	NativeID      string
	ForeignKey    string

	// XcmSections picks the xcm pallet section per scenario
	XcmSections map[models.Scenario]string
	// Unsupported maps a scenario to the hint returned when it is requested
	Unsupported map[models.Scenario]string
	// XTransferWeights is the fixed destination weight per destination chain
	XTransferWeights map[string]uint64
	// BridgeTargets lists external consensus chains reachable from this chain
	BridgeTargets []string

	EthereumChainID uint64
}

func (c *Chain) IsRelay() bool {
	return c.Kind == KindRelay
}

func (c *Chain) IsExternal() bool {
	return c.Kind == KindExternal
}

func (c *Chain) Supports(capability Capability) bool {
	return c.Capabilities.Has(capability)
}

// XcmSection returns the xcm pallet section for the scenario, falling back to
// reserve based transfers
func (c *Chain) XcmSection(s models.Scenario) string {
	if section, ok := c.XcmSections[s]; ok && section != "" {
		return section
	}
	if s == models.ScenarioParaToRelay {
		return "reserve_withdraw_assets"
	}
	return "reserve_transfer_assets"
}

// ScenarioHint reports whether the scenario is unsupported and the remediation hint
func (c *Chain) ScenarioHint(s models.Scenario) (string, bool) {
	hint, ok := c.Unsupported[s]
	return hint, ok
}

// CanBridgeTo reports whether an external consensus chain is reachable directly
func (c *Chain) CanBridgeTo(target string) bool {
	for _, t := range c.BridgeTargets {
		if strings.EqualFold(t, target) {
			return true
		}
	}
	return false
}

func (c *Chain) validate() error {
	if c.ID == "" {
		return fmt.Errorf("chain id is required")
	}
	if !c.Version.Valid() {
		return fmt.Errorf("chain %s: unsupported xcm version %d", c.ID, c.Version)
	}
	switch c.Kind {
	case KindParachain:
		if c.Relay != RelayPolkadot && c.Relay != RelayKusama {
			return fmt.Errorf("chain %s: unknown relay family %q", c.ID, c.Relay)
		}
		if c.ParaID == 0 {
			return fmt.Errorf("chain %s: parachain id is required", c.ID)
		}
	case KindRelay:
		if c.Relay != RelayPolkadot && c.Relay != RelayKusama {
			return fmt.Errorf("chain %s: unknown relay family %q", c.ID, c.Relay)
		}
	case KindExternal:
		if c.EthereumChainID == 0 {
			return fmt.Errorf("chain %s: external chain needs an ethereum chain id", c.ID)
		}
	default:
		return fmt.Errorf("chain %s: unknown kind %d", c.ID, c.Kind)
	}
	return nil
}

// Registry is the immutable chain table. Build it once and pass it around.
type Registry struct {
	chains map[string]*Chain // lowercase id -> chain
	order  []string
	relays map[RelayFamily]*Chain
	hubs   map[RelayFamily]*Chain
}

// New builds a registry from chain definitions. Ids are matched case-insensitively.
func New(chains []Chain) (*Registry, error) {
	r := &Registry{
		chains: make(map[string]*Chain, len(chains)),
		relays: make(map[RelayFamily]*Chain),
		hubs:   make(map[RelayFamily]*Chain),
	}
	for i := range chains {
		c := chains[i]
		if err := c.validate(); err != nil {
			return nil, err
		}
		if c.Name == "" {
			c.Name = c.ID
		}
		key := strings.ToLower(c.ID)
		if _, exists := r.chains[key]; exists {
			return nil, fmt.Errorf("duplicate chain id %s", c.ID)
		}
		r.chains[key] = &c
		r.order = append(r.order, c.ID)

		if c.IsRelay() {
			if _, exists := r.relays[c.Relay]; exists {
				return nil, fmt.Errorf("duplicate relay chain for %s", c.Relay)
			}
			r.relays[c.Relay] = &c
		}
		if c.AssetHub {
			r.hubs[c.Relay] = &c
		}
	}
	return r, nil
}

// Get returns the chain with the given id
func (r *Registry) Get(id string) (*Chain, bool) {
	c, ok := r.chains[strings.ToLower(id)]
	return c, ok
}

// MustGet is Get for ids known at compile time
func (r *Registry) MustGet(id string) *Chain {
	c, ok := r.Get(id)
	if !ok {
		panic(fmt.Sprintf("unknown chain %s", id))
	}
	return c
}

// Relay returns the relay chain of a family
func (r *Registry) Relay(f RelayFamily) (*Chain, bool) {
	c, ok := r.relays[f]
	return c, ok
}

// AssetHub returns the AssetHub of a family
func (r *Registry) AssetHub(f RelayFamily) (*Chain, bool) {
	c, ok := r.hubs[f]
	return c, ok
}

// Chains returns every chain in definition order
func (r *Registry) Chains() []*Chain {
	out := make([]*Chain, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.chains[strings.ToLower(id)])
	}
	return out
}

// ByRelay returns the chains of a family sorted by para id, relay first
func (r *Registry) ByRelay(f RelayFamily) []*Chain {
	var out []*Chain
	for _, c := range r.Chains() {
		if c.Relay == f {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ParaID < out[j].ParaID
	})
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

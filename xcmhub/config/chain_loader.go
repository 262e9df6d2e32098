package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// ChainFile is the on-disk chain overlay
type ChainFile struct {
	Chains []ChainEntry `toml:"chains" json:"chains"`
}

// ChainEntry describes one chain. Unset fields take the registry defaults of a
// plain parachain.
type ChainEntry struct {
	ID     string `toml:"id" json:"id"`
	Name   string `toml:"name" json:"name"`
	Kind   string `toml:"kind" json:"kind"` // parachain, relay, external
	Relay  string `toml:"relay" json:"relay"`
	ParaID uint32 `toml:"para_id" json:"paraId"`

	Version      string   `toml:"version" json:"version"`
	Capabilities []string `toml:"capabilities" json:"capabilities"`
	AssetCheck   *bool    `toml:"asset_check" json:"assetCheck"`

	EVM      bool `toml:"evm" json:"evm"`
	System   bool `toml:"system" json:"system"`
	AssetHub bool `toml:"asset_hub" json:"assetHub"`

	TokenPallet   string `toml:"token_pallet" json:"tokenPallet"`
	Selector      string `toml:"selector" json:"selector"`
	NativeKeyword string `toml:"native_keyword" json:"nativeKeyword"`
	NativeID      string `toml:"native_id" json:"nativeId"`
	ForeignKey    string `toml:"foreign_key" json:"foreignKey"`

	XcmSections      map[string]string `toml:"xcm_sections" json:"xcmSections"`
	Unsupported      map[string]string `toml:"unsupported" json:"unsupported"`
	XTransferWeights map[string]uint64 `toml:"xtransfer_weights" json:"xtransferWeights"`
	BridgeTargets    []string          `toml:"bridge_targets" json:"bridgeTargets"`

	EthereumChainID uint64 `toml:"ethereum_chain_id" json:"ethereumChainId"`
}

// ChainConfigLoader loads chain overlays and converts them to registry chains
type ChainConfigLoader struct{}

func NewChainConfigLoader() *ChainConfigLoader {
	return &ChainConfigLoader{}
}

// LoadFromFile reads a toml overlay, or json when the file ends in .json
func (l *ChainConfigLoader) LoadFromFile(filePath string) ([]registry.Chain, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain config file: %w", err)
	}

	var file ChainFile
	if strings.HasSuffix(filePath, ".json") {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	return l.ConvertToRegistryTypes(&file)
}

// ConvertToRegistryTypes converts overlay entries to registry chains
func (l *ChainConfigLoader) ConvertToRegistryTypes(file *ChainFile) ([]registry.Chain, error) {
	if file == nil || len(file.Chains) == 0 {
		return nil, fmt.Errorf("no chains in config")
	}

	chains := make([]registry.Chain, len(file.Chains))
	for i, entry := range file.Chains {
		chain, err := entry.toChain()
		if err != nil {
			return nil, fmt.Errorf("chain entry %d: %w", i, err)
		}
		chains[i] = chain
	}
	return chains, nil
}

func (e ChainEntry) toChain() (registry.Chain, error) {
	if e.ID == "" {
		return registry.Chain{}, fmt.Errorf("id is required")
	}
	kind, err := registry.ParseKind(e.Kind)
	if err != nil {
		return registry.Chain{}, err
	}
	c := registry.Chain{
		ID:                e.ID,
		Name:              e.Name,
		Kind:              kind,
		Relay:             registry.RelayFamily(strings.ToLower(e.Relay)),
		ParaID:            e.ParaID,
		Version:           xcm.V3,
		AssetCheckEnabled: true,
		EVM:               e.EVM,
		System:            e.System,
		AssetHub:          e.AssetHub,
		TokenPallet:       e.TokenPallet,
		NativeKeyword:     e.NativeKeyword,
		NativeID:          e.NativeID,
		ForeignKey:        e.ForeignKey,
		XTransferWeights:  e.XTransferWeights,
		BridgeTargets:     e.BridgeTargets,
		EthereumChainID:   e.EthereumChainID,
	}
	if kind == registry.KindParachain {
		if c.TokenPallet == "" {
			c.TokenPallet = "XTokens"
		}
		if c.ForeignKey == "" {
			c.ForeignKey = "ForeignAsset"
		}
	}
	if e.AssetCheck != nil {
		c.AssetCheckEnabled = *e.AssetCheck
	}
	if e.Version != "" {
		if c.Version, err = xcm.ParseVersion(e.Version); err != nil {
			return registry.Chain{}, fmt.Errorf("chain %s: %w", e.ID, err)
		}
	}
	for _, name := range e.Capabilities {
		capability, err := registry.ParseCapability(name)
		if err != nil {
			return registry.Chain{}, fmt.Errorf("chain %s: %w", e.ID, err)
		}
		c.Capabilities |= registry.Caps(capability)
	}
	if c.Selector, err = registry.ParseSelector(e.Selector); err != nil {
		return registry.Chain{}, fmt.Errorf("chain %s: %w", e.ID, err)
	}
	if c.XcmSections, err = scenarioMap(e.XcmSections); err != nil {
		return registry.Chain{}, fmt.Errorf("chain %s xcm_sections: %w", e.ID, err)
	}
	if c.Unsupported, err = scenarioMap(e.Unsupported); err != nil {
		return registry.Chain{}, fmt.Errorf("chain %s unsupported: %w", e.ID, err)
	}
	return c, nil
}

func scenarioMap(in map[string]string) (map[models.Scenario]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[models.Scenario]string, len(in))
	for key, value := range in {
		s := models.Scenario(key)
		switch s {
		case models.ScenarioRelayToPara, models.ScenarioParaToRelay, models.ScenarioParaToPara:
			out[s] = value
		default:
			return nil, fmt.Errorf("unknown scenario %q", key)
		}
	}
	return out, nil
}

// MergeIntoDefaults replaces built-in chains with overlay entries of the same
// id, appends the rest and builds the registry
func (l *ChainConfigLoader) MergeIntoDefaults(overlay []registry.Chain) (*registry.Registry, error) {
	chains := registry.DefaultChains()
	index := make(map[string]int, len(chains))
	for i, c := range chains {
		index[strings.ToLower(c.ID)] = i
	}
	replaced := 0
	for _, c := range overlay {
		if i, ok := index[strings.ToLower(c.ID)]; ok {
			chains[i] = c
			replaced++
			continue
		}
		index[strings.ToLower(c.ID)] = len(chains)
		chains = append(chains, c)
	}

	reg, err := registry.New(chains)
	if err != nil {
		return nil, fmt.Errorf("failed to build chain registry: %w", err)
	}
	log.Info().
		Int("replaced", replaced).
		Int("added", len(overlay)-replaced).
		Int("chains", reg.Len()).
		Msg("Chain overlay merged")
	return reg, nil
}

// LoadRegistry builds the registry from the built-in table and an optional overlay file
func (l *ChainConfigLoader) LoadRegistry(filePath string) (*registry.Registry, error) {
	if filePath == "" {
		return registry.Default(), nil
	}
	overlay, err := l.LoadFromFile(filePath)
	if err != nil {
		return nil, err
	}
	return l.MergeIntoDefaults(overlay)
}

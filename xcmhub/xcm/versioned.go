package xcm

import (
	"encoding/json"
	"fmt"
)

// VersionedLocation is a location tagged with the version it is encoded for,
// written as {"V3": {...}}.
type VersionedLocation struct {
	Version  Version
	Location MultiLocation
}

// VersionedAssets is an asset list tagged with its version.
type VersionedAssets struct {
	Version Version
	Assets  []Asset
}

// VersionedAsset is a single asset tagged with its version.
type VersionedAsset struct {
	Version Version
	Asset   Asset
}

func NewVersionedLocation(v Version, loc MultiLocation) VersionedLocation {
	return VersionedLocation{Version: v, Location: loc}
}

func NewVersionedAssets(v Version, assets ...Asset) VersionedAssets {
	return VersionedAssets{Version: v, Assets: assets}
}

func NewVersionedAsset(v Version, asset Asset) VersionedAsset {
	return VersionedAsset{Version: v, Asset: asset}
}

func (vl VersionedLocation) MarshalJSON() ([]byte, error) {
	e, err := vl.Location.Encode(vl.Version)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{vl.Version.String(): e})
}

func (vl *VersionedLocation) UnmarshalJSON(b []byte) error {
	v, payload, err := splitVersion(b)
	if err != nil {
		return err
	}
	loc, err := DecodeLocation(v, payload)
	if err != nil {
		return err
	}
	*vl = VersionedLocation{Version: v, Location: loc}
	return nil
}

func (va VersionedAssets) MarshalJSON() ([]byte, error) {
	encoded := make([]any, len(va.Assets))
	for i, a := range va.Assets {
		e, err := a.Encode(va.Version)
		if err != nil {
			return nil, fmt.Errorf("asset %d: %w", i, err)
		}
		encoded[i] = e
	}
	return json.Marshal(map[string]any{va.Version.String(): encoded})
}

func (va *VersionedAssets) UnmarshalJSON(b []byte) error {
	v, payload, err := splitVersion(b)
	if err != nil {
		return err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return fmt.Errorf("assets must be a list: %w", err)
	}
	assets := make([]Asset, len(items))
	for i, item := range items {
		a, err := decodeAsset(item, v)
		if err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
		assets[i] = a
	}
	*va = VersionedAssets{Version: v, Assets: assets}
	return nil
}

func (va VersionedAsset) MarshalJSON() ([]byte, error) {
	e, err := va.Asset.Encode(va.Version)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{va.Version.String(): e})
}

func (va *VersionedAsset) UnmarshalJSON(b []byte) error {
	v, payload, err := splitVersion(b)
	if err != nil {
		return err
	}
	a, err := decodeAsset(payload, v)
	if err != nil {
		return err
	}
	*va = VersionedAsset{Version: v, Asset: a}
	return nil
}

func splitVersion(b []byte) (Version, json.RawMessage, error) {
	key, payload, err := singleKey(b)
	if err != nil {
		return 0, nil, fmt.Errorf("versioned value must have a single version key: %w", err)
	}
	v, err := ParseVersion(key)
	if err != nil {
		return 0, nil, err
	}
	return v, payload, nil
}

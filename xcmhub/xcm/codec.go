package xcm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// encodedLocation is the wire shape shared by every version.
type encodedLocation struct {
	Parents  uint8 `json:"parents"`
	Interior any   `json:"interior"`
}

type encodedAccount32 struct {
	Network any    `json:"network"`
	ID      string `json:"id"`
}

type encodedAccount20 struct {
	Network any    `json:"network"`
	Key     string `json:"key"`
}

type encodedGeneralKey struct {
	Length uint8  `json:"length"`
	Data   string `json:"data"`
}

type encodedPlurality struct {
	ID   string `json:"id"`
	Part string `json:"part"`
}

type encodedEthereum struct {
	ChainID uint64 `json:"chainId"`
}

type encodedFungible struct {
	Fungible string `json:"Fungible"`
}

type encodedAsset struct {
	ID  any             `json:"id"`
	Fun encodedFungible `json:"fun"`
}

// Encode returns the JSON-ready form of the location for version v.
func (l MultiLocation) Encode(v Version) (any, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("unsupported xcm version %d", v)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	interior, err := encodeInterior(l.Interior, v)
	if err != nil {
		return nil, err
	}
	return encodedLocation{Parents: l.Parents, Interior: interior}, nil
}

func encodeInterior(js Junctions, v Version) (any, error) {
	if len(js) == 0 {
		return "Here", nil
	}
	encoded := make([]any, len(js))
	for i, j := range js {
		e, err := encodeJunction(j, v)
		if err != nil {
			return nil, fmt.Errorf("junction %d: %w", i, err)
		}
		encoded[i] = e
	}
	tag := "X" + strconv.Itoa(len(js))
	// only the newest version wraps a single junction in a list
	if len(js) == 1 && v < V4 {
		return map[string]any{tag: encoded[0]}, nil
	}
	return map[string]any{tag: encoded}, nil
}

func encodeJunction(j Junction, v Version) (any, error) {
	switch j.Kind {
	case JunctionParachain:
		return map[string]any{string(j.Kind): j.Parachain}, nil
	case JunctionAccountID32:
		network, err := encodeNetwork(j.Network, v)
		if err != nil {
			return nil, err
		}
		return map[string]any{string(j.Kind): encodedAccount32{Network: network, ID: j.Account}}, nil
	case JunctionAccountKey20:
		network, err := encodeNetwork(j.Network, v)
		if err != nil {
			return nil, err
		}
		return map[string]any{string(j.Kind): encodedAccount20{Network: network, Key: j.Account}}, nil
	case JunctionPalletInstance:
		return map[string]any{string(j.Kind): j.PalletInstance}, nil
	case JunctionGeneralIndex:
		return map[string]any{string(j.Kind): json.Number(j.Index)}, nil
	case JunctionGeneralKey:
		if v < V3 {
			return map[string]any{string(j.Kind): j.Key}, nil
		}
		data, err := padKey(j.Key)
		if err != nil {
			return nil, err
		}
		length := j.KeyLength
		if length == 0 {
			length = uint8((len(j.Key) - 2) / 2)
		}
		return map[string]any{string(j.Kind): encodedGeneralKey{Length: length, Data: data}}, nil
	case JunctionGlobalConsensus:
		if v < V3 {
			return nil, fmt.Errorf("GlobalConsensus is not available in %s", v)
		}
		network, err := encodeNetwork(j.Network, v)
		if err != nil {
			return nil, err
		}
		return map[string]any{string(j.Kind): network}, nil
	case JunctionOnlyChild:
		return string(j.Kind), nil
	case JunctionPlurality:
		return map[string]any{string(j.Kind): encodedPlurality{ID: j.BodyID, Part: j.BodyPart}}, nil
	default:
		return nil, fmt.Errorf("unknown junction kind %q", j.Kind)
	}
}

func encodeNetwork(n NetworkID, v Version) (any, error) {
	switch v {
	case V1, V2:
		switch {
		case n.IsZero():
			return "Any", nil
		case n == NetworkPolkadot || n == NetworkKusama:
			return n.Name, nil
		default:
			return nil, fmt.Errorf("network %s is not representable in %s", n, v)
		}
	case V3, V4:
		switch {
		case n.IsZero():
			return nil, nil
		case n.IsEthereum():
			return map[string]any{ethereumNetworkName: encodedEthereum{ChainID: n.ChainID}}, nil
		default:
			return n.Name, nil
		}
	default:
		return nil, fmt.Errorf("unsupported xcm version %d", v)
	}
}

func padKey(key string) (string, error) {
	b, err := hexutil.Decode(key)
	if err != nil {
		return "", fmt.Errorf("invalid general key: %w", err)
	}
	if len(b) > 32 {
		return "", fmt.Errorf("general key longer than 32 bytes")
	}
	padded := make([]byte, 32)
	copy(padded, b)
	return hexutil.Encode(padded), nil
}

// Encode returns the JSON-ready form of the asset for version v.
func (a Asset) Encode(v Version) (any, error) {
	loc, err := a.Location.Encode(v)
	if err != nil {
		return nil, err
	}
	if err := checkUnsigned(a.Amount); err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	var id any = loc
	if v < V4 {
		id = map[string]any{"Concrete": loc}
	}
	return encodedAsset{ID: id, Fun: encodedFungible{Fungible: a.Amount}}, nil
}

// MarshalJSON writes the unversioned form using the newest layout.
func (l MultiLocation) MarshalJSON() ([]byte, error) {
	e, err := l.Encode(LatestVersion)
	if err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// UnmarshalJSON reads an unversioned location. Both the bare and the list
// form of X1 are accepted.
func (l *MultiLocation) UnmarshalJSON(b []byte) error {
	loc, err := decodeLocation(b, LatestVersion, false)
	if err != nil {
		return err
	}
	*l = loc
	return nil
}

// DecodeLocation parses a location encoded for version v. The X1 layout must
// match the version.
func DecodeLocation(v Version, raw []byte) (MultiLocation, error) {
	if !v.Valid() {
		return MultiLocation{}, fmt.Errorf("unsupported xcm version %d", v)
	}
	return decodeLocation(raw, v, true)
}

func decodeLocation(raw []byte, v Version, strict bool) (MultiLocation, error) {
	var wire struct {
		Parents  *uint8          `json:"parents"`
		Interior json.RawMessage `json:"interior"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return MultiLocation{}, fmt.Errorf("failed to decode location: %w", err)
	}
	if wire.Parents == nil {
		return MultiLocation{}, fmt.Errorf("location is missing parents")
	}
	interior, err := decodeInterior(wire.Interior, v, strict)
	if err != nil {
		return MultiLocation{}, err
	}
	loc := MultiLocation{Parents: *wire.Parents, Interior: interior}
	if err := loc.Validate(); err != nil {
		return MultiLocation{}, err
	}
	return loc, nil
}

func decodeInterior(raw json.RawMessage, v Version, strict bool) (Junctions, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("location is missing interior")
	}
	var tag string
	if err := json.Unmarshal(raw, &tag); err == nil {
		if tag != "Here" {
			return nil, fmt.Errorf("unknown interior %q", tag)
		}
		return nil, nil
	}

	key, value, err := singleKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid interior: %w", err)
	}
	if key == "Here" {
		return nil, nil
	}
	if !strings.HasPrefix(key, "X") {
		return nil, fmt.Errorf("unknown interior %q", key)
	}
	n, err := strconv.Atoi(key[1:])
	if err != nil || n < 1 || n > MaxJunctions {
		return nil, fmt.Errorf("unknown interior %q", key)
	}

	value = bytes.TrimSpace(value)
	var items []json.RawMessage
	if len(value) > 0 && value[0] == '[' {
		if strict && n == 1 && v < V4 {
			return nil, fmt.Errorf("X1 must hold a bare junction in %s", v)
		}
		if err := json.Unmarshal(value, &items); err != nil {
			return nil, fmt.Errorf("invalid %s tuple: %w", key, err)
		}
	} else {
		if n != 1 {
			return nil, fmt.Errorf("%s must hold a tuple", key)
		}
		if strict && v >= V4 {
			return nil, fmt.Errorf("X1 must hold a one element list in %s", v)
		}
		items = []json.RawMessage{value}
	}
	if len(items) != n {
		return nil, fmt.Errorf("%s holds %d junctions", key, len(items))
	}

	junctions := make(Junctions, n)
	for i, item := range items {
		j, err := decodeJunction(item, v)
		if err != nil {
			return nil, fmt.Errorf("junction %d: %w", i, err)
		}
		junctions[i] = j
	}
	return junctions, nil
}

func decodeJunction(raw json.RawMessage, v Version) (Junction, error) {
	var tag string
	if err := json.Unmarshal(raw, &tag); err == nil {
		if tag != string(JunctionOnlyChild) {
			return Junction{}, fmt.Errorf("unknown junction %q", tag)
		}
		return OnlyChild(), nil
	}

	key, value, err := singleKey(raw)
	if err != nil {
		return Junction{}, err
	}
	switch JunctionKind(key) {
	case JunctionParachain:
		var id uint32
		if err := json.Unmarshal(value, &id); err != nil {
			return Junction{}, fmt.Errorf("invalid parachain id: %w", err)
		}
		return Parachain(id), nil
	case JunctionAccountID32:
		var acc struct {
			Network json.RawMessage `json:"network"`
			ID      string          `json:"id"`
		}
		if err := json.Unmarshal(value, &acc); err != nil {
			return Junction{}, fmt.Errorf("invalid AccountId32: %w", err)
		}
		network, err := decodeNetwork(acc.Network)
		if err != nil {
			return Junction{}, err
		}
		return AccountID32(acc.ID).WithNetwork(network), nil
	case JunctionAccountKey20:
		var acc struct {
			Network json.RawMessage `json:"network"`
			Key     string          `json:"key"`
		}
		if err := json.Unmarshal(value, &acc); err != nil {
			return Junction{}, fmt.Errorf("invalid AccountKey20: %w", err)
		}
		network, err := decodeNetwork(acc.Network)
		if err != nil {
			return Junction{}, err
		}
		return AccountKey20(acc.Key).WithNetwork(network), nil
	case JunctionPalletInstance:
		var idx uint8
		if err := json.Unmarshal(value, &idx); err != nil {
			return Junction{}, fmt.Errorf("invalid pallet instance: %w", err)
		}
		return PalletInstance(idx), nil
	case JunctionGeneralIndex:
		idx, err := decodeIndex(value)
		if err != nil {
			return Junction{}, err
		}
		return GeneralIndex(idx), nil
	case JunctionGeneralKey:
		var data string
		if err := json.Unmarshal(value, &data); err == nil {
			return GeneralKey(0, data), nil
		}
		var gk encodedGeneralKey
		if err := json.Unmarshal(value, &gk); err != nil {
			return Junction{}, fmt.Errorf("invalid general key: %w", err)
		}
		return GeneralKey(gk.Length, gk.Data), nil
	case JunctionGlobalConsensus:
		if v < V3 {
			return Junction{}, fmt.Errorf("GlobalConsensus is not available in %s", v)
		}
		network, err := decodeNetwork(value)
		if err != nil {
			return Junction{}, err
		}
		return GlobalConsensus(network), nil
	case JunctionPlurality:
		var p encodedPlurality
		if err := json.Unmarshal(value, &p); err != nil {
			return Junction{}, fmt.Errorf("invalid plurality: %w", err)
		}
		return Plurality(p.ID, p.Part), nil
	default:
		return Junction{}, fmt.Errorf("unknown junction %q", key)
	}
}

func decodeNetwork(raw json.RawMessage) (NetworkID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NetworkID{}, nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name == "Any" {
			return NetworkID{}, nil
		}
		return NetworkID{Name: name}, nil
	}
	key, value, err := singleKey(raw)
	if err != nil {
		return NetworkID{}, fmt.Errorf("invalid network: %w", err)
	}
	if key == ethereumNetworkName {
		var eth encodedEthereum
		if err := json.Unmarshal(value, &eth); err != nil {
			return NetworkID{}, fmt.Errorf("invalid ethereum network: %w", err)
		}
		return EthereumNetwork(eth.ChainID), nil
	}
	// {"Polkadot": null} style
	return NetworkID{Name: key}, nil
}

func decodeIndex(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("invalid general index: %w", err)
	}
	var idx string
	switch t := v.(type) {
	case json.Number:
		idx = t.String()
	case string:
		idx = strings.ReplaceAll(t, ",", "")
	default:
		return "", fmt.Errorf("invalid general index %s", string(raw))
	}
	if err := checkUnsigned(idx); err != nil {
		return "", fmt.Errorf("invalid general index: %w", err)
	}
	return idx, nil
}

func singleKey(raw json.RawMessage) (string, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil, err
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("expected exactly one key, got %d", len(obj))
	}
	for k, v := range obj {
		return k, v, nil
	}
	return "", nil, nil
}

func decodeAsset(raw json.RawMessage, v Version) (Asset, error) {
	var wire struct {
		ID  json.RawMessage `json:"id"`
		Fun struct {
			Fungible json.RawMessage `json:"Fungible"`
		} `json:"fun"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Asset{}, fmt.Errorf("failed to decode asset: %w", err)
	}
	id := wire.ID
	if v < V4 {
		key, value, err := singleKey(wire.ID)
		if err != nil || key != "Concrete" {
			return Asset{}, fmt.Errorf("asset id must be Concrete in %s", v)
		}
		id = value
	}
	loc, err := decodeLocation(id, v, true)
	if err != nil {
		return Asset{}, err
	}
	if len(wire.Fun.Fungible) == 0 {
		return Asset{}, fmt.Errorf("asset is not fungible")
	}
	amount, err := decodeIndex(wire.Fun.Fungible)
	if err != nil {
		return Asset{}, fmt.Errorf("invalid amount: %w", err)
	}
	return Asset{Location: loc, Amount: amount}, nil
}

// MarshalJSON writes "Unlimited" or {"Limited": {...}}.
func (w WeightLimit) MarshalJSON() ([]byte, error) {
	if !w.Limited {
		return json.Marshal("Unlimited")
	}
	return json.Marshal(map[string]any{
		"Limited": map[string]uint64{"ref_time": w.RefTime, "proof_size": w.ProofSize},
	})
}

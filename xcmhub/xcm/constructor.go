package xcm

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

func Parachain(id uint32) Junction {
	return Junction{Kind: JunctionParachain, Parachain: id}
}

// AccountID32 builds an AccountId32 junction from a 0x-prefixed 32 byte hex id.
func AccountID32(id string) Junction {
	return Junction{Kind: JunctionAccountID32, Account: strings.ToLower(id)}
}

// AccountKey20 builds an AccountKey20 junction from a 0x-prefixed 20 byte hex key.
func AccountKey20(key string) Junction {
	return Junction{Kind: JunctionAccountKey20, Account: strings.ToLower(key)}
}

func PalletInstance(index uint8) Junction {
	return Junction{Kind: JunctionPalletInstance, PalletInstance: index}
}

func GeneralIndex(index string) Junction {
	return Junction{Kind: JunctionGeneralIndex, Index: index}
}

func GeneralKey(length uint8, data string) Junction {
	return Junction{Kind: JunctionGeneralKey, KeyLength: length, Key: strings.ToLower(data)}
}

func GlobalConsensus(network NetworkID) Junction {
	return Junction{Kind: JunctionGlobalConsensus, Network: network}
}

func OnlyChild() Junction {
	return Junction{Kind: JunctionOnlyChild}
}

func Plurality(bodyID, bodyPart string) Junction {
	return Junction{Kind: JunctionPlurality, BodyID: bodyID, BodyPart: bodyPart}
}

// WithNetwork returns a copy of an account junction qualified by network.
func (j Junction) WithNetwork(network NetworkID) Junction {
	j.Network = network
	return j
}

// NewLocation builds a location and checks it against the structural rules.
func NewLocation(parents uint8, junctions ...Junction) (MultiLocation, error) {
	loc := MultiLocation{Parents: parents, Interior: append(Junctions(nil), junctions...)}
	if err := loc.Validate(); err != nil {
		return MultiLocation{}, err
	}
	return loc, nil
}

// MustLocation is NewLocation for statically known shapes.
func MustLocation(parents uint8, junctions ...Junction) MultiLocation {
	loc, err := NewLocation(parents, junctions...)
	if err != nil {
		panic(err)
	}
	return loc
}

// Validate checks parents, interior arity and every junction payload.
func (l MultiLocation) Validate() error {
	if l.Parents > 2 {
		return fmt.Errorf("parents must be 0, 1 or 2, got %d", l.Parents)
	}
	if len(l.Interior) > MaxJunctions {
		return fmt.Errorf("interior has %d junctions, max is %d", len(l.Interior), MaxJunctions)
	}
	for i, j := range l.Interior {
		if err := j.Validate(); err != nil {
			return fmt.Errorf("junction %d: %w", i, err)
		}
	}
	return nil
}

func (j Junction) Validate() error {
	switch j.Kind {
	case JunctionParachain, JunctionPalletInstance, JunctionOnlyChild:
		return nil
	case JunctionAccountID32:
		return checkHexLen(j.Account, 32)
	case JunctionAccountKey20:
		return checkHexLen(j.Account, 20)
	case JunctionGeneralIndex:
		return checkUnsigned(j.Index)
	case JunctionGeneralKey:
		b, err := hexutil.Decode(j.Key)
		if err != nil {
			return fmt.Errorf("invalid general key: %w", err)
		}
		if len(b) > 32 || int(j.KeyLength) > 32 {
			return fmt.Errorf("general key longer than 32 bytes")
		}
		return nil
	case JunctionGlobalConsensus:
		if j.Network.IsZero() {
			return fmt.Errorf("global consensus requires a network")
		}
		return nil
	case JunctionPlurality:
		if j.BodyID == "" || j.BodyPart == "" {
			return fmt.Errorf("plurality requires body id and part")
		}
		return nil
	default:
		return fmt.Errorf("unknown junction kind %q", j.Kind)
	}
}

// NewAsset pairs a location with a fungible amount.
func NewAsset(location MultiLocation, amount string) (Asset, error) {
	if err := location.Validate(); err != nil {
		return Asset{}, err
	}
	if err := checkUnsigned(amount); err != nil {
		return Asset{}, fmt.Errorf("invalid amount: %w", err)
	}
	return Asset{Location: location, Amount: amount}, nil
}

func checkHexLen(s string, n int) error {
	b, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid hex %q: %w", s, err)
	}
	if len(b) != n {
		return fmt.Errorf("expected %d bytes, got %d", n, len(b))
	}
	return nil
}

func checkUnsigned(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	if !d.IsInteger() || d.IsNegative() || d.String() != s {
		return fmt.Errorf("%q is not an unsigned integer", s)
	}
	return nil
}

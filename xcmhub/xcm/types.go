package xcm

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is the XCM protocol version a location or asset is encoded for.
type Version uint8

const (
	V1 Version = iota + 1
	V2
	V3
	V4
)

// LatestVersion is the newest protocol version the codec can produce.
const LatestVersion = V4

// MaxJunctions is the largest interior arity (X8).
const MaxJunctions = 8

// AllVersions lists every supported version in ascending order.
var AllVersions = []Version{V1, V2, V3, V4}

func (v Version) String() string {
	return "V" + strconv.Itoa(int(v))
}

func (v Version) Valid() bool {
	return v >= V1 && v <= LatestVersion
}

// ParseVersion accepts "V3", "v3" or "3".
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "V"), "v")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid xcm version %q", s)
	}
	v := Version(n)
	if !v.Valid() {
		return 0, fmt.Errorf("unsupported xcm version %q", s)
	}
	return v, nil
}

func (v Version) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("unsupported xcm version %d", v)
	}
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// JunctionKind names the variant held by a Junction.
type JunctionKind string

const (
	JunctionParachain       JunctionKind = "Parachain"
	JunctionAccountID32     JunctionKind = "AccountId32"
	JunctionAccountKey20    JunctionKind = "AccountKey20"
	JunctionPalletInstance  JunctionKind = "PalletInstance"
	JunctionGeneralIndex    JunctionKind = "GeneralIndex"
	JunctionGeneralKey      JunctionKind = "GeneralKey"
	JunctionGlobalConsensus JunctionKind = "GlobalConsensus"
	JunctionOnlyChild       JunctionKind = "OnlyChild"
	JunctionPlurality       JunctionKind = "Plurality"
)

// NetworkID identifies a consensus system. The zero value is "any network".
type NetworkID struct {
	Name    string
	ChainID uint64 // set only for Ethereum
}

var (
	NetworkPolkadot = NetworkID{Name: "Polkadot"}
	NetworkKusama   = NetworkID{Name: "Kusama"}
	NetworkWestend  = NetworkID{Name: "Westend"}
	NetworkRococo   = NetworkID{Name: "Rococo"}
)

const ethereumNetworkName = "Ethereum"

// EthereumNetwork returns the network id of an Ethereum chain.
func EthereumNetwork(chainID uint64) NetworkID {
	return NetworkID{Name: ethereumNetworkName, ChainID: chainID}
}

func (n NetworkID) IsZero() bool {
	return n.Name == ""
}

func (n NetworkID) IsEthereum() bool {
	return n.Name == ethereumNetworkName
}

func (n NetworkID) String() string {
	if n.IsEthereum() {
		return fmt.Sprintf("Ethereum(%d)", n.ChainID)
	}
	if n.IsZero() {
		return "Any"
	}
	return n.Name
}

// Junction is one step of a location interior. Only the fields relevant to
// Kind are populated, which keeps the struct comparable with ==.
type Junction struct {
	Kind JunctionKind

	Parachain      uint32
	PalletInstance uint8
	// Index is the decimal form of a GeneralIndex (u128).
	Index string

	// Network qualifies AccountId32, AccountKey20 and GlobalConsensus.
	Network NetworkID
	// Account is the lowercase 0x-prefixed hex id of AccountId32 / AccountKey20.
	Account string

	KeyLength uint8
	Key       string

	BodyID   string
	BodyPart string
}

func (j Junction) String() string {
	switch j.Kind {
	case JunctionParachain:
		return fmt.Sprintf("Parachain(%d)", j.Parachain)
	case JunctionAccountID32, JunctionAccountKey20:
		return fmt.Sprintf("%s(%s)", j.Kind, j.Account)
	case JunctionPalletInstance:
		return fmt.Sprintf("PalletInstance(%d)", j.PalletInstance)
	case JunctionGeneralIndex:
		return fmt.Sprintf("GeneralIndex(%s)", j.Index)
	case JunctionGeneralKey:
		return fmt.Sprintf("GeneralKey(%s)", j.Key)
	case JunctionGlobalConsensus:
		return fmt.Sprintf("GlobalConsensus(%s)", j.Network)
	case JunctionPlurality:
		return fmt.Sprintf("Plurality(%s,%s)", j.BodyID, j.BodyPart)
	default:
		return string(j.Kind)
	}
}

// Junctions is an ordered interior. An empty interior is Here.
type Junctions []Junction

// MultiLocation is a relative path to a location in the consensus universe.
type MultiLocation struct {
	Parents  uint8
	Interior Junctions
}

func (l MultiLocation) IsHere() bool {
	return len(l.Interior) == 0
}

// Equal compares parents and the ordered interior.
func (l MultiLocation) Equal(other MultiLocation) bool {
	if l.Parents != other.Parents || len(l.Interior) != len(other.Interior) {
		return false
	}
	for i := range l.Interior {
		if l.Interior[i] != other.Interior[i] {
			return false
		}
	}
	return true
}

// First returns the first junction of the given kind.
func (l MultiLocation) First(kind JunctionKind) (Junction, bool) {
	for _, j := range l.Interior {
		if j.Kind == kind {
			return j, true
		}
	}
	return Junction{}, false
}

// HasAccount reports whether the interior names an account
func (l MultiLocation) HasAccount() bool {
	if _, ok := l.First(JunctionAccountID32); ok {
		return true
	}
	_, ok := l.First(JunctionAccountKey20)
	return ok
}

func (l MultiLocation) String() string {
	if l.IsHere() {
		return fmt.Sprintf("{parents: %d, Here}", l.Parents)
	}
	parts := make([]string, len(l.Interior))
	for i, j := range l.Interior {
		parts[i] = j.String()
	}
	return fmt.Sprintf("{parents: %d, X%d[%s]}", l.Parents, len(l.Interior), strings.Join(parts, ", "))
}

// Asset is a fungible amount of the asset identified by Location.
// Amount is kept as a decimal string so u128 values survive JSON.
type Asset struct {
	Location MultiLocation
	Amount   string
}

// WeightLimit caps execution weight on the destination.
type WeightLimit struct {
	Limited   bool
	RefTime   uint64
	ProofSize uint64
}

// Unlimited lets the destination charge whatever it needs.
var Unlimited = WeightLimit{}

// Limited returns a bounded weight limit.
func Limited(refTime, proofSize uint64) WeightLimit {
	return WeightLimit{Limited: true, RefTime: refTime, ProofSize: proofSize}
}

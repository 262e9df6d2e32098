package transport

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

const (
	accountIDLength = 32
	checksumLength  = 2
	// ss58 prefixes above this do not fit in the two byte form
	maxSS58Prefix = 16383
)

var ss58Prefix = []byte("SS58PRE")

var ErrInvalidSS58 = errors.New("invalid ss58 address")

// DecodeSS58 returns the network prefix and the 32 byte account id of an ss58 address
func DecodeSS58(address string) (uint16, []byte, error) {
	raw := base58.Decode(address)
	if len(raw) == 0 {
		return 0, nil, fmt.Errorf("%w: not base58", ErrInvalidSS58)
	}

	var prefix uint16
	prefixLen := 1
	switch {
	case raw[0] < 64:
		prefix = uint16(raw[0])
	case raw[0] < 128:
		if len(raw) < 2 {
			return 0, nil, fmt.Errorf("%w: truncated prefix", ErrInvalidSS58)
		}
		lower := (raw[0]<<2)&0xfc | raw[1]>>6
		upper := raw[1] & 0x3f
		prefix = uint16(lower) | uint16(upper)<<8
		prefixLen = 2
	default:
		return 0, nil, fmt.Errorf("%w: reserved prefix", ErrInvalidSS58)
	}

	if len(raw) != prefixLen+accountIDLength+checksumLength {
		return 0, nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidSS58, len(raw))
	}
	body := raw[:prefixLen+accountIDLength]
	sum, err := ss58Checksum(body)
	if err != nil {
		return 0, nil, err
	}
	if !bytes.Equal(sum[:checksumLength], raw[prefixLen+accountIDLength:]) {
		return 0, nil, fmt.Errorf("%w: bad checksum", ErrInvalidSS58)
	}
	return prefix, body[prefixLen:], nil
}

// EncodeSS58 encodes a 32 byte account id for a network prefix
func EncodeSS58(prefix uint16, accountID []byte) (string, error) {
	if len(accountID) != accountIDLength {
		return "", fmt.Errorf("account id must be %d bytes, got %d", accountIDLength, len(accountID))
	}
	if prefix > maxSS58Prefix {
		return "", fmt.Errorf("ss58 prefix %d out of range", prefix)
	}

	var body []byte
	if prefix < 64 {
		body = append(body, byte(prefix))
	} else {
		first := byte((prefix&0x00fc)>>2) | 0x40
		second := byte(prefix>>8) | byte(prefix&0x0003)<<6
		body = append(body, first, second)
	}
	body = append(body, accountID...)
	sum, err := ss58Checksum(body)
	if err != nil {
		return "", err
	}
	return base58.Encode(append(body, sum[:checksumLength]...)), nil
}

func ss58Checksum(body []byte) ([]byte, error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blake2b hasher: %w", err)
	}
	h.Write(ss58Prefix)
	h.Write(body)
	return h.Sum(nil), nil
}

// SS58AccountIDs turns ss58 addresses into account ids. Any network prefix is accepted.
type SS58AccountIDs struct{}

func (SS58AccountIDs) CreateAccountID(address string) (string, error) {
	_, id, err := DecodeSS58(address)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(id), nil
}

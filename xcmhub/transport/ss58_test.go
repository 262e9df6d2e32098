package transport_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/transport"
)

const (
	aliceSubstrate = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	aliceHex       = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
)

var aliceByNetwork = []struct {
	prefix  uint16
	address string
}{
	{0, "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"},
	{2, "HNZata7iMYWmk5RvZRTiAsSDhV8366zq2YGb3tLH5Upf74F"},
	{42, aliceSubstrate},
	{1284, "VdvKmYJfD4VXA9fzz1SbmCo2eYHSzUFbaDCZSuaNKJAe8YNg6"},
}

func TestDecodeSS58(t *testing.T) {
	for _, tc := range aliceByNetwork {
		prefix, id, err := transport.DecodeSS58(tc.address)
		assert.NoError(t, err)
		assert.Equal(t, prefix, tc.prefix)
		assert.Equal(t, hexutil.Encode(id), aliceHex)
	}
}

func TestEncodeSS58(t *testing.T) {
	id := hexutil.MustDecode(aliceHex)
	for _, tc := range aliceByNetwork {
		address, err := transport.EncodeSS58(tc.prefix, id)
		assert.NoError(t, err)
		assert.Equal(t, address, tc.address)
	}

	_, err := transport.EncodeSS58(0, id[:31])
	assert.Error(t, err)
	_, err = transport.EncodeSS58(16384, id)
	assert.Error(t, err)
}

func TestDecodeSS58_Invalid(t *testing.T) {
	// last character changed, checksum no longer matches
	bad := aliceSubstrate[:len(aliceSubstrate)-1] + "Z"
	for _, address := range []string{"", "0xd435", "notanss58", bad} {
		_, _, err := transport.DecodeSS58(address)
		assert.True(t, errors.Is(err, transport.ErrInvalidSS58))
	}
}

func TestSS58AccountIDs(t *testing.T) {
	id, err := transport.SS58AccountIDs{}.CreateAccountID(aliceSubstrate)
	assert.NoError(t, err)
	assert.Equal(t, id, aliceHex)

	_, err = transport.SS58AccountIDs{}.CreateAccountID("0x1234")
	assert.Error(t, err)
}

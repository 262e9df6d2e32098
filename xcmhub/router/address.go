package router

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

// accountJunction encodes the recipient for the route's destination. 20 byte
// addresses become AccountKey20 and are only accepted by EVM chains, anything
// else becomes AccountId32.
func (e *Engine) accountJunction(route *Route, address string) (xcm.Junction, error) {
	dest := route.Destination
	destID := route.DestinationID()
	evmDest := dest != nil && (dest.EVM || dest.IsExternal())

	if common.IsHexAddress(address) {
		// raw locations may point anywhere, trust the caller
		if dest != nil && !evmDest {
			return xcm.Junction{}, models.NewInvalidAddressError(destID,
				"20 byte address %s can not receive on a non EVM chain", address)
		}
		return evmAccount(address), nil
	}
	if evmDest {
		return xcm.Junction{}, models.NewInvalidAddressError(destID,
			"destination expects a 20 byte address, got %s", address)
	}
	return e.substrateAccount(destID, address)
}

func evmAccount(address string) xcm.Junction {
	return xcm.AccountKey20(strings.ToLower(common.HexToAddress(address).Hex()))
}

func (e *Engine) substrateAccount(chain, address string) (xcm.Junction, error) {
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		b, err := hexutil.Decode(strings.ToLower(address))
		if err != nil || len(b) != 32 {
			return xcm.Junction{}, models.NewInvalidAddressError(chain, "hex address %s is not a 32 byte account id", address)
		}
		return xcm.AccountID32(hexutil.Encode(b)), nil
	}
	id, err := e.accounts.CreateAccountID(address)
	if err != nil {
		return xcm.Junction{}, models.NewInvalidAddressError(chain, "can not decode address %s", address).WithCause(err)
	}
	return xcm.AccountID32(id), nil
}

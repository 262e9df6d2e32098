package xcm

// AssetsPalletInstance is the pallet index of the assets pallet on AssetHub chains.
const AssetsPalletInstance uint8 = 50

// Here returns a location with no interior.
func Here(parents uint8) MultiLocation {
	return MultiLocation{Parents: parents}
}

// RelayLocation points at the relay chain from one of its parachains.
func RelayLocation() MultiLocation {
	return Here(1)
}

// ParachainLocation points at a parachain: parents 0 from the relay, 1 from a sibling.
func ParachainLocation(parents uint8, paraID uint32) MultiLocation {
	return MultiLocation{Parents: parents, Interior: Junctions{Parachain(paraID)}}
}

// AccountLocation is the beneficiary shape used by the xcm pallet: X1 = account.
func AccountLocation(account Junction) MultiLocation {
	return MultiLocation{Interior: Junctions{account}}
}

// RelayAccountLocation is an account on the relay seen from a parachain.
func RelayAccountLocation(account Junction) MultiLocation {
	return MultiLocation{Parents: 1, Interior: Junctions{account}}
}

// SiblingAccountLocation is an account on a sibling parachain: X2 = [Parachain, account].
func SiblingAccountLocation(paraID uint32, account Junction) MultiLocation {
	return MultiLocation{Parents: 1, Interior: Junctions{Parachain(paraID), account}}
}

// LocationWithAccount appends the account to a chain location. A location that
// already names an account is returned unchanged.
func LocationWithAccount(chain MultiLocation, account Junction) MultiLocation {
	if chain.HasAccount() {
		return chain
	}
	interior := make(Junctions, 0, len(chain.Interior)+1)
	interior = append(interior, chain.Interior...)
	return MultiLocation{Parents: chain.Parents, Interior: append(interior, account)}
}

// AssetHubAssetLocation identifies an asset of the assets pallet on an AssetHub
// seen from a sibling parachain.
func AssetHubAssetLocation(assetHubParaID uint32, assetID string) MultiLocation {
	return MultiLocation{
		Parents: 1,
		Interior: Junctions{
			Parachain(assetHubParaID),
			PalletInstance(AssetsPalletInstance),
			GeneralIndex(assetID),
		},
	}
}

// LocalAssetLocation identifies an asset of a pallet on the chain itself.
func LocalAssetLocation(palletInstance uint8, assetID string) MultiLocation {
	return MultiLocation{
		Interior: Junctions{PalletInstance(palletInstance), GeneralIndex(assetID)},
	}
}

// BridgedRelayLocation is the native asset of another relay network.
func BridgedRelayLocation(network NetworkID) MultiLocation {
	return MultiLocation{Parents: 2, Interior: Junctions{GlobalConsensus(network)}}
}

// BridgedParachainLocation is a parachain of another relay network.
func BridgedParachainLocation(network NetworkID, paraID uint32) MultiLocation {
	return MultiLocation{Parents: 2, Interior: Junctions{GlobalConsensus(network), Parachain(paraID)}}
}

// EthereumAssetLocation is an ERC-20 contract on an Ethereum network.
func EthereumAssetLocation(chainID uint64, contract string) MultiLocation {
	return MultiLocation{
		Parents:  2,
		Interior: Junctions{GlobalConsensus(EthereumNetwork(chainID)), AccountKey20(contract)},
	}
}

// Fungible pairs a location with an amount without validating either.
func Fungible(location MultiLocation, amount string) Asset {
	return Asset{Location: location, Amount: amount}
}

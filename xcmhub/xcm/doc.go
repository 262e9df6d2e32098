/*
Package xcm provides the location and asset types used to describe cross-consensus transfers,
together with a codec that writes them in the JSON layout of each supported protocol version
(V1 to V4) and reads them back.

A MultiLocation is a relative path: Parents climbs up the consensus hierarchy and Interior walks
down again through an ordered list of junctions.

	parents 0  the chain itself (its own accounts, pallets and assets)
	parents 1  the relay chain, or a sibling parachain reached through the relay
	parents 2  another consensus system (the other relay network, Ethereum)

Some examples seen from a parachain:

	{parents: 1, Here}                                          the relay chain and its native asset
	{parents: 1, X1[Parachain(2000)]}                           sibling parachain 2000
	{parents: 1, X3[Parachain(1000), PalletInstance(50), GeneralIndex(1984)]}
	                                                            asset 1984 of the AssetHub assets pallet
	{parents: 2, X1[GlobalConsensus(Kusama)]}                   the Kusama relay asset, across the bridge

Versions

The versions differ in a few places only, and every encoder matches the version exhaustively:

  - X1 holds a bare junction up to V3 and a one element list in V4:

	V3: {"parents":1,"interior":{"X1":{"Parachain":2000}}}
	V4: {"parents":1,"interior":{"X1":[{"Parachain":2000}]}}

  - The asset id is wrapped in {"Concrete": location} up to V3 and bare in V4.
    The amount is always written as a decimal string in {"Fungible": "..."}.
  - Account networks are "Any", "Polkadot" or "Kusama" in V1 and V2, and null, a network name
    or {"Ethereum":{"chainId":1}} from V3.
  - GlobalConsensus exists only from V3.
  - GeneralKey is raw bytes in V1 and V2 and {"length", "data"} padded to 32 bytes from V3.

Versioned values are written with the version as the single key, e.g. {"V4": {...}} for
VersionedLocation and {"V3": [...]} for VersionedAssets. Decoding is strict about the layout of
the tagged version, so encode, decode and encode again yields identical bytes.

The unversioned MarshalJSON of MultiLocation uses the V4 layout. Its UnmarshalJSON accepts both
X1 layouts, which is what static asset tables and API requests use.
*/
package xcm

package models

import (
	"fmt"
	"strings"
)

// BuildTransferRequest - POST body of TransferService/BuildTransfer
type BuildTransferRequest struct {
	Intent TransferIntent `json:"intent"`
	Bind   bool           `json:"bind,omitempty"` // return a transaction bound to a live connection of the origin chain
}

// BuildTransferResponse carries either the inert call or the bound transaction
type BuildTransferResponse struct {
	Scenario    Scenario        `json:"scenario"`
	Bridge      BridgeKind      `json:"bridge,omitempty"`
	Origin      string          `json:"origin"`
	Call        *SerializedCall `json:"call,omitempty"`
	Transaction *Transaction    `json:"transaction,omitempty"`
}

// BuildBatchRequest - POST body of TransferService/BuildBatch
type BuildBatchRequest struct {
	Transfers []TransferIntent `json:"transfers"`
	From      string           `json:"from,omitempty"`
	To        *Destination     `json:"to,omitempty"`
	Mode      string           `json:"mode,omitempty"` // "batch" (default) or "batch_all"
	Bind      bool             `json:"bind,omitempty"`
}

type BuildBatchResponse struct {
	BatchID     string          `json:"batch_id"`
	Origin      string          `json:"origin"`
	Size        int             `json:"size"`
	Call        *SerializedCall `json:"call,omitempty"`
	Transaction *Transaction    `json:"transaction,omitempty"`
}

type ListChainsRequest struct {
	Relay string `json:"relay,omitempty"` // "polkadot" or "kusama"; empty lists every chain
}

// ChainInfo is the public view of a registry entry
type ChainInfo struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Relay             string   `json:"relay,omitempty"`
	ParaID            uint32   `json:"para_id,omitempty"`
	Kind              string   `json:"kind"`
	Version           string   `json:"version"`
	Capabilities      []string `json:"capabilities"`
	AssetCheckEnabled bool     `json:"asset_check_enabled"`
	EVM               bool     `json:"evm,omitempty"`
}

type ListChainsResponse struct {
	Chains []ChainInfo `json:"chains"`
}

type GetAssetInfoRequest struct {
	Chain    string       `json:"chain"`
	Currency CurrencySpec `json:"currency"`
}

type GetAssetInfoResponse struct {
	Chain              string `json:"chain"`
	Symbol             string `json:"symbol"`
	AssetID            string `json:"asset_id,omitempty"`
	Decimals           *int   `json:"decimals,omitempty"`
	Native             bool   `json:"native"`
	Location           any    `json:"location,omitempty"`
	ExistentialDeposit string `json:"existential_deposit,omitempty"`
}

// MaxBatchTransfers bounds the transfers of one BuildBatch request
const MaxBatchTransfers = 64

// Validate checks the shape of the request before any lookup happens
func (r *BuildTransferRequest) Validate() error {
	return validateIntent(r.Intent)
}

func (r *BuildBatchRequest) Validate() error {
	if len(r.Transfers) == 0 {
		return NewInvalidParameterError("at least one transfer is required")
	}
	if len(r.Transfers) > MaxBatchTransfers {
		return NewInvalidParameterError("a batch holds at most %d transfers, got %d", MaxBatchTransfers, len(r.Transfers))
	}
	if err := r.To.Validate(); err != nil {
		return err
	}
	for i, intent := range r.Transfers {
		if err := validateIntent(intent); err != nil {
			return fmt.Errorf("transfer %d: %w", i, err)
		}
	}
	return nil
}

func (r *ListChainsRequest) Validate() error {
	switch strings.ToLower(r.Relay) {
	case "", "polkadot", "kusama":
		return nil
	default:
		return NewInvalidParameterError("unknown relay %q", r.Relay)
	}
}

func (r *GetAssetInfoRequest) Validate() error {
	if r.Chain == "" {
		return NewInvalidParameterError("chain is required")
	}
	if r.Currency.SetCount() != 1 {
		return NewInvalidParameterError("exactly one currency selector is required")
	}
	if r.Currency.IsMultiAsset() {
		return NewInvalidParameterError("asset info takes a single currency")
	}
	return nil
}

func validateIntent(i TransferIntent) error {
	if i.Address == "" {
		return NewInvalidParameterError("address is required")
	}
	if i.Currency.SetCount() == 0 {
		return NewInvalidParameterError("currency is required")
	}
	if i.Amount == "" && !i.Currency.IsMultiAsset() {
		return NewInvalidParameterError("amount is required")
	}
	return i.To.Validate()
}

// Package transport talks to live chains: account id encoding, a websocket
// JSON-RPC client and a pool of per-chain handles.
package transport

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "transport").Logger()
}

// Api is what the engine needs from a connection to one chain
type Api interface {
	ChainID() string
	CreateAccountID(address string) (string, error)
	// CallTxMethod binds a serialized call to the chain, ready for signing
	CallTxMethod(ctx context.Context, call *models.SerializedCall) (*models.Transaction, error)
	// GetChainSpecData reads the chain identity, it doubles as a keep-alive probe
	GetChainSpecData(ctx context.Context) (*ChainSpec, error)
	Disconnect() error
}

// Dialer opens an Api for a chain given its endpoints
type Dialer func(ctx context.Context, chainID string, endpoints []string) (Api, error)

type ChainSpec struct {
	Name          string `json:"name"`
	GenesisHash   string `json:"genesis_hash"`
	SpecName      string `json:"spec_name"`
	SpecVersion   uint32 `json:"spec_version"`
	SS58Prefix    uint16 `json:"ss58_prefix"`
	TokenSymbol   string `json:"token_symbol"`
	TokenDecimals int    `json:"token_decimals"`
}

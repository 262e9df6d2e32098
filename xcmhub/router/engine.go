package router

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/assets"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/transport"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "router").Logger()
}

// AccountIDCreator turns a chain address into a 32 byte account id in 0x hex
type AccountIDCreator interface {
	CreateAccountID(address string) (string, error)
}

// TxBinder binds a serialized call to a live chain connection
type TxBinder interface {
	CallTxMethod(ctx context.Context, call *models.SerializedCall) (*models.Transaction, error)
}

// Transfer is a built transfer: the route it took and the pallet call
type Transfer struct {
	Route *Route
	Call  *models.SerializedCall
}

// Engine turns transfer intents into pallet calls. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	registry  *registry.Registry
	tables    *assets.Tables
	resolver  *assets.Resolver
	accounts  AccountIDCreator
	overrides map[string]override
}

type Option func(*Engine)

// WithAccountIDs replaces the SS58 address decoder
func WithAccountIDs(a AccountIDCreator) Option {
	return func(e *Engine) { e.accounts = a }
}

func NewEngine(reg *registry.Registry, tables *assets.Tables, opts ...Option) *Engine {
	e := &Engine{
		registry:  reg,
		tables:    tables,
		resolver:  assets.NewResolver(tables),
		accounts:  transport.SS58AccountIDs{},
		overrides: defaultOverrides(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

func (e *Engine) Resolver() *assets.Resolver {
	return e.resolver
}

// transferContext is everything a strategy needs to emit a call
type transferContext struct {
	intent  models.TransferIntent
	route   *Route
	asset   *assets.Resolved // nil for multi-asset transfers
	multi   []models.MultiAssetEntry
	feeItem int
	account xcm.Junction
}

func (tc *transferContext) isMultiAsset() bool {
	return tc.asset == nil
}

// Build resolves the route and emits the pallet call for a single transfer
func (e *Engine) Build(ctx context.Context, intent models.TransferIntent) (*Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if intent.Address == "" {
		return nil, models.NewInvalidParameterError("recipient address is required")
	}
	route, err := e.ResolveRoute(intent)
	if err != nil {
		return nil, err
	}

	var call *models.SerializedCall
	switch route.Bridge {
	case models.BridgeRelayPair:
		call, err = e.buildRelayPairBridge(route, intent)
	case models.BridgeExternal:
		call, err = e.buildExternalBridge(route, intent)
	default:
		call, err = e.dispatch(route, intent)
	}
	if err != nil {
		return nil, err
	}

	// surface encoding failures here rather than when the caller serializes
	if _, err := json.Marshal(call); err != nil {
		return nil, models.NewInvalidParameterError("call %s can not be encoded in %s", call, route.Version).WithCause(err)
	}
	log.Debug().
		Str("origin", route.Origin.ID).
		Str("destination", route.DestinationID()).
		Str("call", call.String()).
		Msg("Transfer built")
	return &Transfer{Route: route, Call: call}, nil
}

// BuildCall is Build without the route
func (e *Engine) BuildCall(ctx context.Context, intent models.TransferIntent) (*models.SerializedCall, error) {
	t, err := e.Build(ctx, intent)
	if err != nil {
		return nil, err
	}
	return t.Call, nil
}

// BuildTx builds the transfer and binds it to a live connection of the origin chain
func (e *Engine) BuildTx(ctx context.Context, binder TxBinder, intent models.TransferIntent) (*models.Transaction, error) {
	t, err := e.Build(ctx, intent)
	if err != nil {
		return nil, err
	}
	tx, err := binder.CallTxMethod(ctx, t.Call)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s on %s: %w", t.Call, t.Route.Origin.ID, err)
	}
	return tx, nil
}

// prepare validates the amount and currency and encodes the recipient
func (e *Engine) prepare(route *Route, intent models.TransferIntent) (*transferContext, error) {
	tc := &transferContext{intent: intent, route: route}

	if intent.Currency.IsMultiAsset() {
		if err := assets.ValidateCurrencySpec(intent.Currency); err != nil {
			return nil, err
		}
		if err := assets.ValidateAmount(intent.Amount, true); err != nil {
			return nil, err
		}
		feeItem, err := assets.ValidateMultiAssets(intent.Currency.MultiAssets, intent.FeeAsset)
		if err != nil {
			return nil, err
		}
		tc.multi = intent.Currency.MultiAssets
		tc.feeItem = feeItem
	} else {
		if err := assets.ValidateAmount(intent.Amount, false); err != nil {
			return nil, err
		}
		if intent.FeeAsset != nil {
			return nil, models.NewInvalidParameterError("fee asset index is only used with multi-asset currencies")
		}
		res, err := e.resolver.Resolve(route.Origin, intent.Currency)
		if err != nil {
			return nil, err
		}
		if route.Destination != nil && !route.IsBridge() {
			if err := e.resolver.CheckDestination(route.Destination, res); err != nil {
				return nil, err
			}
		}
		tc.asset = res
	}

	account, err := e.accountJunction(route, intent.Address)
	if err != nil {
		return nil, err
	}
	tc.account = account
	return tc, nil
}

// dispatch runs the per-chain override first and then falls back through the
// pallets the origin exposes
func (e *Engine) dispatch(route *Route, intent models.TransferIntent) (*models.SerializedCall, error) {
	if route.Origin.Capabilities.Empty() {
		return nil, models.NewNoXcmSupportError(route.Origin.ID)
	}
	if xTransferOnly(route.Origin) {
		if _, err := xTransferWeight(route); err != nil {
			return nil, err
		}
	}
	tc, err := e.prepare(route, intent)
	if err != nil {
		return nil, err
	}

	ov := e.overrides[route.Origin.ID]
	if ov.dispatch != nil {
		log.Debug().Str("origin", route.Origin.ID).Msg("Using chain override")
		return ov.dispatch(e, tc)
	}

	origin := route.Origin
	switch {
	case origin.Supports(registry.CapTokenTransfer) && !(ov.skipTokenTransfer != nil && ov.skipTokenTransfer(tc)):
		log.Debug().Str("origin", origin.ID).Msg("Using token transfer pallet")
		return e.tokenTransfer(tc)
	case origin.Supports(registry.CapXcmPallet):
		log.Debug().Str("origin", origin.ID).Msg("Using xcm pallet")
		return e.xcmPalletTransfer(tc, xcmSection(route))
	case origin.Supports(registry.CapBridgeTransfer):
		log.Debug().Str("origin", origin.ID).Msg("Using xTransfer pallet")
		return e.xTransfer(tc)
	default:
		return nil, models.NewNoXcmSupportError(origin.ID)
	}
}

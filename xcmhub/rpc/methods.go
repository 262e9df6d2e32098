package rpc

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/batch"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/router"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/transport"
)

// ChainPool hands out live chain connections; transport.Pool implements it
type ChainPool interface {
	HasEndpoints(chainID string) bool
	Acquire(ctx context.Context, chainID string) (transport.Api, func(), error)
}

// TransferServer implements TransferServiceHandler on top of the engine
type TransferServer struct {
	engine *router.Engine
	pool   ChainPool // nil disables binding
}

var _ TransferServiceHandler = (*TransferServer)(nil)

// NewTransferServer creates the service. pool may be nil, requests asking for
// bound transactions then fail with FailedPrecondition.
func NewTransferServer(engine *router.Engine, pool ChainPool) *TransferServer {
	return &TransferServer{engine: engine, pool: pool}
}

// BuildTransfer builds one transfer. With bind set the call is bound to a live
// connection of the origin chain, otherwise the inert call is returned.
func (s *TransferServer) BuildTransfer(
	ctx context.Context,
	req *connect.Request[models.BuildTransferRequest],
) (*connect.Response[models.BuildTransferResponse], error) {
	t, err := s.engine.Build(ctx, req.Msg.Intent)
	if err != nil {
		return nil, toConnectError(BuildTransferProcedure, err)
	}

	resp := &models.BuildTransferResponse{
		Scenario: t.Route.Scenario,
		Bridge:   t.Route.Bridge,
		Origin:   t.Route.Origin.ID,
	}
	if !req.Msg.Bind {
		resp.Call = t.Call
		return connect.NewResponse(resp), nil
	}

	api, release, err := s.acquire(ctx, t.Route.Origin.ID)
	if err != nil {
		return nil, err
	}
	defer release()
	tx, err := api.CallTxMethod(ctx, t.Call)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	resp.Transaction = tx
	return connect.NewResponse(resp), nil
}

// BuildBatch composes the transfers into one utility batch call
func (s *TransferServer) BuildBatch(
	ctx context.Context,
	req *connect.Request[models.BuildBatchRequest],
) (*connect.Response[models.BuildBatchResponse], error) {
	mode, err := batch.ParseMode(req.Msg.Mode)
	if err != nil {
		return nil, toConnectError(BuildBatchProcedure, err)
	}

	m := batch.NewManager(s.engine)
	for _, intent := range req.Msg.Transfers {
		m.AddTransaction(intent)
	}
	origin, err := s.batchOrigin(req.Msg)
	if err != nil {
		return nil, toConnectError(BuildBatchProcedure, err)
	}
	opts := batch.Options{From: req.Msg.From, To: req.Msg.To, Mode: mode}
	if opts.From == "" {
		opts.From = origin
	}

	if !req.Msg.Bind {
		b, err := m.BuildBatch(ctx, opts)
		if err != nil {
			return nil, toConnectError(BuildBatchProcedure, err)
		}
		return connect.NewResponse(&models.BuildBatchResponse{
			BatchID: b.ID,
			Origin:  b.Origin,
			Size:    b.Items,
			Call:    b.Call,
		}), nil
	}

	api, release, err := s.acquire(ctx, origin)
	if err != nil {
		return nil, err
	}
	defer release()
	opts.Api = api

	tx, b, err := m.BuildBatchTx(ctx, opts, nil)
	if err != nil {
		if b != nil {
			// built but not bound
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
		return nil, toConnectError(BuildBatchProcedure, err)
	}
	return connect.NewResponse(&models.BuildBatchResponse{
		BatchID:     b.ID,
		Origin:      b.Origin,
		Size:        b.Items,
		Transaction: tx,
	}), nil
}

// batchOrigin picks the batch origin from From, the chain of To, or the first
// transfer when neither is set. The manager still checks every transfer
// against it.
func (s *TransferServer) batchOrigin(req *models.BuildBatchRequest) (string, error) {
	switch {
	case req.From != "":
		return s.engine.ResolveOrigin(models.TransferIntent{From: req.From, To: req.To})
	case req.To != nil && req.To.Chain != "":
		return s.engine.ResolveOrigin(models.TransferIntent{To: req.To})
	case req.To != nil:
		// a raw location does not name an origin
		return "", models.NewInvalidParameterError("a raw destination location needs an explicit origin chain")
	case len(req.Transfers) > 0:
		return s.engine.ResolveOrigin(req.Transfers[0])
	default:
		return "", models.NewInvalidParameterError("batch origin can not be resolved")
	}
}

// ListChains lists the registry, optionally for one relay network
func (s *TransferServer) ListChains(
	ctx context.Context,
	req *connect.Request[models.ListChainsRequest],
) (*connect.Response[models.ListChainsResponse], error) {
	relay := registry.RelayFamily(strings.ToLower(req.Msg.Relay))

	var chains []*registry.Chain
	if relay == "" {
		chains = s.engine.Registry().Chains()
	} else {
		chains = s.engine.Registry().ByRelay(relay)
	}

	resp := &models.ListChainsResponse{Chains: make([]models.ChainInfo, 0, len(chains))}
	for _, c := range chains {
		resp.Chains = append(resp.Chains, chainInfo(c))
	}
	return connect.NewResponse(resp), nil
}

func chainInfo(c *registry.Chain) models.ChainInfo {
	return models.ChainInfo{
		ID:                c.ID,
		Name:              c.Name,
		Relay:             string(c.Relay),
		ParaID:            c.ParaID,
		Kind:              c.Kind.String(),
		Version:           c.Version.String(),
		Capabilities:      c.Capabilities.Names(),
		AssetCheckEnabled: c.AssetCheckEnabled,
		EVM:               c.EVM,
	}
}

// GetAssetInfo resolves a currency on a chain and reports its table entry
func (s *TransferServer) GetAssetInfo(
	ctx context.Context,
	req *connect.Request[models.GetAssetInfoRequest],
) (*connect.Response[models.GetAssetInfoResponse], error) {
	chain, ok := s.engine.Registry().Get(req.Msg.Chain)
	if !ok {
		return nil, toConnectError(GetAssetInfoProcedure,
			models.NewNodeNotSupportedError(req.Msg.Chain, "unknown chain"))
	}
	res, err := s.engine.Resolver().Resolve(chain, req.Msg.Currency)
	if err != nil {
		return nil, toConnectError(GetAssetInfoProcedure, err)
	}

	resp := &models.GetAssetInfoResponse{
		Chain:    chain.ID,
		Symbol:   res.Asset.Symbol,
		AssetID:  res.Asset.AssetID,
		Decimals: res.Asset.Decimals,
		Native:   res.Native,
	}
	if loc := res.Asset.Location; loc != nil {
		encoded, err := loc.Encode(chain.Version)
		if err != nil {
			return nil, toConnectError(GetAssetInfoProcedure,
				models.NewInvalidCurrencyError(chain.ID, "asset location can not be encoded in %s", chain.Version).WithCause(err))
		}
		resp.Location = encoded
	}
	resp.ExistentialDeposit = res.Asset.ExistentialDeposit
	if res.Native {
		if ed, ok := s.engine.Resolver().Tables().ExistentialDeposit(chain.ID); ok {
			resp.ExistentialDeposit = ed.String()
		}
	}
	return connect.NewResponse(resp), nil
}

// acquire returns a pooled connection, mapping failures to connect codes
func (s *TransferServer) acquire(ctx context.Context, chainID string) (transport.Api, func(), error) {
	if s.pool == nil {
		return nil, nil, connect.NewError(connect.CodeFailedPrecondition,
			models.NewInvalidParameterError("binding is disabled, no chain endpoints are configured"))
	}
	if !s.pool.HasEndpoints(chainID) {
		return nil, nil, connect.NewError(connect.CodeFailedPrecondition,
			models.NewInvalidParameterError("no endpoints configured for %s", chainID))
	}
	api, release, err := s.pool.Acquire(ctx, chainID)
	if err != nil {
		return nil, nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return api, release, nil
}

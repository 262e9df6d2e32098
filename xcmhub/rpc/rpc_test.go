package rpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/assets"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/router"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/rpc"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/transport"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

const alice = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"

var engine = router.NewEngine(registry.Default(), assets.DefaultTables())

type fakeApi struct{ chain string }

func (f *fakeApi) ChainID() string { return f.chain }

func (f *fakeApi) CreateAccountID(address string) (string, error) {
	return transport.SS58AccountIDs{}.CreateAccountID(address)
}

func (f *fakeApi) CallTxMethod(_ context.Context, call *models.SerializedCall) (*models.Transaction, error) {
	return &models.Transaction{ChainID: f.chain, GenesisHash: "0x01", SpecName: "test", Call: call}, nil
}

func (f *fakeApi) GetChainSpecData(context.Context) (*transport.ChainSpec, error) {
	return &transport.ChainSpec{Name: f.chain}, nil
}

func (f *fakeApi) Disconnect() error { return nil }

// fakePool serves every chain but Moonbeam and counts outstanding handles
type fakePool struct {
	mu          sync.Mutex
	outstanding int
	acquired    []string
}

func (p *fakePool) HasEndpoints(chainID string) bool { return chainID != "Moonbeam" }

func (p *fakePool) Acquire(_ context.Context, chainID string) (transport.Api, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outstanding++
	p.acquired = append(p.acquired, chainID)
	return &fakeApi{chain: chainID}, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.outstanding--
	}, nil
}

func newTestServer(t *testing.T, pool rpc.ChainPool) *httptest.Server {
	t.Helper()
	cfg := rpc.DefaultServerConfig()
	cfg.OTelConfig = nil
	cfg.Gatherer = prometheus.NewRegistry()

	srv, err := rpc.NewServer(context.Background(), cfg, rpc.NewTransferServer(engine, pool))
	assert.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func client[Req, Res any](ts *httptest.Server, procedure string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](ts.Client(), ts.URL+procedure, connect.WithCodec(rpc.JSONCodec{}))
}

func transfer(from, to, symbol, amount string) models.TransferIntent {
	i := models.TransferIntent{From: from, Currency: models.Symbol(symbol), Amount: amount, Address: alice}
	if to != "" {
		i.To = models.ToChain(to)
	}
	return i
}

func errorKind(t *testing.T, err error) string {
	t.Helper()
	var ce *connect.Error
	assert.True(t, errors.As(err, &ce))
	return ce.Meta().Get("Xcmhub-Error-Kind")
}

func TestBuildTransfer(t *testing.T) {
	ts := newTestServer(t, nil)
	c := client[models.BuildTransferRequest, models.BuildTransferResponse](ts, rpc.BuildTransferProcedure)

	resp, err := c.CallUnary(context.Background(), connect.NewRequest(&models.BuildTransferRequest{
		Intent: transfer("Hydration", "Acala", "DOT", "1000000000"),
	}))
	assert.NoError(t, err)
	assert.Equal(t, resp.Msg.Scenario, models.ScenarioParaToPara)
	assert.Equal(t, resp.Msg.Origin, "Hydration")
	assert.Equal(t, resp.Msg.Call.String(), "xTokens.transfer")
	assert.Equal(t, resp.Msg.Call.Parameters.Names(), []string{"currency_id", "amount", "dest", "dest_weight_limit"})
	assert.Nil(t, resp.Msg.Transaction)
	assert.Equal(t, resp.Header().Get("Cache-Control"), "no-store, no-cache, must-revalidate")
}

func TestBuildTransfer_Errors(t *testing.T) {
	ts := newTestServer(t, nil)
	c := client[models.BuildTransferRequest, models.BuildTransferResponse](ts, rpc.BuildTransferProcedure)
	ctx := context.Background()

	// rejected by request validation
	_, err := c.CallUnary(ctx, connect.NewRequest(&models.BuildTransferRequest{
		Intent: models.TransferIntent{From: "Hydration", Currency: models.Symbol("DOT"), Amount: "1"},
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
	assert.Equal(t, errorKind(t, err), "InvalidParameter")

	_, err = c.CallUnary(ctx, connect.NewRequest(&models.BuildTransferRequest{
		Intent: transfer("Hydration", "Acala", "NOPE", "1"),
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
	assert.Equal(t, errorKind(t, err), "InvalidCurrency")

	_, err = c.CallUnary(ctx, connect.NewRequest(&models.BuildTransferRequest{
		Intent: transfer("Hydration", "Nowhere", "DOT", "1"),
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeFailedPrecondition)
	assert.Equal(t, errorKind(t, err), "NodeNotSupported")

	// binding without a pool
	_, err = c.CallUnary(ctx, connect.NewRequest(&models.BuildTransferRequest{
		Intent: transfer("Hydration", "Acala", "DOT", "1"),
		Bind:   true,
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeFailedPrecondition)
}

func TestBuildTransfer_Bind(t *testing.T) {
	pool := &fakePool{}
	ts := newTestServer(t, pool)
	c := client[models.BuildTransferRequest, models.BuildTransferResponse](ts, rpc.BuildTransferProcedure)
	ctx := context.Background()

	resp, err := c.CallUnary(ctx, connect.NewRequest(&models.BuildTransferRequest{
		Intent: transfer("Hydration", "Acala", "DOT", "1000"),
		Bind:   true,
	}))
	assert.NoError(t, err)
	assert.Nil(t, resp.Msg.Call)
	assert.Equal(t, resp.Msg.Transaction.ChainID, "Hydration")
	assert.Equal(t, resp.Msg.Transaction.Call.String(), "xTokens.transfer")
	assert.Equal(t, pool.acquired, []string{"Hydration"})
	assert.Equal(t, pool.outstanding, 0)

	_, err = c.CallUnary(ctx, connect.NewRequest(&models.BuildTransferRequest{
		Intent: transfer("Moonbeam", "Acala", "GLMR", "1000"),
		Bind:   true,
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeFailedPrecondition)
}

func TestBuildBatch(t *testing.T) {
	ts := newTestServer(t, nil)
	c := client[models.BuildBatchRequest, models.BuildBatchResponse](ts, rpc.BuildBatchProcedure)
	ctx := context.Background()

	resp, err := c.CallUnary(ctx, connect.NewRequest(&models.BuildBatchRequest{
		Transfers: []models.TransferIntent{
			transfer("Hydration", "Acala", "DOT", "1000"),
			transfer("Hydration", "Acala", "USDT", "2000"),
		},
		From: "Hydration",
	}))
	assert.NoError(t, err)
	assert.Equal(t, resp.Msg.Origin, "Hydration")
	assert.Equal(t, resp.Msg.Size, 2)
	assert.Equal(t, resp.Msg.Call.String(), "Utility.batch")
	assert.NotEqual(t, resp.Msg.BatchID, "")

	var calls []json.RawMessage
	v, ok := resp.Msg.Call.Parameters.Get("calls")
	assert.True(t, ok)
	assert.NoError(t, json.Unmarshal(v.(json.RawMessage), &calls))
	assert.Equal(t, len(calls), 2)

	_, err = c.CallUnary(ctx, connect.NewRequest(&models.BuildBatchRequest{}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)

	_, err = c.CallUnary(ctx, connect.NewRequest(&models.BuildBatchRequest{
		Transfers: []models.TransferIntent{
			transfer("Hydration", "Acala", "DOT", "1000"),
			transfer("Acala", "Hydration", "DOT", "1000"),
		},
		From: "Hydration",
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)

	_, err = c.CallUnary(ctx, connect.NewRequest(&models.BuildBatchRequest{
		Transfers: []models.TransferIntent{transfer("Hydration", "Acala", "DOT", "1000")},
		Mode:      "eventually",
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestBuildBatch_Bind(t *testing.T) {
	pool := &fakePool{}
	ts := newTestServer(t, pool)
	c := client[models.BuildBatchRequest, models.BuildBatchResponse](ts, rpc.BuildBatchProcedure)

	// the origin comes from the first transfer
	resp, err := c.CallUnary(context.Background(), connect.NewRequest(&models.BuildBatchRequest{
		Transfers: []models.TransferIntent{
			transfer("Hydration", "Acala", "DOT", "1000"),
			transfer("Hydration", "Acala", "USDT", "1000"),
		},
		Mode: "batch_all",
		Bind: true,
	}))
	assert.NoError(t, err)
	assert.Equal(t, resp.Msg.Origin, "Hydration")
	assert.Equal(t, resp.Msg.Transaction.ChainID, "Hydration")
	assert.Equal(t, resp.Msg.Transaction.Call.String(), "Utility.batch_all")
	assert.Equal(t, pool.outstanding, 0)
}

func TestBuildBatch_RawLocationNeedsOrigin(t *testing.T) {
	pool := &fakePool{}
	ts := newTestServer(t, pool)
	c := client[models.BuildBatchRequest, models.BuildBatchResponse](ts, rpc.BuildBatchProcedure)
	ctx := context.Background()

	for _, bind := range []bool{false, true} {
		_, err := c.CallUnary(ctx, connect.NewRequest(&models.BuildBatchRequest{
			Transfers: []models.TransferIntent{transfer("Hydration", "Acala", "DOT", "1000")},
			To:        models.ToLocation(xcm.ParachainLocation(1, 2000)),
			Bind:      bind,
		}))
		assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
		assert.Equal(t, errorKind(t, err), "InvalidParameter")
	}
	// rejected before any connection is made
	assert.Equal(t, len(pool.acquired), 0)

	// an explicit origin makes it valid in both modes
	for _, bind := range []bool{false, true} {
		resp, err := c.CallUnary(ctx, connect.NewRequest(&models.BuildBatchRequest{
			Transfers: []models.TransferIntent{transfer("Hydration", "Acala", "DOT", "1000")},
			From:      "Hydration",
			To:        models.ToLocation(xcm.ParachainLocation(1, 2000)),
			Bind:      bind,
		}))
		assert.NoError(t, err)
		assert.Equal(t, resp.Msg.Origin, "Hydration")
	}
}

func TestListChains(t *testing.T) {
	ts := newTestServer(t, nil)
	c := client[models.ListChainsRequest, models.ListChainsResponse](ts, rpc.ListChainsProcedure)
	ctx := context.Background()

	all, err := c.CallUnary(ctx, connect.NewRequest(&models.ListChainsRequest{}))
	assert.NoError(t, err)
	assert.Equal(t, len(all.Msg.Chains), engine.Registry().Len())

	kusama, err := c.CallUnary(ctx, connect.NewRequest(&models.ListChainsRequest{Relay: "Kusama"}))
	assert.NoError(t, err)
	assert.True(t, len(kusama.Msg.Chains) > 0)
	for _, chain := range kusama.Msg.Chains {
		assert.Equal(t, chain.Relay, "kusama")
	}
	// relay first
	assert.Equal(t, kusama.Msg.Chains[0].Kind, "relay")

	_, err = c.CallUnary(ctx, connect.NewRequest(&models.ListChainsRequest{Relay: "cosmos"}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestGetAssetInfo(t *testing.T) {
	ts := newTestServer(t, nil)
	c := client[models.GetAssetInfoRequest, models.GetAssetInfoResponse](ts, rpc.GetAssetInfoProcedure)
	ctx := context.Background()

	usdt, err := c.CallUnary(ctx, connect.NewRequest(&models.GetAssetInfoRequest{
		Chain:    "AssetHubPolkadot",
		Currency: models.Symbol("USDT"),
	}))
	assert.NoError(t, err)
	assert.Equal(t, usdt.Msg.AssetID, "1984")
	assert.Equal(t, *usdt.Msg.Decimals, 6)
	assert.False(t, usdt.Msg.Native)
	assert.NotNil(t, usdt.Msg.Location)
	assert.Equal(t, usdt.Msg.ExistentialDeposit, "70000")

	dot, err := c.CallUnary(ctx, connect.NewRequest(&models.GetAssetInfoRequest{
		Chain:    "Polkadot",
		Currency: models.Symbol("DOT"),
	}))
	assert.NoError(t, err)
	assert.True(t, dot.Msg.Native)
	assert.Equal(t, dot.Msg.ExistentialDeposit, "10000000000")

	_, err = c.CallUnary(ctx, connect.NewRequest(&models.GetAssetInfoRequest{
		Chain:    "Nowhere",
		Currency: models.Symbol("DOT"),
	}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeFailedPrecondition)

	_, err = c.CallUnary(ctx, connect.NewRequest(&models.GetAssetInfoRequest{Chain: "Polkadot"}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInvalidArgument)
}

func TestServerEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/server/health", "/server/ready", "/server/metrics"} {
		resp, err := ts.Client().Get(ts.URL + path)
		assert.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, resp.StatusCode, http.StatusOK)
	}
}

func TestPanicRecovery(t *testing.T) {
	cfg := rpc.DefaultServerConfig()
	cfg.OTelConfig = nil
	cfg.EnableMetrics = false
	// a server without an engine panics on every lookup
	srv, err := rpc.NewServer(context.Background(), cfg, rpc.NewTransferServer(nil, nil))
	assert.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := client[models.ListChainsRequest, models.ListChainsResponse](ts, rpc.ListChainsProcedure)
	_, err = c.CallUnary(context.Background(), connect.NewRequest(&models.ListChainsRequest{}))
	assert.Equal(t, connect.CodeOf(err), connect.CodeInternal)
}

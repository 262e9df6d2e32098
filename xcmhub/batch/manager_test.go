package batch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/assets"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/batch"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/registry"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/router"
	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/xcm"
)

const alice = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"

var engine = router.NewEngine(registry.Default(), assets.DefaultTables())

// countingBuilder records how many calls were built
type countingBuilder struct {
	*router.Engine
	built int
}

func (b *countingBuilder) BuildCall(ctx context.Context, intent models.TransferIntent) (*models.SerializedCall, error) {
	b.built++
	return b.Engine.BuildCall(ctx, intent)
}

func transfer(from, to, symbol, amount string) models.TransferIntent {
	i := models.TransferIntent{From: from, Currency: models.Symbol(symbol), Amount: amount, Address: alice}
	if to != "" {
		i.To = models.ToChain(to)
	}
	return i
}

type fakeHandle struct {
	chain string
	bound []*models.SerializedCall
}

func (h *fakeHandle) ChainID() string { return h.chain }

func (h *fakeHandle) CallTxMethod(_ context.Context, call *models.SerializedCall) (*models.Transaction, error) {
	h.bound = append(h.bound, call)
	return &models.Transaction{ChainID: h.chain, Call: call}, nil
}

func TestBuildBatch(t *testing.T) {
	m := batch.NewManager(engine)
	m.AddTransaction(transfer("Hydration", "Acala", "DOT", "1000"))
	m.AddTransaction(transfer("Hydration", "AssetHubPolkadot", "USDT", "2000"))
	assert.Equal(t, m.Len(), 2)

	b, err := m.BuildBatch(context.Background(), batch.Options{From: "Hydration", Mode: batch.ModeBatchAll})
	assert.NoError(t, err)
	assert.Equal(t, b.Origin, "Hydration")
	assert.Equal(t, b.Items, 2)
	assert.Equal(t, b.Call.String(), "Utility.batch_all")
	_, err = uuid.Parse(b.ID)
	assert.NoError(t, err)

	v, ok := b.Call.Parameters.Get("calls")
	assert.True(t, ok)
	calls := v.([]*models.SerializedCall)
	assert.Equal(t, calls[0].String(), "xTokens.transfer")
	assert.Equal(t, calls[1].String(), "xTokens.transferMultiasset")

	// a successful build drains the queue
	assert.Equal(t, m.Len(), 0)
	_, err = m.BuildBatch(context.Background(), batch.Options{From: "Hydration"})
	assert.True(t, errors.Is(err, models.ErrInvalidParameter))
}

func TestBuildBatch_DefaultMode(t *testing.T) {
	m := batch.NewManager(engine)
	m.AddTransaction(transfer("", "Acala", "DOT", "1000"))
	m.AddTransaction(transfer("", "AssetHubPolkadot", "DOT", "1000"))

	// the origin comes from the relay of the destination
	b, err := m.BuildBatch(context.Background(), batch.Options{To: models.ToChain("Acala")})
	assert.NoError(t, err)
	assert.Equal(t, b.Origin, "Polkadot")
	assert.Equal(t, b.Mode, batch.ModeBatch)
	assert.Equal(t, b.Call.String(), "Utility.batch")
}

func TestBuildBatch_MixedOrigins(t *testing.T) {
	builder := &countingBuilder{Engine: engine}
	m := batch.NewManager(builder)
	m.AddTransaction(transfer("Hydration", "Acala", "DOT", "1000"))
	m.AddTransaction(transfer("Acala", "Hydration", "DOT", "1000"))

	_, err := m.BuildBatch(context.Background(), batch.Options{From: "Hydration"})
	assert.True(t, errors.Is(err, models.ErrInvalidParameter))
	assert.Equal(t, builder.built, 0)
	assert.Equal(t, m.Len(), 2)
}

func TestBuildBatch_FirstErrorAbandons(t *testing.T) {
	builder := &countingBuilder{Engine: engine}
	m := batch.NewManager(builder)
	m.AddTransaction(transfer("Hydration", "Acala", "NOPE", "1000"))
	m.AddTransaction(transfer("Hydration", "Acala", "DOT", "1000"))

	_, err := m.BuildBatch(context.Background(), batch.Options{From: "Hydration"})
	assert.True(t, errors.Is(err, models.ErrInvalidCurrency))
	assert.Equal(t, builder.built, 1)
	assert.Equal(t, m.Len(), 2)
}

func TestBuildBatch_Origin(t *testing.T) {
	m := batch.NewManager(engine)
	m.AddTransaction(transfer("Hydration", "Acala", "DOT", "1000"))

	_, err := m.BuildBatch(context.Background(), batch.Options{})
	assert.True(t, errors.Is(err, models.ErrInvalidParameter))

	// a raw location names no chain to start from
	_, err = m.BuildBatch(context.Background(), batch.Options{To: models.ToLocation(xcm.ParachainLocation(1, 2000))})
	assert.True(t, errors.Is(err, models.ErrInvalidParameter))

	_, err = m.BuildBatch(context.Background(), batch.Options{From: "Hydration", Mode: "sometimes"})
	assert.True(t, errors.Is(err, models.ErrInvalidParameter))

	// the handle names the origin
	h := &fakeHandle{chain: "Hydration"}
	b, err := m.BuildBatch(context.Background(), batch.Options{Api: h, To: models.ToLocation(xcm.ParachainLocation(1, 2000))})
	assert.NoError(t, err)
	assert.Equal(t, b.Origin, "Hydration")
}

func TestBuildBatchTx(t *testing.T) {
	m := batch.NewManager(engine)
	h := &fakeHandle{chain: "Hydration"}

	m.AddTransaction(transfer("Hydration", "Acala", "DOT", "1000"))
	tx, b, err := m.BuildBatchTx(context.Background(), batch.Options{From: "Hydration"}, h)
	assert.NoError(t, err)
	assert.Equal(t, tx.ChainID, "Hydration")
	assert.Equal(t, tx.Call, b.Call)
	assert.Equal(t, len(h.bound), 1)

	m.AddTransaction(transfer("Hydration", "Acala", "DOT", "1000"))
	_, _, err = m.BuildBatchTx(context.Background(), batch.Options{From: "Hydration"}, nil)
	assert.True(t, errors.Is(err, models.ErrInvalidParameter))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]batch.Mode{
		"":          batch.ModeBatch,
		"batch":     batch.ModeBatch,
		"batchAll":  batch.ModeBatchAll,
		"batch_all": batch.ModeBatchAll,
	} {
		got, err := batch.ParseMode(in)
		assert.NoError(t, err)
		assert.Equal(t, got, want)
	}
	_, err := batch.ParseMode("atomic")
	assert.Error(t, err)
}

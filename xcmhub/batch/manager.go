// Package batch composes several transfers from one origin into a single
// utility batch call.
package batch

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "batch").Logger()
}

// Mode selects how the runtime treats a failing inner call
type Mode string

const (
	// ModeBatch stops at the first failing call, earlier calls stay applied
	ModeBatch Mode = "batch"
	// ModeBatchAll reverts every call when one fails
	ModeBatchAll Mode = "batch_all"
)

// ParseMode accepts "batch", "batch_all" and "batchAll"; empty means ModeBatch
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "batch":
		return ModeBatch, nil
	case "batch_all", "batchall":
		return ModeBatchAll, nil
	default:
		return "", models.NewInvalidParameterError("unknown batch mode %q", s)
	}
}

// CallBuilder turns intents into calls; router.Engine implements it
type CallBuilder interface {
	ResolveOrigin(intent models.TransferIntent) (string, error)
	BuildCall(ctx context.Context, intent models.TransferIntent) (*models.SerializedCall, error)
}

// Handle is a live connection to the origin chain
type Handle interface {
	ChainID() string
	CallTxMethod(ctx context.Context, call *models.SerializedCall) (*models.Transaction, error)
}

type Options struct {
	// Api, when set, names the origin chain and binds the batch
	Api  Handle
	From string
	To   *models.Destination
	Mode Mode
}

// Batch is a composed utility call
type Batch struct {
	ID     string
	Origin string
	Mode   Mode
	Items  int
	Call   *models.SerializedCall
}

// Manager queues transfers. It is safe for concurrent use; a successful
// build drains the queue.
type Manager struct {
	builder CallBuilder

	mu    sync.Mutex
	queue []models.TransferIntent
}

func NewManager(builder CallBuilder) *Manager {
	return &Manager{builder: builder}
}

// AddTransaction queues one transfer
func (m *Manager) AddTransaction(intent models.TransferIntent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, intent)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Reset drops every queued transfer
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
}

// BuildBatch builds every queued transfer in order and wraps the calls in one
// utility call. The first failing transfer abandons the whole batch.
func (m *Manager) BuildBatch(ctx context.Context, opts Options) (*Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return nil, models.NewInvalidParameterError("no transactions to batch")
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeBatch
	}
	if mode != ModeBatch && mode != ModeBatchAll {
		return nil, models.NewInvalidParameterError("unknown batch mode %q", mode)
	}

	origin, err := m.batchOrigin(opts)
	if err != nil {
		return nil, err
	}
	// reject mixed origins before building anything
	for i, intent := range m.queue {
		itemOrigin, err := m.builder.ResolveOrigin(intent)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve origin of transaction %d: %w", i, err)
		}
		if !strings.EqualFold(itemOrigin, origin) {
			return nil, models.NewInvalidParameterError(
				"transaction %d starts on %s, the batch starts on %s", i, itemOrigin, origin).
				WithHint("batch transfers from one origin chain only")
		}
	}

	calls := make([]*models.SerializedCall, 0, len(m.queue))
	for i, intent := range m.queue {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		call, err := m.builder.BuildCall(ctx, intent)
		if err != nil {
			return nil, fmt.Errorf("failed to build transaction %d: %w", i, err)
		}
		calls = append(calls, call)
	}

	b := &Batch{
		ID:     uuid.NewString(),
		Origin: origin,
		Mode:   mode,
		Items:  len(calls),
		Call: &models.SerializedCall{
			Module:     "Utility",
			Section:    string(mode),
			Parameters: models.Params{{Name: "calls", Value: calls}},
		},
	}
	m.queue = nil

	log.Info().
		Str("batch_id", b.ID).
		Str("origin", origin).
		Str("mode", string(mode)).
		Int("items", b.Items).
		Msg("Batch composed")
	return b, nil
}

// BuildBatchTx builds the batch and binds it with opts.Api, or with binder
// when no handle is given
func (m *Manager) BuildBatchTx(ctx context.Context, opts Options, binder Handle) (*models.Transaction, *Batch, error) {
	b, err := m.BuildBatch(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	h := opts.Api
	if h == nil {
		h = binder
	}
	if h == nil {
		return nil, b, models.NewInvalidParameterError("a chain handle is required to bind the batch")
	}
	tx, err := h.CallTxMethod(ctx, b.Call)
	if err != nil {
		return nil, b, fmt.Errorf("failed to bind batch %s: %w", b.ID, err)
	}
	return tx, b, nil
}

// batchOrigin picks the origin from the handle, from From, or from the relay
// of To, in that order
func (m *Manager) batchOrigin(opts Options) (string, error) {
	switch {
	case opts.Api != nil:
		return opts.Api.ChainID(), nil
	case opts.From != "":
		return m.builder.ResolveOrigin(models.TransferIntent{From: opts.From, To: opts.To})
	case opts.To != nil && opts.To.Chain == "":
		return "", models.NewInvalidParameterError("a raw destination location needs an explicit chain handle")
	case opts.To != nil:
		return m.builder.ResolveOrigin(models.TransferIntent{To: opts.To})
	default:
		return "", models.NewInvalidParameterError("batch origin can not be resolved, set from, to or a chain handle")
	}
}

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/models"
)

// ClientConfig controls dialing and failover of the websocket client
type ClientConfig struct {
	// HandshakeTimeout bounds each dial attempt
	HandshakeTimeout time.Duration
	// RequestTimeout applies when the caller's context has no deadline
	RequestTimeout time.Duration
	// MaxRetries is the number of failovers attempted for one request
	MaxRetries int
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		RequestTimeout:   15 * time.Second,
		MaxRetries:       1,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error returned by the node
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// WSClient is a JSON-RPC client for a substrate node. Requests are serialized
// over one connection; when it breaks the client fails over to the next endpoint.
type WSClient struct {
	chainID   string
	endpoints []string
	config    ClientConfig
	dialer    websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	current int
	nextID  uint64
	spec    *ChainSpec
	closed  bool
}

// Dial connects to the first reachable endpoint
func Dial(ctx context.Context, chainID string, endpoints []string, config ClientConfig) (*WSClient, error) {
	valid := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		u, err := url.Parse(e)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			log.Warn().Str("chain", chainID).Str("url", e).Msg("Invalid websocket endpoint, skipping")
			continue
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no usable endpoint for %s", chainID)
	}

	c := &WSClient{
		chainID:   chainID,
		endpoints: valid,
		config:    config,
		dialer:    websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout},
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectFrom(ctx, 0); err != nil {
		return nil, err
	}
	log.Info().
		Str("chain", chainID).
		Str("url", c.endpoints[c.current]).
		Int("backups", len(valid)-1).
		Msg("Chain client connected")
	return c, nil
}

// NewDialer adapts Dial to the pool's Dialer
func NewDialer(config ClientConfig) Dialer {
	return func(ctx context.Context, chainID string, endpoints []string) (Api, error) {
		return Dial(ctx, chainID, endpoints, config)
	}
}

// connectFrom tries every endpoint once, starting at index start
func (c *WSClient) connectFrom(ctx context.Context, start int) error {
	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		idx := (start + i) % len(c.endpoints)
		conn, _, err := c.dialer.DialContext(ctx, c.endpoints[idx], nil)
		if err != nil {
			log.Debug().Err(err).Str("url", c.endpoints[idx]).Msg("Dial failed")
			lastErr = err
			continue
		}
		c.conn = conn
		c.current = idx
		return nil
	}
	return fmt.Errorf("failed to connect to %s: %w", c.chainID, lastErr)
}

func (c *WSClient) ChainID() string {
	return c.chainID
}

// Endpoint returns the endpoint currently in use
func (c *WSClient) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoints[c.current]
}

// Call sends one request and decodes the result into out
func (c *WSClient) Call(ctx context.Context, method string, out any, params ...any) error {
	if params == nil {
		params = []any{}
	}
	if _, ok := ctx.Deadline(); !ok && c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("client is disconnected")
	}

	// a previous request was abandoned mid-flight
	if c.conn == nil {
		if err := c.connectFrom(ctx, c.current); err != nil {
			return fmt.Errorf("%s failed: %w", method, err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// failover to the next endpoint
			_ = c.conn.Close()
			c.conn = nil
			if err := c.connectFrom(ctx, c.current+1); err != nil {
				return fmt.Errorf("%s failed: %w (original: %w)", method, err, lastErr)
			}
			log.Info().Str("chain", c.chainID).Str("url", c.endpoints[c.current]).Msg("Failover to endpoint")
		}
		raw, err := c.roundTrip(ctx, method, params)
		if err != nil && ctx.Err() != nil {
			// the reply may still arrive, the connection can not be reused
			_ = c.conn.Close()
			c.conn = nil
			return fmt.Errorf("%s abandoned: %w", method, ctx.Err())
		}
		if err == nil {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", method, err)
			}
			return nil
		}
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			// the node answered, another endpoint will not do better
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%s failed after %d attempts: %w", method, c.config.MaxRetries+1, lastErr)
}

func (c *WSClient) roundTrip(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	c.nextID++
	id := c.nextID
	conn := c.conn
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)
	// cancellation unblocks a pending read or write
	stop := context.AfterFunc(ctx, func() {
		now := time.Now()
		_ = conn.SetWriteDeadline(now)
		_ = conn.SetReadDeadline(now)
	})
	defer stop()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}
	for {
		var resp rpcResponse
		if err := conn.ReadJSON(&resp); err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", method, err)
		}
		// notifications and stale replies carry another id
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

type systemProperties struct {
	SS58Format    *uint16         `json:"ss58Format"`
	TokenSymbol   json.RawMessage `json:"tokenSymbol"`
	TokenDecimals json.RawMessage `json:"tokenDecimals"`
}

type runtimeVersion struct {
	SpecName    string `json:"specName"`
	SpecVersion uint32 `json:"specVersion"`
}

// GetChainSpecData reads name, properties, genesis hash and runtime version
func (c *WSClient) GetChainSpecData(ctx context.Context) (*ChainSpec, error) {
	spec := &ChainSpec{}
	if err := c.Call(ctx, "system_chain", &spec.Name); err != nil {
		return nil, err
	}
	var props systemProperties
	if err := c.Call(ctx, "system_properties", &props); err != nil {
		return nil, err
	}
	if props.SS58Format != nil {
		spec.SS58Prefix = *props.SS58Format
	}
	spec.TokenSymbol = firstOf[string](props.TokenSymbol)
	spec.TokenDecimals = firstOf[int](props.TokenDecimals)

	if err := c.Call(ctx, "chain_getBlockHash", &spec.GenesisHash, 0); err != nil {
		return nil, err
	}
	var rv runtimeVersion
	if err := c.Call(ctx, "state_getRuntimeVersion", &rv); err != nil {
		return nil, err
	}
	spec.SpecName = rv.SpecName
	spec.SpecVersion = rv.SpecVersion

	c.mu.Lock()
	c.spec = spec
	c.mu.Unlock()
	return spec, nil
}

// firstOf reads a property that is either a value or a list of values
func firstOf[T any](raw json.RawMessage) T {
	var v T
	if len(raw) == 0 {
		return v
	}
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return v
}

// CreateAccountID decodes an ss58 address of any network
func (c *WSClient) CreateAccountID(address string) (string, error) {
	return SS58AccountIDs{}.CreateAccountID(address)
}

// CallTxMethod binds the call to the chain's genesis hash and runtime
func (c *WSClient) CallTxMethod(ctx context.Context, call *models.SerializedCall) (*models.Transaction, error) {
	if call == nil || call.Module == "" || call.Section == "" {
		return nil, errors.New("call must name a module and a section")
	}
	c.mu.Lock()
	spec := c.spec
	c.mu.Unlock()
	if spec == nil {
		var err error
		if spec, err = c.GetChainSpecData(ctx); err != nil {
			return nil, fmt.Errorf("failed to read chain spec of %s: %w", c.chainID, err)
		}
	}
	return &models.Transaction{
		ChainID:     c.chainID,
		GenesisHash: spec.GenesisHash,
		SpecName:    spec.SpecName,
		Call:        call,
	}, nil
}

func (c *WSClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection to %s: %w", c.chainID, err)
	}
	log.Debug().Str("chain", c.chainID).Msg("Chain client disconnected")
	return nil
}

// Package relay talks JSON-RPC to the account-abstraction wallet relay. The
// relay prepares, signs and sponsors each call; this package only moves the
// abstract call across the wire and reads back its status.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

const (
	methodPrepareCalls      = "wallet_prepareCalls"
	methodSendPreparedCalls = "wallet_sendPreparedCalls"
	methodGetCallsStatus    = "wallet_getCallsStatus"
)

var _ core.ChainRelay = (*Client)(nil)

// RPCError is an error object returned by the relay.
type RPCError struct {
	Code    int64
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("relay rpc error %d: %s", e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL       string // Required, e.g. https://alchemy-proxy.virtuals.io/api/proxy/wallet
	ChainID       int64  // Required
	WalletAddress string // Required, the smart account that sends calls
	EntityID      int64
	PolicyID      string // Paymaster policy; empty disables sponsorship
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client implements core.ChainRelay.
type Client struct {
	endpoint string
	chainID  int64
	from     string
	entityID int64
	policyID string
	hc       *http.Client
	logger   *slog.Logger
	nextID   atomic.Int64
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	switch {
	case base == "":
		return nil, errors.New("relay: base url is required")
	case opts.ChainID <= 0:
		return nil, errors.New("relay: chain id is required")
	case strings.TrimSpace(opts.WalletAddress) == "":
		return nil, errors.New("relay: wallet address is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: base + "/" + strconv.FormatInt(opts.ChainID, 10),
		chainID:  opts.ChainID,
		from:     opts.WalletAddress,
		entityID: opts.EntityID,
		policyID: opts.PolicyID,
		hc:       hc,
		logger:   logger.With("component", "relay"),
	}, nil
}

// Submit prepares and sends call. The returned handle is the prepared call id.
func (c *Client) Submit(ctx context.Context, call core.Call) (core.Handle, error) {
	prepared, err := c.rpc(ctx, methodPrepareCalls, []any{c.prepareParams(call)})
	if err != nil {
		return "", err
	}
	if !prepared.IsObject() {
		return "", apperrors.Wrap(errors.New("prepare result is not an object"), apperrors.ErrCodeDecode, "relay")
	}

	var send map[string]any
	if err := json.Unmarshal([]byte(prepared.Raw), &send); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeDecode, "decode prepared calls")
	}
	delete(send, "signatureRequest")
	if c.policyID != "" {
		send["capabilities"] = c.capabilities()
	}

	sent, err := c.rpc(ctx, methodSendPreparedCalls, []any{send})
	if err != nil {
		return "", err
	}
	id := sent.Get("preparedCallIds.0").String()
	if id == "" {
		return "", apperrors.Wrap(errors.New("missing preparedCallIds"), apperrors.ErrCodeDecode, "relay")
	}
	c.logger.DebugContext(ctx, "call submitted", "method", call.Method, "handle", id)
	return core.Handle(id), nil
}

// Confirm fetches the status of a previously submitted call.
func (c *Client) Confirm(ctx context.Context, handle core.Handle) (*core.CallStatus, error) {
	res, err := c.rpc(ctx, methodGetCallsStatus, []any{string(handle)})
	if err != nil {
		return nil, err
	}
	return parseStatus(res), nil
}

// Ping checks the relay is reachable by querying a dummy status. Any JSON-RPC
// response, including an error object, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.rpc(ctx, methodGetCallsStatus, []any{"0x0"})
	var rpcErr *RPCError
	if err == nil || errors.As(err, &rpcErr) {
		return nil
	}
	return err
}

func (c *Client) prepareParams(call core.Call) map[string]any {
	params := map[string]any{
		"calls": []any{map[string]any{
			"to":     call.Target,
			"method": call.Method,
			"args":   call.Args,
		}},
		"from":    c.from,
		"chainId": "0x" + strconv.FormatInt(c.chainID, 16),
	}
	if c.entityID != 0 {
		params["entityId"] = c.entityID
	}
	if c.policyID != "" {
		params["capabilities"] = c.capabilities()
	}
	return params
}

func (c *Client) capabilities() map[string]any {
	return map[string]any{"paymasterService": map[string]any{"policyId": c.policyID}}
}

func parseStatus(res gjson.Result) *core.CallStatus {
	st := &core.CallStatus{Status: int(res.Get("status").Int())}
	res.Get("receipts").ForEach(func(_, r gjson.Result) bool {
		receipt := core.Receipt{TransactionHash: r.Get("transactionHash").String()}
		r.Get("logs").ForEach(func(_, l gjson.Result) bool {
			receipt.Logs = append(receipt.Logs, core.Log{
				Address: l.Get("address").String(),
				Data:    l.Get("data").String(),
			})
			return true
		})
		st.Receipts = append(st.Receipts, receipt)
		return true
	})
	return st
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

func (c *Client) rpc(ctx context.Context, method string, params []any) (gjson.Result, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return gjson.Result{}, ctx.Err()
		}
		return gjson.Result{}, apperrors.Wrapf(err, apperrors.ErrCodeConnectivity, "relay %s", method)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return gjson.Result{}, apperrors.Wrapf(err, apperrors.ErrCodeConnectivity, "relay %s", method)
	}
	if resp.StatusCode >= 500 {
		return gjson.Result{}, apperrors.Wrapf(fmt.Errorf("status %d", resp.StatusCode), apperrors.ErrCodeConnectivity, "relay %s", method)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, apperrors.Wrapf(fmt.Errorf("status %d: invalid json", resp.StatusCode), apperrors.ErrCodeDecode, "relay %s", method)
	}
	doc := gjson.ParseBytes(raw)
	if e := doc.Get("error"); e.Exists() && e.Type != gjson.Null {
		msg := e.Get("message").String()
		if msg == "" {
			msg = e.Raw
		}
		return gjson.Result{}, &RPCError{Code: e.Get("code").Int(), Message: msg}
	}
	return doc.Get("result"), nil
}

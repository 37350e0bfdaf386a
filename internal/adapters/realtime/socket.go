package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/net/websocket"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/dispatch"
)

// Socket event names.
const (
	EventNewTask    = "onNewTask"
	EventEvaluate   = "onEvaluate"
	EventRoomJoined = "roomJoined"
)

// SDKVersion is reported to the server on connect.
const SDKVersion = "0.1.0"

// Frame is one server message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SocketOptions configures a SocketSource.
type SocketOptions struct {
	URL           string // ws:// or wss:// endpoint
	Origin        string // Optional; defaults to the URL with an http(s) scheme
	WalletAddress string
	// Evaluator also subscribes to evaluation requests for this wallet.
	Evaluator    bool
	Ingress      *Ingress
	Logger       *slog.Logger
	MaxReconnect time.Duration // Cap on reconnect backoff (default 30s)
}

// SocketSource subscribes to job events over a websocket and reconnects with
// backoff until its context ends.
type SocketSource struct {
	opts   SocketOptions
	logger *slog.Logger
}

// NewSocketSource validates opts.
func NewSocketSource(opts SocketOptions) (*SocketSource, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("realtime: socket url is required")
	}
	if opts.WalletAddress == "" {
		return nil, errors.New("realtime: wallet address is required")
	}
	if opts.Ingress == nil {
		return nil, errors.New("realtime: ingress is required")
	}
	if opts.MaxReconnect <= 0 {
		opts.MaxReconnect = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SocketSource{opts: opts, logger: logger.With("component", "socket")}, nil
}

// Run keeps a subscription open until ctx is cancelled.
func (s *SocketSource) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = s.opts.MaxReconnect

	for {
		connected, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			b.Reset()
		}
		wait := b.NextBackOff()
		s.logger.WarnContext(ctx, "socket disconnected", "error", err, "retry_in", wait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (s *SocketSource) dialConfig() (*websocket.Config, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse socket url: %w", err)
	}
	q := u.Query()
	q.Set("walletAddress", s.opts.WalletAddress)
	if s.opts.Evaluator {
		q.Set("evaluatorAddress", s.opts.WalletAddress)
	}
	u.RawQuery = q.Encode()

	origin := s.opts.Origin
	if origin == "" {
		o := *u
		o.Scheme = strings.Replace(o.Scheme, "ws", "http", 1)
		o.Path, o.RawQuery = "", ""
		origin = o.String()
	}
	cfg, err := websocket.NewConfig(u.String(), origin)
	if err != nil {
		return nil, err
	}
	cfg.Header.Set("x-sdk-version", SDKVersion)
	cfg.Header.Set("x-sdk-language", "go")
	return cfg, nil
}

// session runs one connection. connected reports whether the dial succeeded.
func (s *SocketSource) session(ctx context.Context) (connected bool, err error) {
	cfg, err := s.dialConfig()
	if err != nil {
		return false, err
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "socket connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	for {
		var frame Frame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			return true, err
		}
		s.handle(ctx, frame)
	}
}

func (s *SocketSource) handle(ctx context.Context, frame Frame) {
	var kind dispatch.Kind
	switch frame.Event {
	case EventNewTask:
		kind = dispatch.KindNewTask
	case EventEvaluate:
		kind = dispatch.KindEvaluate
	case EventRoomJoined:
		s.logger.InfoContext(ctx, "joined room", "data", string(frame.Data))
		return
	default:
		s.logger.DebugContext(ctx, "ignoring socket event", "event", frame.Event)
		return
	}
	var job model.Job
	if err := json.Unmarshal(frame.Data, &job); err != nil {
		s.logger.WarnContext(ctx, "undecodable job event", "event", frame.Event, "error", err)
		return
	}
	s.opts.Ingress.Deliver(ctx, kind, &job)
}

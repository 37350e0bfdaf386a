// Package acpapi is the REST client for the ACP directory and job index.
package acpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

const walletHeader = "wallet-address"

var _ core.ACPAPI = (*Client)(nil)

// Error is a non-2xx response from the API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("acp api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("acp api: status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the status is worth another attempt.
func (e *Error) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// RetryConfig bounds retries of transient failures.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig retries three times starting at 250ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialInterval: 250 * time.Millisecond, MaxInterval: 5 * time.Second}
}

// Options configures a Client.
type Options struct {
	BaseURL       string       // Required, e.g. https://acpx.virtuals.gg/api
	WalletAddress string       // Required, sent on job endpoints
	HTTPClient    *http.Client // Optional; defaults to a 15s-timeout client
	Retry         *RetryConfig // Optional; nil uses DefaultRetryConfig
	Logger        *slog.Logger
}

// Client implements core.ACPAPI over HTTP.
type Client struct {
	base   string
	wallet string
	hc     *http.Client
	retry  RetryConfig
	logger *slog.Logger
	tracer trace.Tracer
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("acpapi: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("acpapi: invalid base url: %w", err)
	}
	if strings.TrimSpace(opts.WalletAddress) == "" {
		return nil, errors.New("acpapi: wallet address is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	retry := DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   base,
		wallet: opts.WalletAddress,
		hc:     hc,
		retry:  retry,
		logger: logger.With("component", "acpapi"),
		tracer: otel.Tracer("github.com/quocan1101-cloud/acp-hackathon/internal/adapters/acpapi"),
	}, nil
}

// ListJobs returns one page of the agent's active, completed or cancelled jobs.
func (c *Client) ListJobs(ctx context.Context, kind model.JobListKind, page model.Pagination) ([]*model.Job, error) {
	switch kind {
	case model.JobListActive, model.JobListCompleted, model.JobListCancelled:
	default:
		return nil, apperrors.Validationf("unknown job listing %q", kind)
	}
	page = page.Normalize()
	q := url.Values{}
	q.Set("pagination[page]", strconv.Itoa(page.Page))
	q.Set("pagination[pageSize]", strconv.Itoa(page.PageSize))

	var jobs []*model.Job
	if err := c.get(ctx, "/jobs/"+string(kind), q, true, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob returns a fresh job snapshot, or nil when the API has none.
func (c *Client) GetJob(ctx context.Context, jobID int64) (*model.Job, error) {
	var job *model.Job
	if err := c.get(ctx, "/jobs/"+strconv.FormatInt(jobID, 10), nil, true, &job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetMemo returns one memo of a job.
func (c *Client) GetMemo(ctx context.Context, jobID, memoID int64) (*model.Memo, error) {
	var memo *model.Memo
	path := fmt.Sprintf("/jobs/%d/memos/%d", jobID, memoID)
	if err := c.get(ctx, path, nil, true, &memo); err != nil {
		return nil, err
	}
	return memo, nil
}

// SearchAgents queries the directory.
func (c *Client) SearchAgents(ctx context.Context, search model.AgentSearch) ([]*model.Agent, error) {
	var agents []*model.Agent
	if err := c.get(ctx, "/agents/v2/search", c.searchQuery(search), false, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (c *Client) searchQuery(search model.AgentSearch) url.Values {
	q := url.Values{}
	q.Set("search", search.Keyword)
	if len(search.SortBy) > 0 {
		keys := make([]string, 0, len(search.SortBy))
		for _, s := range search.SortBy {
			keys = append(keys, string(s))
		}
		q.Set("sortBy", strings.Join(keys, ","))
	}
	if search.TopK > 0 {
		q.Set("top_k", strconv.Itoa(search.TopK))
	}
	if search.ExcludeSelf {
		q.Set("walletAddressesToExclude", c.wallet)
	}
	if search.Cluster != "" {
		q.Set("cluster", search.Cluster)
	}
	if search.Graduation != "" {
		q.Set("graduationStatus", string(search.Graduation))
	}
	if search.Online != "" {
		q.Set("onlineStatus", string(search.Online))
	}
	return q
}

// GetAgent looks up an agent by wallet. It returns nil, nil when none exists.
func (c *Client) GetAgent(ctx context.Context, wallet string) (*model.Agent, error) {
	q := url.Values{}
	q.Set("filters[walletAddress]", wallet)
	var agents []*model.Agent
	if err := c.get(ctx, "/agents", q, false, &agents); err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, nil
	}
	return agents[0], nil
}

// NotifyJobInitiated posts the new job to the index.
func (c *Client) NotifyJobInitiated(ctx context.Context, n core.InitiateNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, c.base, body, false)
	return err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, withWallet bool, out any) error {
	target := c.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	raw, err := c.do(ctx, http.MethodGet, target, nil, withWallet)
	if err != nil {
		return err
	}
	data := gjson.GetBytes(raw, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeDecode, "decode %s", path)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, withWallet bool) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "acpapi "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.request.method", method), attribute.String("url.full", target))

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialInterval
	if c.retry.MaxInterval > 0 {
		b.MaxInterval = c.retry.MaxInterval
	}
	attempt := 0
	raw, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		out, err := c.once(ctx, method, target, body, withWallet)
		if err != nil {
			c.logger.DebugContext(ctx, "acp api request failed", "method", method, "url", target, "attempt", attempt, "error", err)
		}
		return out, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(max(c.retry.MaxRetries, 0)+1)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, c.classify(err)
	}
	return raw, nil
}

func (c *Client) once(ctx context.Context, method, target string, body []byte, withWallet bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withWallet {
		req.Header.Set(walletHeader, c.wallet)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		if apiErr.Retryable() {
			return nil, apiErr
		}
		return nil, backoff.Permanent(apiErr)
	}
	if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
		return nil, backoff.Permanent(&Error{StatusCode: resp.StatusCode, Message: msg.String()})
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	for _, path := range []string{"error.message", "message", "error"} {
		if v := gjson.GetBytes(raw, path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return strings.TrimSpace(string(raw[:min(len(raw), 512)]))
}

// classify maps transport failures to connectivity errors. API errors are
// returned as *Error so callers can inspect the status code.
func (c *Client) classify(err error) error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return apperrors.Wrap(apiErr, apperrors.ErrCodeNotFound, "acp api")
		}
		return apiErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrCodeConnectivity, "acp api unreachable")
}

package config

import (
	"net/url"
	"strings"
	"time"
)

// RetryConfig bounds submit/confirm attempts per contract call and the
// status polling of each submitted handle.
type RetryConfig struct {
	MaxAttempts  int           `env:"TX_MAX_ATTEMPTS"  envDefault:"3"`
	BackoffBase  time.Duration `env:"TX_BACKOFF_BASE"  envDefault:"2s"`
	PollInterval time.Duration `env:"TX_POLL_INTERVAL" envDefault:"2s"`
	MaxPolls     int           `env:"TX_MAX_POLLS"     envDefault:"60"`
}

// Sanitize clamps the retry budget.
func (c *RetryConfig) Sanitize() {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.MaxAttempts > 10 {
		c.MaxAttempts = 10
	}
	if c.BackoffBase < 0 {
		c.BackoffBase = 0
	}
	if c.PollInterval < 100*time.Millisecond {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.MaxPolls < 1 {
		c.MaxPolls = 1
	}
}

// DispatchConfig controls the event dispatcher.
type DispatchConfig struct {
	// Concurrency caps in-flight handlers; 0 runs one goroutine per event.
	Concurrency  int           `env:"DISPATCH_CONCURRENCY"   envDefault:"0"`
	RequeueDelay time.Duration `env:"DISPATCH_REQUEUE_DELAY" envDefault:"5s"`
	MaxRequeues  int           `env:"DISPATCH_MAX_REQUEUES"  envDefault:"20"`
}

// Sanitize applies guardrails to dispatcher values.
func (c *DispatchConfig) Sanitize() {
	if c.Concurrency < 0 {
		c.Concurrency = 0
	}
	if c.RequeueDelay <= 0 {
		c.RequeueDelay = 5 * time.Second
	}
	if c.MaxRequeues < 0 {
		c.MaxRequeues = 0
	}
}

// IngressConfig selects the event sources.
type IngressConfig struct {
	SocketEnabled bool   `env:"INGRESS_SOCKET_ENABLED" envDefault:"false"`
	SocketURL     string `env:"INGRESS_SOCKET_URL"`
	// PollInterval drives the REST poller; 0 disables it.
	PollInterval time.Duration `env:"INGRESS_POLL_INTERVAL" envDefault:"10s"`
	PollPageSize int           `env:"INGRESS_POLL_PAGE_SIZE" envDefault:"50"`
	// DedupeTTL is how long a delivered (job, memo, kind) is remembered.
	DedupeTTL time.Duration `env:"INGRESS_DEDUPE_TTL" envDefault:"1h"`
}

// Sanitize derives the socket URL from apiURL when unset.
func (c *IngressConfig) Sanitize(apiURL string) {
	c.SocketURL = strings.TrimSpace(c.SocketURL)
	if c.SocketURL == "" {
		c.SocketURL = SocketURLFromAPI(apiURL)
	}
	if c.SocketURL == "" {
		c.SocketEnabled = false
	}
	if c.PollInterval < 0 {
		c.PollInterval = 0
	}
	if c.PollInterval > 0 && c.PollInterval < time.Second {
		c.PollInterval = time.Second
	}
	if c.PollPageSize <= 0 || c.PollPageSize > 100 {
		c.PollPageSize = 50
	}
	if c.DedupeTTL <= 0 {
		c.DedupeTTL = time.Hour
	}
}

// SocketURLFromAPI maps an http(s) API base onto its ws(s) twin.
func SocketURLFromAPI(apiURL string) string {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return ""
	}
	return u.String()
}

package config

import (
	"errors"
	"fmt"
)

// AppConfig is the agent configuration, composed from the domain configs
// in this package and loaded from environment variables with
// github.com/caarlos0/env:
//   - chain.go: network preset and contract addresses (ACP_*)
//   - agent.go: wallet, roles and role behaviour (AGENT_*)
//   - runtime.go: transaction retry, dispatch and ingress
//   - database.go: optional Postgres journal and Redis cache
//   - http.go: ops HTTP server
//   - observability.go: metrics, tracing and failure notifications
type AppConfig struct {
	Chain ChainConfig `envPrefix:"ACP_"`
	Agent AgentConfig `envPrefix:"AGENT_"`

	Retry    RetryConfig
	Dispatch DispatchConfig
	Ingress  IngressConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Observability ObservabilityConfig

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// Chain presets are resolved here, so call it before Validate.
func (c *AppConfig) Sanitize() {
	c.Chain.Sanitize()
	c.Agent.Sanitize()
	c.Retry.Sanitize()
	c.Dispatch.Sanitize()
	c.Ingress.Sanitize(c.Chain.APIURL)
	c.Postgres.Sanitize()
	c.Redis.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
}

// Validate reports every configuration error that would stop the agent
// from starting.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.Chain.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chain: %w", err))
	}
	if err := c.Agent.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("agent: %w", err))
	}
	if !c.Ingress.SocketEnabled && c.Ingress.PollInterval <= 0 {
		errs = append(errs, errors.New("ingress: enable the socket or set a poll interval"))
	}
	return errors.Join(errs...)
}

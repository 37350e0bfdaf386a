package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DBConfig contains the optional PostgreSQL journal settings. An empty Host
// disables the journal.
type DBConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"acp"`
	Password string `env:"PASSWORD"                envDefault:"acp"`
	Name     string `env:"NAME"                    envDefault:"acp_agent"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the agent applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
	MaxOpenConns         int  `env:"MAX_OPEN_CONNS"          envDefault:"10"`
}

// Sanitize trims connection fields.
func (c *DBConfig) Sanitize() {
	c.Host = strings.TrimSpace(c.Host)
	if c.Port <= 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
}

// Enabled reports whether a journal database is configured.
func (c *DBConfig) Enabled() bool { return c.Host != "" }

// DSN returns the pgx connection URL.
func (c *DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// String hides the password.
func (c DBConfig) String() string {
	return fmt.Sprintf("postgres://%s@%s/%s", c.User, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Name)
}

// RedisConfig contains the optional Redis settings. An empty URI disables
// the agent cache and event dedupe.
type RedisConfig struct {
	URI       string        `env:"URI"`
	Password  string        `env:"PASSWORD"`
	Namespace string        `env:"NAMESPACE"       envDefault:"acp"`
	AgentTTL  time.Duration `env:"AGENT_CACHE_TTL" envDefault:"10m"`
}

// Sanitize trims the URI and namespace.
func (c *RedisConfig) Sanitize() {
	c.URI = strings.TrimSpace(c.URI)
	c.Namespace = strings.Trim(strings.TrimSpace(c.Namespace), ":")
	if c.AgentTTL <= 0 {
		c.AgentTTL = 10 * time.Minute
	}
}

// Enabled reports whether Redis is configured.
func (c *RedisConfig) Enabled() bool { return c.URI != "" }

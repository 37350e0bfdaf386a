package config

import "strings"

// HTTPConfig contains the ops HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the ops server to; empty disables it.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`
}

// Sanitize trims the bind address.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
}

// Enabled reports whether the ops server should start.
func (h *HTTPConfig) Enabled() bool { return h.Addr != "" }

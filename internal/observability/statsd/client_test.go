package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestFormatTags(t *testing.T) {
	t.Parallel()

	got := formatTags(
		map[string]string{"env": "test", " ": "dropped"},
		map[string]string{"method": " signMemo ", "env": "override"},
	)
	if want := "|#env:override,method:signMemo"; got != want {
		t.Fatalf("formatTags = %q, want %q", got, want)
	}
	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("expected empty tags, got %q", got)
	}
}

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"acp", "tx.attempt", "acp.tx.attempt"},
		{"", "tx attempt", "tx_attempt"},
		{"acp", "dispatch//event", "acp.dispatch__event"},
		{"acp", "..tx..attempt..", "acp.tx.attempt"},
		{"acp", "  ", ""},
	}
	for _, tt := range tests {
		c := &Client{prefix: tt.prefix}
		if got := c.metricName(tt.name); got != tt.want {
			t.Errorf("metricName(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestClientWritesLines(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listener unavailable: %v", err)
	}
	defer pc.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     ".acp.",
		GlobalTags: map[string]string{"service": "agent"},
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer client.Close()

	if !client.Enabled() {
		t.Fatal("expected client to be enabled")
	}

	client.Count("tx.attempt", 1, map[string]string{"result": "confirmed"})
	client.Timing("tx.duration", 1500*time.Millisecond, nil)

	want := []string{
		"acp.tx.attempt:1|c|#result:confirmed,service:agent",
		"acp.tx.duration:1500|ms|#service:agent",
	}
	buf := make([]byte, 512)
	for _, w := range want {
		_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got := string(buf[:n]); got != w {
			t.Fatalf("line = %q, want %q", got, w)
		}
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	nilClient.Count("x", 1, nil)
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	tags := map[string]string{"a": "1"}
	r.Count("x", 2, tags)
	tags["a"] = "mutated"
	r.Gauge("y", 3.5, nil)

	got := r.Named("x")
	if len(got) != 1 || got[0].Value != 2 || got[0].Tags["a"] != "1" {
		t.Fatalf("unexpected recorded metrics: %+v", got)
	}
	if len(r.Named("y")) != 1 {
		t.Fatal("expected gauge to be recorded")
	}
}

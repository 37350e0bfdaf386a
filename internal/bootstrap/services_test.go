package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocan1101-cloud/acp-hackathon/config"
	"github.com/quocan1101-cloud/acp-hackathon/internal/testutil"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	chain, ok := config.Preset(config.NetworkBaseSepolia)
	require.True(t, ok)
	cfg := &config.AppConfig{
		Chain: chain,
		Agent: config.AgentConfig{
			WalletAddress:   "0x1111111111111111111111111111111111111111",
			EntityID:        "7",
			Roles:           "buyer,evaluator",
			DeliverableType: "text",
		},
		Retry:    config.RetryConfig{MaxAttempts: 2, BackoffBase: time.Second},
		Dispatch: config.DispatchConfig{RequeueDelay: time.Second, MaxRequeues: 3},
		Ingress:  config.IngressConfig{PollInterval: 10 * time.Second, PollPageSize: 20, DedupeTTL: time.Hour},
		HTTP:     config.HTTPConfig{Addr: ":0"},
	}
	cfg.Sanitize()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildServices_MinimalWiring(t *testing.T) {
	cfg := testConfig(t)

	services, err := BuildServices(ServiceDeps{Config: cfg, Logger: quietLogger()})
	require.NoError(t, err)

	assert.NotNil(t, services.Client)
	assert.NotNil(t, services.Runner)
	assert.NotNil(t, services.Dispatcher)
	assert.NotNil(t, services.Poller)
	assert.Nil(t, services.Socket)
	assert.Nil(t, services.Journal)
	assert.Nil(t, services.Cache)
	assert.Equal(t, cfg.Agent.WalletAddress, services.Client.AgentAddress())

	checks := readinessChecks(services)
	assert.Contains(t, checks, "relay")
	assert.Contains(t, checks, "acp_api")
	assert.NotContains(t, checks, "postgres")
	assert.NotContains(t, checks, "redis")
}

func TestBuildServices_SocketAndCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	cfg := testConfig(t)
	cfg.Ingress.SocketEnabled = true
	cfg.Ingress.Sanitize(cfg.Chain.APIURL)

	client := testutil.SetupTestRedis(t)
	services, err := BuildServices(ServiceDeps{Config: cfg, RedisClient: client, Logger: quietLogger()})
	require.NoError(t, err)

	assert.NotNil(t, services.Socket)
	assert.NotNil(t, services.Cache)
	assert.NoError(t, services.Cache.Health(context.Background()))
	assert.Contains(t, readinessChecks(services), "redis")
}

func TestBuildServices_Errors(t *testing.T) {
	_, err := BuildServices(ServiceDeps{})
	require.Error(t, err)

	cfg := testConfig(t)
	cfg.Agent.EntityID = "not-a-number"
	_, err = BuildServices(ServiceDeps{Config: cfg, Logger: quietLogger()})
	require.ErrorContains(t, err, "entity id")

	cfg = testConfig(t)
	cfg.Agent.EvaluationExpression = "job.["
	_, err = BuildServices(ServiceDeps{Config: cfg, Logger: quietLogger()})
	require.ErrorContains(t, err, "evaluation policy")

	cfg = testConfig(t)
	cfg.Ingress.PollInterval = 0
	_, err = BuildServices(ServiceDeps{Config: cfg, Logger: quietLogger()})
	require.Error(t, err)
}

func TestBuildHTTPHandler_Healthz(t *testing.T) {
	services, err := BuildServices(ServiceDeps{Config: testConfig(t), Logger: quietLogger()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	buildHTTPHandler(services, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	buildHTTPHandler(services, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dispatch/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "queued")
}

func TestBuildObservability_Disabled(t *testing.T) {
	obs := buildObservability(context.Background(), quietLogger(), config.ObservabilityConfig{}, "0xabc")
	assert.Nil(t, obs.MetricsSink)
	assert.Nil(t, obs.FailureNotifier)
	assert.Nil(t, obs.ShutdownTracing)
	obs.Close(context.Background(), quietLogger())
}

func TestBuildObservability_SlackNotifier(t *testing.T) {
	cfg := config.ObservabilityConfig{
		Notifications: config.ObservabilityNotificationsConfig{
			Enabled: true,
			Slack: config.SlackNotificationConfig{
				Enabled:    true,
				WebhookURL: "https://hooks.slack.com/services/T000/B000/XXXX",
			},
		},
	}
	cfg.Sanitize()
	obs := buildObservability(context.Background(), quietLogger(), cfg, "0xabc")
	require.NotNil(t, obs.FailureNotifier)
	assert.True(t, obs.FailureNotifier.Enabled())

	cfg.Notifications.Slack.Enabled = false
	assert.Nil(t, buildObservability(context.Background(), quietLogger(), cfg, "0xabc").FailureNotifier)
}

func TestRun_RequiresConfig(t *testing.T) {
	require.Error(t, Run(context.Background(), nil, quietLogger()))
}

func TestPingCollaborators(t *testing.T) {
	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"unknown call id"}}`))
	}))
	defer relaySrv.Close()
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/active", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer apiSrv.Close()

	cfg := testConfig(t)
	cfg.Chain.RelayURL = relaySrv.URL
	cfg.Chain.APIURL = apiSrv.URL
	services, err := BuildServices(ServiceDeps{Config: cfg, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, pingCollaborators(context.Background(), services))

	relaySrv.Close()
	err = pingCollaborators(context.Background(), services)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay unreachable")
}

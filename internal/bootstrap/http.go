package bootstrap

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	httpx "github.com/quocan1101-cloud/acp-hackathon/internal/http"
)

// buildHTTPHandler exposes health, readiness and the ops endpoints over the
// wired services.
func buildHTTPHandler(services *ServiceContainer, logger *slog.Logger) http.Handler {
	rs := httpx.RouterServices{
		Stats:  services.Dispatcher,
		Jobs:   services.Client,
		Ready:  readinessChecks(services),
		Logger: logger,
	}
	if services.Journal != nil {
		rs.Journal = services.Journal
	}
	return httpx.NewRouter(rs)
}

func readinessChecks(services *ServiceContainer) map[string]httpx.HealthChecker {
	checks := map[string]httpx.HealthChecker{
		"relay": httpx.HealthCheckFunc(services.Relay.Ping),
		"acp_api": httpx.HealthCheckFunc(func(ctx context.Context) error {
			_, err := services.API.ListJobs(ctx, model.JobListActive, model.Pagination{Page: 1, PageSize: 1})
			return err
		}),
	}
	if services.Journal != nil {
		checks["postgres"] = services.Journal
	}
	if services.Cache != nil {
		checks["redis"] = services.Cache
	}
	return checks
}

// newHTTPServer returns nil when the ops server is disabled.
func newHTTPServer(addr string, services *ServiceContainer, logger *slog.Logger) *httpx.Server {
	if addr == "" {
		return nil
	}
	return httpx.NewServer(addr, buildHTTPHandler(services, logger), logger)
}

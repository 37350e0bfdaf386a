package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/quocan1101-cloud/acp-hackathon/config"
)

const shutdownGrace = 10 * time.Second

// infra holds the optional stateful connections.
type infra struct {
	db    *sql.DB
	redis *redis.Client
}

func (i *infra) close(logger *slog.Logger) {
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}
}

// connectInfra opens Postgres and Redis when configured. A configured store
// that cannot be reached is fatal.
func connectInfra(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*infra, error) {
	out := &infra{}
	if cfg.Postgres.Enabled() {
		db, err := ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		out.db = db
		if cfg.Postgres.RunMigrationsOnStart {
			if err := RunMigrations(ctx, db, logger); err != nil {
				out.close(logger)
				return nil, err
			}
		}
	} else {
		logger.InfoContext(ctx, "transaction journal disabled; DB_HOST not set")
	}

	if cfg.Redis.Enabled() {
		client, err := ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			out.close(logger)
			return nil, err
		}
		out.redis = client
	} else {
		logger.InfoContext(ctx, "redis cache disabled; REDIS_URI not set")
	}
	return out, nil
}

// Run connects the agent's collaborators and blocks until ctx is cancelled or
// a component fails. The relay and the ACP API must answer before any event
// source starts.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	obs := buildObservability(ctx, logger, cfg.Observability, cfg.Agent.WalletAddress)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		obs.Close(closeCtx, logger)
	}()

	stores, err := connectInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.close(logger)

	deps := ServiceDeps{
		Config:        cfg,
		DB:            stores.db,
		Observability: obs,
		Logger:        logger,
	}
	if stores.redis != nil {
		deps.RedisClient = stores.redis
	}
	services, err := BuildServices(deps)
	if err != nil {
		return err
	}

	if err = pingCollaborators(ctx, services); err != nil {
		return err
	}

	logger.InfoContext(ctx, "acp agent starting",
		"network", cfg.Chain.Network,
		"wallet", cfg.Agent.WalletAddress,
		"roles", cfg.Agent.RoleList(),
		"socket", services.Socket != nil,
		"poller", services.Poller != nil,
		"journal", services.Journal != nil,
		"cache", services.Cache != nil,
	)
	return runServices(ctx, cfg, services, logger)
}

// pingCollaborators probes the remote collaborators once. The stores were
// already pinged when they were opened.
func pingCollaborators(ctx context.Context, services *ServiceContainer) error {
	checks := readinessChecks(services)
	for _, name := range []string{"relay", "acp_api"} {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := checks[name].Health(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("%s unreachable: %w", name, err)
		}
	}
	return nil
}

func runServices(ctx context.Context, cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return services.Dispatcher.Run(gctx) })
	if services.Socket != nil {
		g.Go(func() error { return services.Socket.Run(gctx) })
	}
	if services.Poller != nil {
		g.Go(func() error { return services.Poller.Run(gctx) })
	}
	if srv := newHTTPServer(cfg.HTTP.Addr, services, logger); srv != nil {
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	logger.Info("acp agent stopped", "error", err)
	return err
}

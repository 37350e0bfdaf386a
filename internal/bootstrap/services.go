package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/quocan1101-cloud/acp-hackathon/config"
	"github.com/quocan1101-cloud/acp-hackathon/internal/adapters/acpapi"
	"github.com/quocan1101-cloud/acp-hackathon/internal/adapters/agentrunner"
	"github.com/quocan1101-cloud/acp-hackathon/internal/adapters/realtime"
	"github.com/quocan1101-cloud/acp-hackathon/internal/adapters/relay"
	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/data"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/payload"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/statsd"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/dispatch"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/txpipeline"
)

// ServiceContainer holds the wired agent.
type ServiceContainer struct {
	API        *acpapi.Client
	Relay      *relay.Client
	Client     *service.Client
	Runner     *agentrunner.Runner
	Dispatcher *dispatch.Dispatcher
	Journal    *data.TxJournalRepo // nil without Postgres
	Cache      *data.RedisCache    // nil without Redis

	// Sources feed the dispatcher; at least one is set.
	Socket *realtime.SocketSource
	Poller *realtime.Poller

	Observability ObservabilityContainer
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config        *config.AppConfig
	DB            *sql.DB               // Optional
	RedisClient   redis.UniversalClient // Optional
	Observability ObservabilityContainer
	Logger        *slog.Logger
}

// BuildServices wires adapters, the transaction pipeline, the agent client
// and the event sources. It performs no network I/O.
func BuildServices(deps ServiceDeps) (*ServiceContainer, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	out := &ServiceContainer{Observability: deps.Observability}
	if deps.DB != nil {
		out.Journal = data.NewTxJournalRepo(deps.DB)
	}
	if deps.RedisClient != nil {
		out.Cache = data.NewRedisCache(deps.RedisClient, cfg.Redis.Namespace)
	}

	var err error
	if out.API, err = acpapi.NewClient(acpapi.Options{
		BaseURL:       cfg.Chain.APIURL,
		WalletAddress: cfg.Agent.WalletAddress,
		Logger:        logger,
	}); err != nil {
		return nil, fmt.Errorf("acp api: %w", err)
	}

	if out.Relay, err = newRelay(cfg, logger); err != nil {
		return nil, err
	}

	pipeline, err := newPipeline(cfg.Retry, out, logger)
	if err != nil {
		return nil, err
	}

	var agentCache *core.AgentCacheService
	if out.Cache != nil {
		agentCache = core.NewAgentCacheService(out.Cache, core.AgentCacheConfig{TTL: cfg.Redis.AgentTTL})
	}
	if out.Client, err = service.NewClient(service.ClientOptions{
		Pipeline: pipeline,
		API:      out.API,
		Calls: txpipeline.Calls{
			Escrow:       cfg.Chain.ContractAddress,
			PaymentToken: cfg.Chain.PaymentTokenAddress,
		},
		AgentAddress:  cfg.Agent.WalletAddress,
		TokenDecimals: cfg.Chain.PaymentTokenDecimals,
		AgentCache:    agentCache,
		Logger:        logger,
	}); err != nil {
		return nil, fmt.Errorf("acp client: %w", err)
	}

	if out.Runner, err = newRunner(cfg.Agent, out, logger); err != nil {
		return nil, err
	}

	if out.Dispatcher, err = dispatch.New(dispatch.Options{
		Handler:      out.Runner,
		Concurrency:  cfg.Dispatch.Concurrency,
		RequeueDelay: cfg.Dispatch.RequeueDelay,
		MaxRequeues:  cfg.Dispatch.MaxRequeues,
		Logger:       logger,
		Metrics:      out.metrics(),
	}); err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	if err = buildSources(cfg, out, logger); err != nil {
		return nil, err
	}
	return out, nil
}

func newRelay(cfg *config.AppConfig, logger *slog.Logger) (*relay.Client, error) {
	var entityID int64
	if raw := cfg.Agent.EntityID; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("agent entity id %q: %w", raw, err)
		}
		entityID = id
	}
	client, err := relay.NewClient(relay.Options{
		BaseURL:       cfg.Chain.RelayURL,
		ChainID:       cfg.Chain.ChainID,
		WalletAddress: cfg.Agent.WalletAddress,
		EntityID:      entityID,
		PolicyID:      cfg.Chain.PolicyID,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	return client, nil
}

func newPipeline(cfg config.RetryConfig, out *ServiceContainer, logger *slog.Logger) (*txpipeline.Pipeline, error) {
	policy, err := txpipeline.NewRetryPolicy(cfg.MaxAttempts, cfg.BackoffBase)
	if err != nil {
		return nil, err
	}
	policy = policy.WithPolling(cfg.PollInterval, cfg.MaxPolls)
	observers := txpipeline.Observers{
		Logger:  logger,
		Metrics: out.metrics(),
	}
	if out.Journal != nil {
		observers.Journal = out.Journal
	}
	if out.Observability.FailureNotifier != nil {
		observers.Notifier = out.Observability.FailureNotifier
	}
	pipeline, err := txpipeline.New(txpipeline.Options{
		Relay:     out.Relay,
		Policy:    policy,
		Observers: observers,
	})
	if err != nil {
		return nil, fmt.Errorf("tx pipeline: %w", err)
	}
	return pipeline, nil
}

func newRunner(cfg config.AgentConfig, out *ServiceContainer, logger *slog.Logger) (*agentrunner.Runner, error) {
	roles, err := agentrunner.ParseRoles(cfg.Roles)
	if err != nil {
		return nil, err
	}
	var policy *service.EvaluationPolicy
	if cfg.EvaluationExpression != "" {
		policy, err = service.NewEvaluationPolicy(service.EvaluationPolicyOptions{Expression: cfg.EvaluationExpression})
		if err != nil {
			return nil, fmt.Errorf("evaluation policy: %w", err)
		}
	}
	runner, err := agentrunner.NewRunner(agentrunner.RunnerOptions{
		Client:            out.Client,
		Roles:             roles,
		MaxPrice:          cfg.MaxPrice,
		OfferingAllowlist: cfg.Offerings,
		Deliverable:       payload.Deliverable{Type: cfg.DeliverableType, Value: cfg.DeliverableValue},
		Policy:            policy,
		Logger:            logger,
		Metrics:           out.metrics(),
	})
	if err != nil {
		return nil, fmt.Errorf("agent runner: %w", err)
	}
	return runner, nil
}

func buildSources(cfg *config.AppConfig, out *ServiceContainer, logger *slog.Logger) error {
	var deduper *core.EventDeduper
	if out.Cache != nil {
		deduper = core.NewEventDeduper(out.Cache, cfg.Ingress.DedupeTTL)
	}
	ingress := realtime.NewIngress(out.Dispatcher, deduper, logger)

	var err error
	if cfg.Ingress.SocketEnabled {
		if out.Socket, err = realtime.NewSocketSource(realtime.SocketOptions{
			URL:           cfg.Ingress.SocketURL,
			WalletAddress: cfg.Agent.WalletAddress,
			Evaluator:     cfg.Agent.HasRole(string(agentrunner.RoleEvaluator)),
			Ingress:       ingress,
			Logger:        logger,
		}); err != nil {
			return fmt.Errorf("socket source: %w", err)
		}
	}
	if cfg.Ingress.PollInterval > 0 {
		if out.Poller, err = realtime.NewPoller(realtime.PollerOptions{
			API:           out.API,
			Ingress:       ingress,
			WalletAddress: cfg.Agent.WalletAddress,
			Interval:      cfg.Ingress.PollInterval,
			PageSize:      cfg.Ingress.PollPageSize,
			Logger:        logger,
		}); err != nil {
			return fmt.Errorf("poller: %w", err)
		}
	}
	if out.Socket == nil && out.Poller == nil {
		return errors.New("no event source configured")
	}
	return nil
}

//nolint:ireturn // a nil interface keeps disabled metrics out of hot paths.
func (c *ServiceContainer) metrics() statsd.Sink {
	if c.Observability.MetricsSink == nil {
		return nil
	}
	return c.Observability.MetricsSink
}

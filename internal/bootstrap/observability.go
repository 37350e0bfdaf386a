package bootstrap

import (
	"context"
	"log/slog"

	"github.com/quocan1101-cloud/acp-hackathon/config"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/notify/slack"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/statsd"
	"github.com/quocan1101-cloud/acp-hackathon/internal/observability/tracing"
	"github.com/quocan1101-cloud/acp-hackathon/internal/service/failurenotifier"
)

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	FailureNotifier *failurenotifier.Service
	ShutdownTracing tracing.ShutdownFunc
}

// Close flushes spans and closes the metrics socket.
func (o ObservabilityContainer) Close(ctx context.Context, logger *slog.Logger) {
	if o.ShutdownTracing != nil {
		if err := o.ShutdownTracing(ctx); err != nil {
			logger.WarnContext(ctx, "tracing shutdown failed", "error", err)
		}
	}
	if o.MetricsSink != nil {
		if err := o.MetricsSink.Close(); err != nil {
			logger.WarnContext(ctx, "statsd close failed", "error", err)
		}
	}
}

// buildObservability configures metrics, tracing and notification adapters.
// Each piece is optional; a misconfigured one is logged and left out.
func buildObservability(ctx context.Context, logger *slog.Logger, cfg config.ObservabilityConfig, agent string) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var out ObservabilityContainer

	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:    true,
			Address:    cfg.Metrics.StatsdAddress,
			Prefix:     cfg.Metrics.Prefix,
			Logger:     obsLogger,
			GlobalTags: map[string]string{"agent": agent},
		})
		if err != nil {
			obsLogger.ErrorContext(ctx, "failed to initialise statsd client", "error", err)
		} else {
			out.MetricsSink = client
		}
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Setup(ctx, tracing.Config{
			Enabled:     true,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			obsLogger.ErrorContext(ctx, "failed to initialise tracing", "error", err)
		} else {
			out.ShutdownTracing = shutdown
		}
	}

	out.FailureNotifier = buildFailureNotifier(ctx, obsLogger, cfg.Notifications)
	return out
}

func buildFailureNotifier(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.ObservabilityNotificationsConfig,
) *failurenotifier.Service {
	if !cfg.Enabled {
		return nil
	}

	var sinks []failurenotifier.SinkRegistration
	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:  cfg.Slack.WebhookURL,
			Channel:     cfg.Slack.Channel,
			Username:    cfg.Slack.Username,
			Timeout:     cfg.Timeout,
			RetryLimit:  cfg.RetryLimit,
			ExplorerURL: cfg.Slack.ExplorerURL,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to configure slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if len(sinks) == 0 {
		logger.WarnContext(ctx, "failure notifications enabled but no sinks configured")
		return nil
	}
	return failurenotifier.NewService(failurenotifier.Options{Logger: logger, Sinks: sinks})
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/scadawatch/scadawatch/internal/alerter"
	"github.com/scadawatch/scadawatch/internal/api"
	"github.com/scadawatch/scadawatch/internal/metrics"
	"github.com/scadawatch/scadawatch/internal/monitor"
	"github.com/scadawatch/scadawatch/internal/notifier"
	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/scadawatch/scadawatch/internal/version"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newMonitorCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Poll the alarm feed and notify on transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(flags, os.Stdout)
			if err != nil {
				return err
			}
			return runMonitor(cmd.Context(), env)
		},
	}
}

func runMonitor(parent context.Context, env *runtimeEnv) error {
	cfg, logger := env.cfg, env.logger
	logger.Info().
		Str("base_url", cfg.Server.BaseURL).
		Str("organization", env.client.Organization()).
		Msg("Starting scadawatch")

	m := metrics.New()

	// Local fallback: shoutrrr services when configured, the log otherwise
	var local notifier.LocalNotifier
	if urls := cfg.FallbackURLs(); len(urls) > 0 {
		sn, err := notifier.NewShoutrrrNotifier(urls...)
		if err != nil {
			return err
		}
		local = sn
		logger.Info().Int("services", len(urls)).Msg("Local fallback notifications enabled")
	}
	notifierOpts := []notifier.Option{notifier.WithMetrics(m)}
	if fb := cfg.Notifications.Fallback; fb.Every > 0 {
		notifierOpts = append(notifierOpts, notifier.WithFallbackRate(fb.Every, fb.Burst))
	}
	notif := notifier.New(env.client, local, logger, notifierOpts...)

	var engineOpts []alerter.Option
	if flap := cfg.Notifications.Flap; flap.Threshold > 0 {
		engineOpts = append(engineOpts, alerter.WithFlapDetector(alerter.NewFlapDetector(logger, flap.Threshold, flap.Window)))
	}
	if delays := cfg.EscalationDelays(); len(delays) > 0 {
		esc := alerter.NewEscalationManager(logger, delays, nil)
		defer esc.Stop()
		engineOpts = append(engineOpts, alerter.WithEscalation(esc))
	}

	session := monitor.NewSession(env.client, notif, logger, monitor.Options{
		Operator:      env.operator,
		Interval:      cfg.Polling.AlarmInterval,
		Cache:         cache.New(cfg.Polling.CacheTTL, 2*cfg.Polling.CacheTTL),
		Metrics:       m,
		EngineOptions: engineOpts,
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *api.Server
	if cfg.APIEnabled() {
		server = api.NewServer(session, logger, strconv.Itoa(cfg.API.Port))
		server.SetLogBuffer(env.logBuffer)
		server.SetVersion(version.GetVersion(), version.GetCommit(), version.GetBuildDate())
		server.SetConfig(cfg, env.configPath)
		server.SetMetricsHandler(m.Handler())
		server.SetHistoryFunc(func(ctx context.Context, req monitor.HistoryRequest) ([]types.HistoryRecord, error) {
			return monitor.LoadHistory(ctx, env.client, req, time.Now())
		})
		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("API server failed")
				stop()
			}
		}()
	}

	session.Run(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("API server shutdown incomplete")
		}
	}
	logger.Info().Msg("scadawatch stopped")
	return nil
}

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/safeprotest/factcheck/internal/events"
	"github.com/safeprotest/factcheck/internal/factcheck"
	"github.com/safeprotest/factcheck/internal/recheck"
	"github.com/safeprotest/factcheck/internal/server"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fact check HTTP API",
	Long: `Serve runs the HTTP API under /api/fact-check.

With events.nats_url set, every vote is published to events.subject and
this process rechecks records on votes published by its peers. With
recheck.enabled set, the newest records are rechecked on recheck.schedule.

Example:
  factcheck serve --addr :8080
  FACTCHECK_SERVER_JWT_SECRET=... NATS_URL=nats://localhost:4222 factcheck serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	var (
		opts []factcheck.Option
		nc   *nats.Conn
	)
	if cfg.Events.NATSURL != "" {
		nc, err = events.Connect(cfg.Events.NATSURL, "factcheck "+Version)
		if err != nil {
			return err
		}
		defer nc.Close()
		opts = append(opts, factcheck.WithPublisher(events.NewNATSPublisher(nc, cfg.Events.Subject)))
	}

	a, err := buildApp(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	if nc != nil {
		sub, err := events.Subscribe(nc, cfg.Events.Subject, cfg.Events.Queue, recheck.VoteHandler(a.svc, logger), logger)
		if err != nil {
			return err
		}
		defer func() { _ = sub.Unsubscribe() }()
		logger.Info("vote events enabled", "subject", cfg.Events.Subject, "queue", cfg.Events.Queue)
	}

	if cfg.Recheck.Enabled {
		sweeper := recheck.NewSweeper(a.svc, cfg.Recheck, cfg.Workers, logger)
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("start recheck sweeper: %w", err)
		}
		defer sweeper.Stop()
		logger.Info("recheck sweeps scheduled", "schedule", cfg.Recheck.Schedule, "limit", cfg.Recheck.Limit)
	}

	if err := server.New(a.svc, cfg.Server, logger).ListenAndServe(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// Package main provides the entry point for the aqljon media-analysis daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqljon/aqljon/internal/analysis"
	"github.com/aqljon/aqljon/internal/config"
	"github.com/aqljon/aqljon/internal/dashboard"
	"github.com/aqljon/aqljon/internal/queue"
	"github.com/aqljon/aqljon/internal/session"
)

// shutdownTimeout is the maximum time to wait for in-flight jobs on exit.
const shutdownTimeout = 30 * time.Second

var (
	flagGateCapacity  int
	flagBacklogCap    int
	flagHistoryCap    int
	flagContentCap    int
	flagIdleThreshold time.Duration
	flagSessionCap    int
	flagDashboardAddr string
)

var rootCmd = &cobra.Command{
	Use:   "aqljon",
	Short: "Media-analysis queue daemon",
	Long: "aqljon accepts per-user media jobs, serializes them per user, bounds " +
		"global concurrency against the analysis backend, and keeps bounded " +
		"per-user conversational memory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&flagGateCapacity, "gate-capacity", 0, "Concurrent analysis calls across all users (default 2)")
	flags.IntVar(&flagBacklogCap, "backlog", 0, "Outstanding jobs allowed per user (default 5)")
	flags.IntVar(&flagHistoryCap, "history", 0, "Conversation turns kept per user (default 40)")
	flags.IntVar(&flagContentCap, "content-memory", 0, "Content-memory entries kept per user (default 50)")
	flags.DurationVar(&flagIdleThreshold, "idle-threshold", 0, "Idle time before session eviction (default 720h)")
	flags.IntVar(&flagSessionCap, "session-cap", 0, "Total tracked sessions (default 2000)")
	flags.StringVar(&flagDashboardAddr, "dashboard-addr", "", "Dashboard listen address (default :8080)")
}

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutting down gracefully...")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Fatal error", slog.Any("error", err))
		return 1
	}
	return 0
}

// loadConfig merges environment configuration with flag overrides.
func loadConfig() *config.Config {
	cfg := config.Load()

	if flagGateCapacity > 0 {
		cfg.GateCapacity = flagGateCapacity
	}
	if flagBacklogCap > 0 {
		cfg.BacklogCapacity = flagBacklogCap
	}
	if flagHistoryCap > 0 {
		cfg.HistoryCapacity = flagHistoryCap
	}
	if flagContentCap > 0 {
		cfg.ContentCapacity = flagContentCap
	}
	if flagIdleThreshold > 0 {
		cfg.IdleThreshold = flagIdleThreshold
	}
	if flagSessionCap > 0 {
		cfg.SessionCap = flagSessionCap
	}
	if flagDashboardAddr != "" {
		cfg.DashboardAddr = flagDashboardAddr
	}

	return cfg
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func run(ctx context.Context) error {
	cfg := loadConfig()
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.Default()
	logger.InfoContext(ctx, "aqljon starting",
		slog.Int("gate_capacity", cfg.GateCapacity),
		slog.Int("backlog_capacity", cfg.BacklogCapacity),
		slog.Int("session_cap", cfg.SessionCap))

	client, err := analysis.NewClient(analysis.Config{
		APIKey:        cfg.GeminiAPIKey,
		Model:         cfg.GeminiModel,
		FallbackModel: cfg.GeminiFallbackModel,
		MediaTimeout:  cfg.MediaTimeout,
		HeavyTimeout:  cfg.HeavyTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating analysis client: %w", err)
	}

	store := session.NewStore(cfg.HistoryCapacity, cfg.ContentCapacity)

	manager, err := queue.NewManager(ctx, queue.ManagerConfig{
		Store:           store,
		Analyzer:        analysis.WithRetry(client, cfg.RetryAttempts),
		Notifier:        logNotifier(logger),
		GateCapacity:    cfg.GateCapacity,
		BacklogCapacity: cfg.BacklogCapacity,
	})
	if err != nil {
		return fmt.Errorf("creating queue manager: %w", err)
	}

	sweeper := session.NewSweeper(store, manager, cfg.SweepInterval, cfg.IdleThreshold, cfg.SessionCap)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("starting sweeper: %w", err)
	}

	dash := dashboard.NewServer(cfg.DashboardAddr, manager, store)
	dashErr := make(chan error, 1)
	go func() {
		dashErr <- dash.Start(ctx)
	}()

	logger.InfoContext(ctx, "aqljon started",
		slog.String("dashboard", cfg.DashboardAddr))

	select {
	case err := <-dashErr:
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
	case <-ctx.Done():
	}

	sweeper.Stop()
	if err := manager.Shutdown(shutdownTimeout); err != nil {
		logger.Error("Queue shutdown incomplete", slog.Any("error", err))
	}

	return nil
}

// logNotifier is the default notification sink: it logs outcomes. The real
// presentation layer replaces this when the transport is wired in.
func logNotifier(logger *slog.Logger) queue.Notifier {
	return queue.NotifierFunc(func(ctx context.Context, c queue.Completion) {
		if c.Err != nil {
			logger.WarnContext(ctx, "Job finished with error",
				slog.String("job_id", c.JobID),
				slog.String("user_id", c.UserID),
				slog.String("kind", string(c.Kind)),
				slog.Any("error", c.Err))
			return
		}
		logger.InfoContext(ctx, "Job completed",
			slog.String("job_id", c.JobID),
			slog.String("user_id", c.UserID),
			slog.String("kind", string(c.Kind)),
			slog.Int("result_len", len(c.Result)))
	})
}

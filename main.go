package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pthm-cable/legion/config"
	"github.com/pthm-cable/legion/game"
	"github.com/pthm-cable/legion/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	logInterval := flag.Int("log-interval", 0, "Ticks between world state logs (0 = never)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (empty = off)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config world.seed)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = run until every order has arrived)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		slog.Error("invalid log level", "level", *logLevel, "error", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	opts := game.Options{
		Seed:        *seed,
		LogStats:    *logStats,
		LogInterval: int32(*logInterval),
		OutputDir:   *outputDir,
	}

	if *metricsAddr != "" {
		m, err := telemetry.NewMetrics(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
		if err != nil {
			slog.Error("failed to register metrics", "error", err)
			os.Exit(1)
		}
		opts.Metrics = m

		srv := telemetry.ServeMetrics(*metricsAddr, prometheus.DefaultGatherer)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	s, err := game.NewSession(cfg, opts)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting simulation",
		"seed", s.Seed(),
		"max_ticks", *maxTicks,
		"agents", s.AgentCount(),
	)

	start := time.Now()
	for {
		if ctx.Err() != nil {
			slog.Info("interrupted", "tick", s.Tick())
			break
		}

		s.Update()

		if *maxTicks > 0 && int(s.Tick()) >= *maxTicks {
			slog.Info("max ticks reached", "tick", s.Tick())
			break
		}
		if *maxTicks == 0 && s.ScriptDone() && s.PendingArrivals() == 0 {
			slog.Info("all orders arrived", "tick", s.Tick())
			break
		}
	}

	slog.Info("simulation finished",
		"ticks", s.Tick(),
		"sim_time", float64(s.Tick())*cfg.World.DT,
		"wall_time", time.Since(start).Round(time.Millisecond),
	)
}

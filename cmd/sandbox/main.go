// cmd/sandbox/main.go
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/health"
	"github.com/opd-ai/go-collide/pkg/logging"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	ticks := flag.Int("ticks", 600, "Number of ticks to run, 0 runs until interrupted")
	tickInterval := flag.Duration("tick", 16*time.Millisecond, "Simulated time per tick")
	realtime := flag.Bool("realtime", false, "Pace ticks with the wall clock")
	seed := flag.Int64("seed", 1, "Random seed for the spawned population")
	ships := flag.Int("ships", 40, "Number of ships")
	bullets := flag.Int("bullets", 200, "Number of bullets")
	rocks := flag.Int("rocks", 60, "Number of rocks")
	walls := flag.Int("walls", 20, "Number of walls")
	snapshotPath := flag.String("snapshot", "", "Write a msgpack snapshot of the final world to this file")
	healthAddr := flag.String("health", "", "Serve /health and /ready on this address")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		os.Exit(1)
	}

	bus := event.NewEventBus()
	sides := make(teams)
	filter := collision.NewGuardedFilter(sides, cfg.FilterBreaker, logger)

	world, err := collision.NewWorld(cfg,
		collision.WithLogger(logger),
		collision.WithEventBus(bus),
		collision.WithPairFilter(filter),
	)
	if err != nil {
		logger.Error(ctx, "Failed to create world", err)
		os.Exit(1)
	}
	ctx = logging.WithWorldID(ctx, world.ID())

	sim := newSandbox(world, sides, bus, logger, *seed)
	sim.spawn(population{Ships: *ships, Bullets: *bullets, Rocks: *rocks, Walls: *walls})

	monitor := health.NewMonitor()
	var healthServer *http.Server
	if *healthAddr != "" {
		healthServer = startHealthServer(ctx, *healthAddr, monitor, filter, *tickInterval, logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var pacer <-chan time.Time
	if *realtime {
		ticker := time.NewTicker(*tickInterval)
		defer ticker.Stop()
		pacer = ticker.C
	}

	deltaTimeMs := float64(*tickInterval) / float64(time.Millisecond)
	logger.Info(ctx, "Starting simulation",
		"ticks", *ticks,
		"tick_ms", deltaTimeMs,
		"realtime", *realtime,
	)

	started := time.Now()
	completed := 0
run:
	for *ticks == 0 || completed < *ticks {
		if pacer != nil {
			select {
			case <-pacer:
			case <-sigChan:
				break run
			}
		} else {
			select {
			case <-sigChan:
				break run
			default:
			}
		}

		sim.tick(deltaTimeMs)
		completed++
		monitor.RecordTick(world.Stats(), time.Now())
	}

	logger.Info(ctx, "Simulation finished",
		"ticks", completed,
		"elapsed", time.Since(started).String(),
	)
	sim.report()

	if *snapshotPath != "" {
		if err := writeSnapshot(world, *snapshotPath); err != nil {
			logger.Error(ctx, "Failed to write snapshot", err,
				"path", *snapshotPath,
			)
		} else {
			logger.Info(ctx, "Wrote snapshot", "path", *snapshotPath)
		}
	}

	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Health check server shutdown failed", err)
		}
	}
}

// loadConfig reads the configuration file, falling back to defaults when it
// does not exist, and applies COLLIDE_* environment overrides.
func loadConfig(path string, logger *logging.Logger) (*config.WorldConfig, error) {
	var cfg *config.WorldConfig
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(context.Background(), "Configuration file not found, using default configuration",
			"config_path", path,
		)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvironmentOverrides(); err != nil {
		return nil, logging.WrapError(err, "apply environment configuration")
	}
	return cfg, nil
}

func writeSnapshot(world *collision.World, path string) error {
	data, err := world.Snapshot().Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return logging.WrapError(err, "write snapshot", "path", path)
	}
	return nil
}

func startHealthServer(ctx context.Context, addr string, monitor *health.Monitor, filter *collision.GuardedFilter, tick time.Duration, logger *logging.Logger) *http.Server {
	checker := health.NewChecker()
	checker.AddCheck(health.NewTickHealthCheck(monitor, 100*tick+time.Second))
	checker.AddCheck(health.NewPairFailureHealthCheck(monitor, 0.01))
	checker.AddCheck(health.NewBreakerHealthCheck(filter.State))
	checker.AddCheck(health.NewMemoryHealthCheck(500, func() int64 {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return int64(m.Alloc / 1024 / 1024)
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.LivenessHandler)
	mux.HandleFunc("/ready", checker.ReadinessHandler)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info(ctx, "Starting health check server", "address", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Health check server failed", err)
		}
	}()
	return server
}

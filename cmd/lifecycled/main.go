package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/lifecycle/internal/app"
	"github.com/l1jgo/lifecycle/internal/config"
	"github.com/l1jgo/lifecycle/internal/core/ecs"
	"github.com/l1jgo/lifecycle/internal/core/event"
	"github.com/l1jgo/lifecycle/internal/core/process"
	coresys "github.com/l1jgo/lifecycle/internal/core/system"
	"github.com/l1jgo/lifecycle/internal/data"
	"github.com/l1jgo/lifecycle/internal/metrics"
	"github.com/l1jgo/lifecycle/internal/persist"
	"github.com/l1jgo/lifecycle/internal/scripting"
	"github.com/l1jgo/lifecycle/internal/system"
	"github.com/l1jgo/lifecycle/internal/world"
)

const (
	Version = "0.1.0"
	appName = "lifecycled"

	defaultConfig   = "config/lifecycle.toml"
	journalInterval = 20 // ticks between journal flushes
	metricsInterval = 10 // ticks between gauge samples
	maxRunFailures  = 3  // consecutive failed ticks before the root is abandoned
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Headless entity lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (TOML); falls back to $LIFECYCLE_CONFIG")

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the tick loop until the game ends or a signal arrives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(resolveConfig(configPath))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func resolveConfig(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv("LIFECYCLE_CONFIG"); p != "" {
		return p
	}
	return defaultConfig
}

func run(cfgPath string) error {
	// 1. Load config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log.Info("starting", zap.String("name", cfg.Engine.Name), zap.String("config", cfgPath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Load profiles and the spawn list
	profiles, err := data.LoadProfileTable(cfg.Data.Profiles)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	spawns, err := data.LoadSpawnList(cfg.Data.Spawns, profiles)
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}
	log.Info("profiles loaded", zap.Int("profiles", profiles.Count()), zap.Int("spawn_entries", len(spawns)))

	// 4. Metrics
	var (
		m       *metrics.Metrics
		notices system.NoticeCounter
		errs    system.ErrorCounter
		procs   app.ProcessObserver
	)
	if cfg.Metrics.Enabled {
		if m, err = metrics.New(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		notices, errs, procs = m, m, m
	}

	// 5. World and pools
	bus := event.NewBus()
	ecsWorld := ecs.NewWorld()
	ecsWorld.SetNotify(system.RelayNotices(bus, notices))
	ws := world.NewState(ecsWorld, profiles, world.Capacities{
		Characters:      cfg.Pools.Characters,
		Particles:       cfg.Pools.Particles,
		Enchants:        cfg.Pools.Enchants,
		ParticleReserve: cfg.Pools.ParticleReserve,
	})
	ws.SetMaxIterations(cfg.Engine.ActivateIterations)

	// 6. Lua scripts
	scripts, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()
	if err := scripts.Require(profiles.Scripts()); err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	scripts.Bind(ws)
	ws.SetScripts(scripts)
	log.Info("scripts loaded", zap.Strings("scripts", scripts.Loaded()))

	// 7. Systems
	runner := coresys.NewRunner()
	respawn := system.NewRespawnSystem(bus, ws, spawns, log, errs)
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewPoolUpdateSystem(ecsWorld, log, errs))
	runner.Register(respawn)
	runner.Register(system.NewCleanupSystem(ecsWorld, log, errs))
	if m != nil {
		runner.Register(system.NewMetricsSystem(ecsWorld, m, metricsInterval))
	}

	if cfg.Scripting.HotReload {
		watcher, err := scripting.NewWatcher(cfg.Scripting.Dir, log)
		if err != nil {
			log.Warn("script hot reload disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			watcher.Start(ctx)
			runner.Register(system.NewScriptReloadSystem(scripts, watcher.Changes(), log, errs))
		}
	}

	// 8. Journal (optional)
	var (
		journal     persist.Journal
		persistence *system.PersistenceSystem
		runID       = uuid.New()
	)
	if cfg.Database.DSN != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(dbCtx, db.Pool, log); err != nil {
			cancel()
			return fmt.Errorf("migrations: %w", err)
		}
		journal = persist.NewJournalRepo(db)
		if err := journal.StartRun(dbCtx, runID, cfg.Engine.Name); err != nil {
			cancel()
			return fmt.Errorf("start run: %w", err)
		}
		cancel()

		persistence = system.NewPersistenceSystem(bus, journal, runID, log, errs, journalInterval, cfg.Database.BatchSize)
		runner.Register(persistence)
		log.Info("journal enabled", zap.String("run", runID.String()))
	}

	// 9. Processes
	engine := process.NewEngine()
	engine.SetObserver(app.ObserveChanges(bus, procs))
	game := app.NewGame(ws, runner, respawn, log, cfg.Engine.MaxTicks)
	menu := app.NewMenu(game, log)
	mainProc := app.NewMain(engine, menu, game, log)

	// 10. Background services
	g, gctx := errgroup.WithContext(ctx)
	if m != nil {
		g.Go(func() error {
			return m.Serve(gctx, cfg.Metrics.Listen, log)
		})
	}

	// 11. Tick loop
	ticker := time.NewTicker(cfg.Engine.TickRate)
	defer ticker.Stop()

	log.Info("tick loop started", zap.Duration("tick", cfg.Engine.TickRate))
	mainProc.Start()
	l := &loop{
		engine: engine,
		root:   mainProc,
		dt:     cfg.Engine.TickRate,
		log:    log,
		abandon: func() {
			if err := ws.Teardown(); err != nil {
				log.Error("world teardown failed", zap.Error(err))
			}
			runner.TickPhase(coresys.PhaseCleanup, 0)
		},
	}
	if m != nil {
		l.observe = m.ObserveTick
	}
	l.run(gctx, ticker.C)

	// 12. Final journal flush
	if persistence != nil {
		bus.SwapBuffers()
		bus.DispatchAll()

		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := persistence.Flush(flushCtx); err != nil {
			log.Error("final journal flush failed", zap.Error(err))
		}
		if err := journal.FinishRun(flushCtx, runID, game.Ticks(), ecsWorld.Engine().Created()); err != nil {
			log.Error("finish run failed", zap.Error(err))
		}
		cancel()
	}

	stop()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("background: %w", err)
	}
	log.Info("stopped",
		zap.Uint64("ticks", game.Ticks()),
		zap.Uint32("created", ecsWorld.Engine().Created()),
	)
	return nil
}

// loop drives the root process once per tick until it terminates.
type loop struct {
	engine  *process.Engine
	root    process.Runnable
	dt      time.Duration
	log     *zap.Logger
	abandon func()              // runs after the root is force-terminated
	observe func(time.Duration) // optional tick timing
}

// run kills the root once ctx is done and keeps ticking while it leaves. A
// root that fails maxRunFailures ticks in a row is terminated outright.
func (l *loop) run(ctx context.Context, ticks <-chan time.Time) {
	p := l.root.Proc()
	done := ctx.Done()
	failures := 0
	for !p.Terminated() {
		select {
		case <-ticks:
		case <-done:
			l.log.Info("shutdown requested", zap.Error(context.Cause(ctx)))
			p.Kill()
			done = nil
		}

		start := time.Now()
		_, err := l.engine.Run(l.root, l.dt)
		switch {
		case err == nil:
			failures = 0
		case failures+1 < maxRunFailures:
			failures++
			l.log.Error("main process failed", zap.Error(err), zap.Int("failures", failures))
			p.Kill()
		default:
			l.log.Error("main process abandoned", zap.Error(err))
			p.Terminate()
			if l.abandon != nil {
				l.abandon()
			}
		}
		if l.observe != nil {
			l.observe(time.Since(start))
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

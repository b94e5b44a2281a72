package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesflow_backend/internal/calibration"
	convrepo "salesflow_backend/internal/conversation/repository"
	"salesflow_backend/internal/outcome"
	"salesflow_backend/internal/scheduler"
	"salesflow_backend/internal/tuning"
	"salesflow_backend/platform/config"
	"salesflow_backend/platform/db"
	"salesflow_backend/platform/events"
	"salesflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "sweepInterval", cfg.SweepInterval.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = db.NewPool(ctx, cfg)
		if err == nil {
			break
		}
		log.Warn("database connection failed", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt*attempt) * 2 * time.Second):
		}
	}
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	tun, err := tuning.Load(cfg.GetTuningFile())
	if err != nil {
		log.Error("failed to load engine tuning", "error", err)
		panic("failed to load engine tuning: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)

	// Sweeps resolve outcomes; resolutions feed calibration through the bus.
	calibRepo := calibration.NewRepository(pool)
	calibEngine := calibration.NewEngine(calibRepo, tun.Calibration, eventBus, log)
	calibration.SubscribeToOutcomes(eventBus, calibEngine)

	outcomeSvc := outcome.NewService(outcome.NewRepository(pool), convrepo.New(pool), tun.Outcome, eventBus, log)

	worker, err := scheduler.NewWorker(cfg, outcomeSvc, calibEngine, calibRepo, log)
	if err != nil {
		log.Error("failed to initialize sweep worker", "error", err)
		panic("failed to initialize sweep worker: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize sweep dispatcher", "error", err)
		panic("failed to initialize sweep dispatcher: " + err.Error())
	}
	defer client.Close()

	go client.Run(ctx)
	worker.Run(ctx)

	log.Info("scheduler stopped")
}

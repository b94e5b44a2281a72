package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesflow_backend/internal/calibration"
	"salesflow_backend/internal/coaching"
	"salesflow_backend/internal/conversation"
	"salesflow_backend/internal/conversation/agent"
	convrepo "salesflow_backend/internal/conversation/repository"
	convservice "salesflow_backend/internal/conversation/service"
	"salesflow_backend/internal/escalation"
	"salesflow_backend/internal/feedback"
	apphttp "salesflow_backend/internal/http"
	"salesflow_backend/internal/http/router"
	"salesflow_backend/internal/notification"
	"salesflow_backend/internal/outcome"
	"salesflow_backend/internal/tuning"
	"salesflow_backend/platform/ai/kimi"
	"salesflow_backend/platform/config"
	"salesflow_backend/platform/db"
	"salesflow_backend/platform/events"
	"salesflow_backend/platform/logger"
	"salesflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	tun, err := tuning.Load(cfg.GetTuningFile())
	if err != nil {
		log.Error("failed to load engine tuning", "error", err)
		panic("failed to load engine tuning: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Completion-backed pieces degrade to rule-based behavior when the API
	// key is absent, so a missing key is a warning, not a failure.
	var completer escalation.Completer
	var extractor *agent.Extractor
	if cfg.IsCompletionEnabled() {
		completer = kimi.NewClient(cfg)
		extractor, err = agent.NewExtractor(cfg.GetCompletionAPIKey(), cfg.GetCompletionBaseURL(), cfg.GetCompletionModel(), log)
		if err != nil {
			log.Error("failed to initialize extraction agent, continuing without it", "error", err)
			extractor = nil
		}
	} else {
		log.Warn("COMPLETION_API_KEY not configured; extraction and drafting run on canned fallbacks")
	}

	var publisher escalation.Publisher
	if cfg.IsNotifyEnabled() {
		mailer, err := notification.NewMailer(cfg, log)
		if err != nil {
			log.Error("failed to initialize escalation mailer", "error", err)
			panic("failed to initialize escalation mailer: " + err.Error())
		}
		publisher = mailer
	} else {
		log.Warn("SMTP_HOST not configured; escalation emails disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	calibRepo := calibration.NewRepository(pool)
	calibEngine := calibration.NewEngine(calibRepo, tun.Calibration, eventBus, log)
	calibration.SubscribeToOutcomes(eventBus, calibEngine)

	outcomeSvc := outcome.NewService(outcome.NewRepository(pool), convrepo.New(pool), tun.Outcome, eventBus, log)
	outcomeModule := outcome.NewModule(outcomeSvc)

	feedbackSvc := feedback.NewService(feedback.NewRepository(pool))

	conversationModule := conversation.NewModule(conversation.Deps{
		Pool:      pool,
		Validator: val,
		Tuning:    tun,
		Extractor: extractorOrNil(extractor),
		Completer: completer,
		Outcomes:  outcomeSvc,
		Publisher: publisher,
		Feedback:  feedbackSvc,
		Bus:       eventBus,
		Logger:    log,
	})

	coachingModule := coaching.NewModule(coaching.NewRepository(pool), calibEngine, feedbackSvc)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			conversationModule,
			outcomeModule,
			coachingModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// extractorOrNil keeps a failed agent initialization from leaking a typed
// nil into the service's interface field.
func extractorOrNil(e *agent.Extractor) convservice.Extractor {
	if e == nil {
		return nil
	}
	return e
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

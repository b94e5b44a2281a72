package scheduler

import (
	"context"
	"fmt"

	"salesflow_backend/internal/calibration"
	"salesflow_backend/internal/outcome"
	"salesflow_backend/platform/config"
	"salesflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TenantSource lists the tenants the calibration check should visit.
type TenantSource interface {
	ListTenants(ctx context.Context) ([]uuid.UUID, error)
}

// Worker consumes the sweep tasks and drives the outcome and calibration
// maintenance cycles.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	outcomes *outcome.Service
	calib    *calibration.Engine
	tenants  TenantSource
	log      *logger.Logger
}

// NewWorker creates the sweep worker from scheduler configuration.
func NewWorker(cfg config.SchedulerConfig, outcomes *outcome.Service, calib *calibration.Engine, tenants TenantSource, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		outcomes: outcomes,
		calib:    calib,
		tenants:  tenants,
		log:      log,
	}

	mux.HandleFunc(TaskSweepEngagement, w.handleSweepEngagement)
	mux.HandleFunc(TaskSweepProgression, w.handleSweepProgression)
	mux.HandleFunc(TaskExpireOverdue, w.handleExpireOverdue)
	mux.HandleFunc(TaskCalibrationCheck, w.handleCalibrationCheck)

	return w, nil
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// The outcome service logs each sweep's result itself, so the handlers
// only translate errors into asynq retries.

func (w *Worker) handleSweepEngagement(ctx context.Context, _ *asynq.Task) error {
	_, _, err := w.outcomes.SweepEngagement(ctx)
	return err
}

func (w *Worker) handleSweepProgression(ctx context.Context, _ *asynq.Task) error {
	_, _, err := w.outcomes.SweepProgression(ctx)
	return err
}

func (w *Worker) handleExpireOverdue(ctx context.Context, _ *asynq.Task) error {
	_, err := w.outcomes.ExpireOverdue(ctx)
	return err
}

func (w *Worker) handleCalibrationCheck(ctx context.Context, _ *asynq.Task) error {
	tenants, err := w.tenants.ListTenants(ctx)
	if err != nil {
		return err
	}

	for _, tenantID := range tenants {
		adjustments, err := w.calib.CheckAll(ctx, tenantID)
		if err != nil {
			return err
		}
		if len(adjustments) > 0 {
			w.log.Info("calibration adjustments recommended",
				"tenantId", tenantID,
				"count", len(adjustments),
			)
		}
	}
	return nil
}

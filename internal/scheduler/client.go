package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"salesflow_backend/platform/config"
	"salesflow_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues the periodic sweep tasks. It runs alongside the worker in
// the scheduler binary and is the only writer to the queue.
type Client struct {
	client   *asynq.Client
	queue    string
	interval time.Duration
	log      *logger.Logger
}

// NewClient creates the sweep dispatcher from scheduler configuration.
func NewClient(cfg config.SchedulerConfig, log *logger.Logger) (*Client, error) {
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

	interval := cfg.GetSweepInterval()
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &Client{
		client:   asynq.NewClient(opt),
		queue:    queue,
		interval: interval,
		log:      log,
	}, nil
}

// Close releases the underlying redis connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueSweeps puts one round of sweep tasks on the queue. Uniqueness over
// the dispatch interval keeps a slow worker from piling up duplicate rounds.
func (c *Client) EnqueueSweeps(ctx context.Context) error {
	for _, name := range sweepTasks {
		_, err := c.client.EnqueueContext(ctx, NewSweepTask(name),
			asynq.Queue(c.queue),
			asynq.Unique(c.interval),
		)
		if err != nil && !isDuplicateTask(err) {
			return fmt.Errorf("failed to enqueue %s: %w", name, err)
		}
	}
	return nil
}

// Run dispatches a sweep round immediately and then on every interval tick
// until the context is cancelled.
func (c *Client) Run(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.dispatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.dispatch(ctx)
		}
	}
}

func (c *Client) dispatch(ctx context.Context) {
	if err := c.EnqueueSweeps(ctx); err != nil {
		c.log.Error("failed to enqueue sweep round", "error", err)
		return
	}
	c.log.Debug("sweep round enqueued", "tasks", len(sweepTasks))
}

func isDuplicateTask(err error) bool {
	return errors.Is(err, asynq.ErrDuplicateTask)
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

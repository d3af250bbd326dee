package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rifa-next/internal/config"
	"github.com/rifa-next/internal/logger"
	"github.com/rifa-next/internal/queue"

	"github.com/hibiken/asynq"
)

const expirySweepBatchSize = 200

// Service runs the asynq worker plus the order expiry sweeper.
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService creates the queue worker service.
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	sweepInterval := time.Duration(cfg.Checkout.ExpireSweepMinutes) * time.Minute
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: sweepInterval,
	}, nil
}

// Name returns the service name.
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start runs the worker until the server shuts down.
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.OrderService != nil {
		go s.runExpirySweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop shuts the worker down.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runExpirySweepLoop reclaims pending orders whose payment window has
// lapsed, freeing their held state for other buyers.
func (s *Service) runExpirySweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.OrderService == nil {
		return
	}
	runOnce := func() {
		swept, err := s.consumer.OrderService.SweepExpired(expirySweepBatchSize)
		if err != nil {
			logger.Warnw("worker_expiry_sweep_failed", "error", err)
			return
		}
		if swept > 0 {
			logger.Infow("worker_expiry_sweep_done", "swept", swept)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

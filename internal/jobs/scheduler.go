package jobs

import (
	"context"
	"time"

	"scanpos/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler owns the cron jobs of the process. Currently a single job: the
// periodic low-stock sweep that records alerts the event path may have
// missed.
type Scheduler struct {
	sched  *cron.Cron
	alerts service.AlertService
	logger *zap.Logger
}

// NewScheduler creates a scheduler running the low-stock sweep on the given
// cron spec (e.g. "@daily").
func NewScheduler(alerts service.AlertService, spec string, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		sched:  cron.New(),
		alerts: alerts,
		logger: logger,
	}

	if _, err := s.sched.AddFunc(spec, s.runLowStockSweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running scheduled jobs in their own goroutines.
func (s *Scheduler) Start() {
	s.sched.Start()
}

// Stop halts the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.sched.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runLowStockSweep() {
	defer func() {
		if err := recover(); err != nil {
			s.logger.Error("Low-stock sweep panicked", zap.Any("error", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	recorded, err := s.alerts.SweepLowStock(ctx)
	if err != nil {
		s.logger.Error("Low-stock sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Low-stock sweep completed", zap.Int("alerts_recorded", recorded))
}

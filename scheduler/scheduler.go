package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"ENSWatch/internal/app"
)

// Handler runs one periodic request.
type Handler interface {
	Handle(ctx context.Context, req app.Request) (any, error)
}

// Scheduler fires the two cron requests on their intervals. Each job runs in
// singleton mode so a slow refresh never overlaps itself.
type Scheduler struct {
	handler        Handler
	checkInterval  time.Duration
	updateInterval time.Duration
	jobTimeout     time.Duration
	logger         *zap.Logger

	scheduler *gocron.Scheduler
}

func New(handler Handler, checkInterval, updateInterval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		handler:        handler,
		checkInterval:  checkInterval,
		updateInterval: updateInterval,
		jobTimeout:     30 * time.Minute,
		logger:         logger.Named("scheduler"),
		scheduler:      gocron.NewScheduler(time.UTC),
	}
}

// Start registers the jobs and starts the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.updateInterval).SingletonMode().Do(s.updateExpirationDates); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(s.checkInterval).SingletonMode().Do(s.checkExpirationDate); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("scheduler started",
		zap.Duration("checkInterval", s.checkInterval),
		zap.Duration("updateInterval", s.updateInterval))
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) checkExpirationDate() {
	s.run(app.CheckExpirationDate{})
}

func (s *Scheduler) updateExpirationDates() {
	s.run(app.UpdateExpirationDates{})
}

func (s *Scheduler) run(req app.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.handler.Handle(ctx, req)
	if err != nil {
		s.logger.Error("job failed", zap.String("method", req.Method()), zap.Error(err))
		return
	}
	s.logger.Info("job done",
		zap.String("method", req.Method()),
		zap.Duration("took", time.Since(start)),
		zap.Any("result", res))
}

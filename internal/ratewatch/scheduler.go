package ratewatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs the rate check on startup and then daily at midnight UTC.
type Scheduler struct {
	monitor *Monitor
	logger  *slog.Logger

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewScheduler creates a rate check scheduler.
func NewScheduler(monitor *Monitor, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		monitor: monitor,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start runs an initial check immediately, then schedules daily checks at
// midnight UTC. Start is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("running initial rate table check on startup")
	if _, err := s.monitor.Check(ctx); err != nil {
		s.logger.Error("initial rate table check failed", "error", err)
	}

	s.wg.Add(1)
	go s.loop()
}

// Stop signals the scheduler to stop and waits for it to finish.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.logger.Info("stopping rate check scheduler")
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	untilMidnight := durationUntilNextMidnightUTC()
	s.logger.Info("rate check scheduler: next check scheduled",
		"in", untilMidnight.Round(time.Second).String(),
	)

	select {
	case <-time.After(untilMidnight):
	case <-s.stopCh:
		return
	}

	s.runCheck()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCheck()
		case <-s.stopCh:
			s.logger.Info("rate check scheduler stopped")
			return
		}
	}
}

// runCheck performs a check with a bounded timeout, retrying up to 3 times
// an hour apart on failure.
func (s *Scheduler) runCheck() {
	const maxRetries = 3

	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		_, err := s.monitor.Check(ctx)
		cancel()

		if err == nil {
			return
		}
		s.logger.Error("scheduled rate table check failed",
			"attempt", attempt+1,
			"error", err,
		)
		if attempt >= maxRetries {
			s.logger.Error("rate table check retries exhausted", "max_retries", maxRetries)
			return
		}

		select {
		case <-time.After(time.Hour):
		case <-s.stopCh:
			s.logger.Info("rate check retry cancelled: scheduler stopping")
			return
		}
	}
}

func durationUntilNextMidnightUTC() time.Duration {
	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return nextMidnight.Sub(now)
}

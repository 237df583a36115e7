package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/currex/internal/auth/metrics"
	"github.com/aussiebroadwan/currex/internal/auth/store"
)

// HousekeepingService periodically deletes expired token states so the
// revocation table does not grow without bound. Revoked rows stay until
// they expire; a revoked token is rejected by its state until then and by
// its own exp claim after.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(
	st store.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Metrics:  m,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the background worker and waits for any in-progress
// sweep to finish.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.Logger.Error("failed to delete expired token states", "error", err)
	}
}

// Sweep deletes token states whose expiry is before now.
func (s *HousekeepingService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.Store.TokenStates().DeleteExpiredTokenStates(ctx, s.Now())
	if err != nil {
		return 0, err
	}
	s.Metrics.SweepDeleted(n)
	s.Logger.Info("housekeeping cleanup completed", "deleted_token_states", n)
	return n, nil
}

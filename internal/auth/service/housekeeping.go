package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/voltex/internal/auth/store"
	"github.com/aussiebroadwan/voltex/internal/obs"
)

// HousekeepingService periodically deletes dead sessions and expired SSO
// states. It only ever removes rows that can no longer be used, so it runs
// alongside live traffic without coordination.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// SweepResult counts the rows removed by one pass.
type SweepResult struct {
	Sessions  int64
	SSOStates int64
}

// NewHousekeepingService defaults a non-positive interval to one hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the worker; it sweeps once immediately, then every Interval.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one cleanup pass. A failure in one table does not stop the other.
func (s *HousekeepingService) Sweep(ctx context.Context) SweepResult {
	now := nowFrom(s.Now)
	var res SweepResult

	n, err := s.Store.Sessions().DeleteExpiredSessions(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	} else {
		res.Sessions = n
		obs.AddSessionsSwept(n)
	}

	n, err = s.Store.SSOStates().DeleteExpiredSSOStates(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired SSO states", "error", err)
	} else {
		res.SSOStates = n
	}

	s.Logger.Info("housekeeping sweep completed",
		"sessions_deleted", res.Sessions,
		"sso_states_deleted", res.SSOStates,
	)
	return res
}

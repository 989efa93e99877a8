package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/authlab/authlab/internal/auth/store"
)

// pendingMFAMaxAge is how long a never-activated TOTP enrollment survives
// before the sweeper reclaims it.
const pendingMFAMaxAge = 24 * time.Hour

// HousekeepingService periodically sweeps expired sessions, authorization
// codes, OAuth tokens, and abandoned MFA enrollments so the store does not
// grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the sweeper. A non-positive interval
// defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; pair with Stop.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep returns.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
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

// Sweep runs every cleanup once. Failures are independent; one table
// failing to sweep does not stop the rest.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	if err := s.Store.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
		s.Logger.Error("failed to sweep expired sessions", "error", err)
	}
	if err := s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now); err != nil {
		s.Logger.Error("failed to sweep expired authorization codes", "error", err)
	}
	if err := s.Store.OAuthTokens().DeleteExpiredOAuthTokens(ctx, now); err != nil {
		s.Logger.Error("failed to sweep expired oauth tokens", "error", err)
	}
	if err := s.Store.MFA().DeletePendingMFARecords(ctx, now.Add(-pendingMFAMaxAge)); err != nil {
		s.Logger.Error("failed to sweep pending mfa enrollments", "error", err)
	}

	s.Logger.Debug("housekeeping sweep complete")
}

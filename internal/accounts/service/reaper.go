package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/milongahq/accounts/internal/accounts/store"
	"github.com/milongahq/accounts/pkg/tokenx"
)

// ReaperService periodically deletes accounts that were registered but never
// verified within the grace period, and prunes expired used-token records.
// Verified accounts are never touched regardless of age.
type ReaperService struct {
	Store       store.Store
	Logger      *slog.Logger
	Interval    time.Duration
	GracePeriod time.Duration
	TokenMaxAge time.Duration

	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReaperService creates a reaper. Non-positive interval defaults to
// 1 minute, non-positive grace period to 30 minutes.
func NewReaperService(
	st store.Store,
	logger *slog.Logger,
	interval, gracePeriod time.Duration,
) *ReaperService {
	if interval <= 0 {
		interval = time.Minute
	}
	if gracePeriod <= 0 {
		gracePeriod = 30 * time.Minute
	}

	return &ReaperService{
		Store:       st,
		Logger:      logger,
		Interval:    interval,
		GracePeriod: gracePeriod,
		TokenMaxAge: tokenx.DefaultMaxAge,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *ReaperService) Start() {
	go s.run()
	s.Logger.Info("reaper started",
		"interval", s.Interval,
		"grace_period", s.GracePeriod,
	)
}

// Stop gracefully shuts down the worker, blocking until any in-progress tick
// has finished.
func (s *ReaperService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("reaper stopped")
}

// run is the worker loop. Ticks execute inline on this goroutine, so two
// ticks can never overlap.
func (s *ReaperService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single reap pass. Exported so tests can drive ticks with
// a virtual clock instead of sleeping. Each deletion is independent; one
// failure never aborts the rest of the batch.
func (s *ReaperService) RunOnce(ctx context.Context) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	cutoff := now.Add(-s.GracePeriod)
	stale, err := s.Store.Users().ListStaleUnverified(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to list stale unverified accounts", "error", err)
	} else if len(stale) > 0 {
		var deleted int
		for _, u := range stale {
			// The delete re-checks the flag so a verification that landed
			// after the scan keeps the account.
			err := s.Store.Users().DeleteUserIfUnverified(ctx, u.ID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				s.Logger.Info("skipped account verified since scan", "user_id", u.ID)
				continue
			case err != nil:
				s.Logger.Error("failed to delete stale account",
					"user_id", u.ID,
					"error", err,
				)
				continue
			}
			s.Logger.Info("deleted stale unverified account",
				"user_id", u.ID,
				"username", u.Username,
				"created_at", u.CreatedAt,
			)
			deleted++
		}
		s.Logger.Info("reap pass completed", "candidates", len(stale), "deleted", deleted)
	}

	// Used-token records are only meaningful while the token could still
	// verify; prune the rest.
	if err := s.Store.UsedTokens().DeleteUsedTokensBefore(ctx, now.Add(-s.TokenMaxAge)); err != nil {
		s.Logger.Error("failed to prune used tokens", "error", err)
	}
}

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sigilauth/sigil/internal/auth/store"
)

// HousekeepingService sweeps expired rows out of the database on a timer.
// Without it the revocation table and retired signing keys grow forever.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Leeway mirrors the verifier's clock skew tolerance. Revocation
	// entries are only purged once their tokens are expired beyond it.
	Leeway time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewHousekeepingService builds the sweeper. A non-positive interval falls
// back to hourly.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, leeway time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Leeway:   leeway,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep loop. Non-blocking.
func (s *HousekeepingService) Start() {
	go s.loop()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the loop down and waits for an in-flight sweep to finish.
func (s *HousekeepingService) Stop() {
	close(s.stop)
	<-s.done
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// First sweep runs right away so a restart doesn't postpone cleanup
	// by a full interval.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

// sweep deletes expired records. The two deletions are independent so one
// failing does not block the other.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()

	// A revocation entry past its token's expiry plus leeway can never
	// match a live token again.
	if err := s.Store.Revocations().DeleteExpired(ctx, time.Now().Add(-s.Leeway)); err != nil {
		s.Logger.Error("sweep expired revocations", "error", err)
	}

	if err := s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx); err != nil {
		s.Logger.Error("sweep expired signing keys", "error", err)
	}

	s.Logger.Debug("housekeeping sweep complete")
}

package reservation

import (
	"context"
	"time"

	"vitrin-be/internal/logger"

	"go.uber.org/zap"
)

// Sweeper periodically reclaims expired reservations.
type Sweeper struct {
	store    Store
	interval time.Duration
}

func NewSweeper(store Store, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, interval: interval}
}

// Run blocks until ctx is cancelled; callers start it in a goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.DeleteExpired(ctx)
			if err != nil {
				logger.L().Error("reservation sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.L().Info("expired reservations reclaimed", zap.Int64("count", removed))
			}
		}
	}
}

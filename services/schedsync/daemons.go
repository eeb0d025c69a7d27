package schedsync

import (
	"context"
	"log/slog"
	"time"
)

// RefreshDaemon periodically re-syncs the installation until the
// context is cancelled. Cycles run in serial; a slow vendor just delays
// the next tick.
func (s *Service) RefreshDaemon(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.MarkStale()

			result, err := s.Refresh(ctx, SyncEverything())
			if err != nil {
				slog.ErrorContext(ctx, "periodic refresh failed", "err", err)
				continue
			}
			slog.InfoContext(
				ctx, "periodic refresh complete",
				"packages_created", result.PackagesCreated,
				"packages_updated", result.PackagesUpdated,
				"classes_created", result.ClassesCreated,
				"classes_updated", result.ClassesUpdated,
			)
		}
	}
}

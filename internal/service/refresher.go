package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RefreshFacetsEvery refreshes the cached filter values once at start and
// then on every tick until ctx is done. A non-positive interval disables it.
// Failures are logged and retried on the next tick.
func (s *QueryService) RefreshFacetsEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.logger.Info("periodic facet refresh disabled")
		return
	}

	refresh := func() {
		at, err := s.RefreshFacets(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("facet refresh failed", zap.Error(err))
			}
			return
		}
		s.logger.Info("facets refreshed", zap.Time("refreshed_at", at))
	}

	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

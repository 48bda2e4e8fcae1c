package scrape

import (
	"context"
	"log"
	"time"

	"leadscout-engine/internal/scheduler"
)

// StartAutoRefresh re-triggers the session's last query on a fixed interval
// until ctx is cancelled. A tick is skipped while a run is still active, so
// there is never more than one timer-driven cycle per session slot.
func StartAutoRefresh(ctx context.Context, s *Session, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go scheduler.Every(ctx, interval, "auto-refresh", func(ctx context.Context) error {
		if s.Active() {
			log.Printf("[auto-refresh] skipped: search still active")
			return nil
		}
		opts, ok := s.LastOptions()
		if !ok {
			return nil // nothing searched yet
		}
		log.Printf("[auto-refresh] re-running query=%q", opts.JobTitle)
		s.Start(opts)
		return nil
	})
}

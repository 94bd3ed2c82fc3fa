package agent

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepInterval = 5 * time.Minute

// StartSweeper runs a background goroutine that periodically closes
// sessions idle for longer than ttl. It stops when ctx is done.
func StartSweeper(ctx context.Context, svc *Service, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if closed := svc.CloseIdle(ttl); closed > 0 {
					slog.Info("Session sweeper closed idle sessions", "count", closed)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

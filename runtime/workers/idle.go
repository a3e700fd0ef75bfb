package workers

import (
	"context"
	"log/slog"
	"time"
)

// IdleMarker flags sessions without activity since the given instant.
type IdleMarker interface {
	MarkIdle(ctx context.Context, now time.Time, awayAfter time.Duration) int
}

// IdleWorker periodically moves inactive users to away.
type IdleWorker struct {
	log       *slog.Logger
	marker    IdleMarker
	interval  time.Duration
	awayAfter time.Duration
}

func NewIdleWorker(log *slog.Logger, marker IdleMarker, interval, awayAfter time.Duration) *IdleWorker {
	return &IdleWorker{log: log, marker: marker, interval: interval, awayAfter: awayAfter}
}

func (w *IdleWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := w.marker.MarkIdle(ctx, now, w.awayAfter); n > 0 {
				w.log.Debug("Users marked away", "count", n)
			}
		}
	}
}

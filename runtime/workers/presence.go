package workers

import (
	"chat-hub/domain"
	"chat-hub/repositories"
	"context"
	"log/slog"
)

// PresenceWorker is the single writer of user status and last-seen.
// Updates are applied in FIFO order, so a quick connect then disconnect
// always ends offline.
type PresenceWorker struct {
	log   *slog.Logger
	users repositories.IUserRepository
	queue chan domain.PresenceUpdate
}

func NewPresenceWorker(log *slog.Logger, users repositories.IUserRepository, bufferSize int) *PresenceWorker {
	return &PresenceWorker{
		log:   log,
		users: users,
		queue: make(chan domain.PresenceUpdate, bufferSize),
	}
}

// Enqueue hands u to the worker. Callers do not wait for the write.
func (w *PresenceWorker) Enqueue(ctx context.Context, u domain.PresenceUpdate) error {
	select {
	case w.queue <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *PresenceWorker) Run(ctx context.Context) error {
	for {
		select {
		case u := <-w.queue:
			w.apply(ctx, u)
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			w.log.Debug("Context done, stopping presence worker")
			return nil
		}
	}
}

// drain writes what is still buffered so that sessions closed during
// shutdown are not left online.
func (w *PresenceWorker) drain(ctx context.Context) {
	for {
		select {
		case u := <-w.queue:
			w.apply(ctx, u)
		default:
			return
		}
	}
}

func (w *PresenceWorker) apply(ctx context.Context, u domain.PresenceUpdate) {
	if err := w.users.SetStatus(ctx, u.UserID, u.Status, u.LastSeen); err != nil {
		w.log.Error("Failed to update presence", "user_id", u.UserID, "status", u.Status, "error", err)
		return
	}
	w.log.Debug("Presence updated", "user_id", u.UserID, "status", u.Status)
}

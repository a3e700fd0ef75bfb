//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// It is only used for logging during supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Session is one authenticated connection seen from the core.
// Consume must not block longer than ctx allows.
type Session interface {
	ID() string
	UserID() string
	Username() string
	Consume(ctx context.Context, e event.Event) error
	Close()
}

type IRegistry interface {
	Register(userID string, session Session) Session
	Unregister(userID string, session Session) bool
	Lookup(userID string) (Session, bool)
	Sessions() []Session
	Count() int
	Join(chatID string, session Session)
	Leave(chatID string, session Session)
	SessionsForChat(chatID string) []Session
}

// Publisher hands a chat event to the fanout. Delivery happens asynchronously,
// in the order Publish was called.
type Publisher interface {
	Publish(ctx context.Context, b event.Broadcast) error
}

// PresenceQueue serializes status writes. Updates for a user are applied
// in the order they were enqueued.
type PresenceQueue interface {
	Enqueue(ctx context.Context, u domain.PresenceUpdate) error
}

package runtime

import (
	"chat-hub/contract"
	"sync"
)

type group map[string]contract.Session // session id -> session

// Registry is the process-wide session directory.
// It maps each user to its single active session and each chat to the
// sessions currently subscribed to its broadcast group. Nothing is persisted:
// after a restart every user is offline until they reconnect.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]contract.Session    // user id -> session
	chatMembers map[string]group               // chat id -> subscribed sessions
	joined      map[string]map[string]struct{} // session id -> chat ids
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]contract.Session),
		chatMembers: make(map[string]group),
		joined:      make(map[string]map[string]struct{}),
	}
}

// Register binds session to userID and returns the session it superseded, if any.
// The caller is responsible for closing the superseded session.
func (r *Registry) Register(userID string, session contract.Session) contract.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 1. The newest connection always wins the user slot
	previous, ok := r.sessions[userID]
	r.sessions[userID] = session
	// 2. First login, or the same session registered twice: nothing to supersede
	if !ok || previous.ID() == session.ID() {
		return nil
	}
	return previous
}

// Unregister removes the session from every broadcast group it joined and drops
// the user mapping only if it still points at this session. A stale unregister
// coming from a superseded connection never evicts the newer one.
// It reports whether the user mapping was removed.
func (r *Registry) Unregister(userID string, session contract.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 1. Leave every broadcast group through the reverse index,
	// without scanning all chats
	for chatID := range r.joined[session.ID()] {
		r.leaveLocked(chatID, session)
	}
	delete(r.joined, session.ID())

	// 2. Release the user slot only if this session still owns it
	current, ok := r.sessions[userID]
	if !ok || current.ID() != session.ID() {
		return false
	}
	delete(r.sessions, userID)
	return true
}

func (r *Registry) Lookup(userID string) (contract.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Sessions returns a snapshot of the active sessions.
func (r *Registry) Sessions() []contract.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]contract.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		res = append(res, s)
	}
	return res
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Join subscribes session to the broadcast group of chatID.
// It updates both directions under the same lock:
// 1. chat -> sessions, read by the fanout on every message.
// 2. session -> chats, read by Unregister on disconnect.
// If the group does not exist yet, it is initialized on the fly.
// Joining twice is a no-op.
func (r *Registry) Join(chatID string, session contract.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chatMembers[chatID]; !ok {
		r.chatMembers[chatID] = make(group)
	}
	r.chatMembers[chatID][session.ID()] = session

	// Reverse index
	if _, ok := r.joined[session.ID()]; !ok {
		r.joined[session.ID()] = make(map[string]struct{})
	}
	r.joined[session.ID()][chatID] = struct{}{}
}

// Leave unsubscribes session from chatID. Leaving a group never joined is a no-op.
func (r *Registry) Leave(chatID string, session contract.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(chatID, session)
	if chats, ok := r.joined[session.ID()]; ok {
		delete(chats, chatID)
		// No chat left for this session, drop its entry entirely
		if len(chats) == 0 {
			delete(r.joined, session.ID())
		}
	}
}

// leaveLocked removes session from the group and drops empty groups
// so that the map does not grow with every chat ever viewed.
func (r *Registry) leaveLocked(chatID string, session contract.Session) {
	members, ok := r.chatMembers[chatID]
	if !ok {
		return
	}
	delete(members, session.ID())
	if len(members) == 0 {
		delete(r.chatMembers, chatID)
	}
}

// SessionsForChat retrieves the sessions subscribed to chatID.
// The slice is a copy taken under the read lock: the fanout delivers to it
// after the lock is released, and a session closing in between answers
// ErrSessionClosed.
// Returns nil if nobody is subscribed.
func (r *Registry) SessionsForChat(chatID string) []contract.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.chatMembers[chatID]
	if !ok {
		return nil
	}
	res := make([]contract.Session, 0, len(members))
	for _, s := range members {
		res = append(res, s)
	}
	return res
}

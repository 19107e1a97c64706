package ws

import "sync"

// Registry tracks which authenticated user owns each live session. A user may
// hold several sessions at once (one per device or tab); a session belongs to
// at most one user.
type Registry struct {
	mu        sync.RWMutex
	bySession map[*Session]int64
	byUser    map[int64]map[*Session]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		bySession: make(map[*Session]int64),
		byUser:    make(map[int64]map[*Session]struct{}),
	}
}

// Bind associates a session with a user. Rebinding an already bound session
// moves it to the new user.
func (r *Registry) Bind(sess *Session, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.bySession[sess]; ok {
		r.removeFromUser(prev, sess)
	}
	r.bySession[sess] = userID
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[*Session]struct{})
	}
	r.byUser[userID][sess] = struct{}{}
}

// Unbind drops the session's user association and reports the user it was
// bound to. Unbinding an unknown session is a no-op.
func (r *Registry) Unbind(sess *Session) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.bySession[sess]
	if !ok {
		return 0, false
	}
	delete(r.bySession, sess)
	r.removeFromUser(userID, sess)
	return userID, true
}

// Resolve returns the user a session is bound to.
func (r *Registry) Resolve(sess *Session) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.bySession[sess]
	return userID, ok
}

// SessionsForUser returns a snapshot of the user's live sessions.
func (r *Registry) SessionsForUser(userID int64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]*Session, 0, len(r.byUser[userID]))
	for sess := range r.byUser[userID] {
		sessions = append(sessions, sess)
	}
	return sessions
}

func (r *Registry) removeFromUser(userID int64, sess *Session) {
	if sessions, ok := r.byUser[userID]; ok {
		delete(sessions, sess)
		if len(sessions) == 0 {
			delete(r.byUser, userID)
		}
	}
}

package competition

import "sync"

// Registry tracks the active session per channel plus the participant
// routing table that maps a user's private messages back to the channel
// they are competing in.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	routes   map[int64]int64 // participant -> chat
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: map[int64]*Session{},
		routes:   map[int64]int64{},
	}
}

// Create installs the session built by mk for chatID. It fails with
// ErrAlreadyActive when the channel already has a session, without calling mk.
func (r *Registry) Create(chatID int64, mk func() *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[chatID]; ok {
		return nil, ErrAlreadyActive
	}
	s := mk()
	r.sessions[chatID] = s
	return s, nil
}

// ByChannel returns the active session running in chatID.
func (r *Registry) ByChannel(chatID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	return s, ok
}

// ByParticipant resolves a user's private message to the session they are
// routed to.
func (r *Registry) ByParticipant(userID int64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chatID, ok := r.routes[userID]
	if !ok {
		return nil, ErrNotParticipating
	}
	s, ok := r.sessions[chatID]
	if !ok {
		// Route left behind by a session removed concurrently.
		delete(r.routes, userID)
		return nil, ErrNotParticipating
	}
	return s, nil
}

// AddRoute registers a participant for the session in chatID. A user already
// routed to another channel is re-pointed at the new one.
func (r *Registry) AddRoute(userID, chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[chatID]; !ok {
		return
	}
	r.routes[userID] = chatID
}

// Remove drops the session for chatID and purges every route that pointed at
// it, in one step, so no participant keeps a route into a dead session.
func (r *Registry) Remove(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[chatID]; !ok {
		return false
	}
	delete(r.sessions, chatID)
	for userID, c := range r.routes {
		if c == chatID {
			delete(r.routes, userID)
		}
	}
	return true
}

// Sole returns the only running session, if exactly one exists.
func (r *Registry) Sole() (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) != 1 {
		return nil, false
	}
	for _, s := range r.sessions {
		return s, true
	}
	return nil, false
}

// Active returns the number of running sessions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

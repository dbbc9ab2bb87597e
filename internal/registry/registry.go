package registry

import "sync"

// DefaultStage is the stage reported for sessions that do not exist yet.
const DefaultStage = 1

// Endpoint is an opaque bidirectional message sink. Send must not block
// indefinitely and must be safe for concurrent use; a returned error marks
// the endpoint as dead.
type Endpoint interface {
	Send(payload []byte) error
}

type session struct {
	stage   int
	clients map[Endpoint]struct{}
}

// Registry owns the session map: connected endpoints and the stage counter
// per session id. All mutation goes through it; there is no package-level
// instance.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]*session)}
}

// Register inserts the endpoint into the session's client set, creating
// the session at the default stage if absent. Idempotent.
func (r *Registry) Register(sessionID string, ep Endpoint) {
	if sessionID == "" || ep == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		s = &session{stage: DefaultStage, clients: make(map[Endpoint]struct{})}
		r.sessions[sessionID] = s
	}
	s.clients[ep] = struct{}{}
}

// Unregister removes the endpoint and deletes the session once its client
// set empties. No-op for unknown sessions or endpoints.
func (r *Registry) Unregister(sessionID string, ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(s.clients, ep)
	if len(s.clients) == 0 {
		delete(r.sessions, sessionID)
	}
}

// Stage returns the session's current stage, or DefaultStage if the
// session does not exist.
func (r *Registry) Stage(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.sessions[sessionID]; ok {
		return s.stage
	}
	return DefaultStage
}

// SetStage updates the stage counter. A session must have at least one
// client to exist; setting the stage of an absent session is a no-op and
// returns false.
func (r *Registry) SetStage(sessionID string, stage int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	s.stage = stage
	return true
}

// ClientCount reports the number of endpoints attached to the session.
func (r *Registry) ClientCount(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.sessions[sessionID]; ok {
		return len(s.clients)
	}
	return 0
}

// snapshot returns the stage and client set as they exist at one point in
// time, so a broadcast stamps and fans out a consistent view without
// holding the lock across network writes.
func (r *Registry) snapshot(sessionID string) (int, []Endpoint) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return DefaultStage, nil
	}
	clients := make([]Endpoint, 0, len(s.clients))
	for ep := range s.clients {
		clients = append(clients, ep)
	}
	return s.stage, clients
}

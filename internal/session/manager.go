package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"peoplepulse/internal/storage"
)

// Manager owns the sessions of every browser client. It is created by the
// application root and handed to whatever needs session access.
type Manager struct {
	remote Remote
	store  storage.Store
	audit  Auditor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. auditor may be nil.
func NewManager(r Remote, store storage.Store, auditor Auditor) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		remote:   r,
		store:    store,
		audit:    auditor,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for clientID, creating it from persisted storage
// on first use. The storage read runs without holding the manager lock.
// When it fails the returned session is anonymous and not kept, so the next
// request reads storage again.
func (m *Manager) Get(ctx context.Context, clientID string) *Session {
	if s := m.lookup(clientID); s != nil {
		return s
	}

	token, err := m.readToken(ctx, clientID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[clientID]; ok {
		s.touch(time.Now())
		return s
	}
	if err != nil {
		return newSession(clientID, "", m)
	}

	s := newSession(clientID, token, m)
	m.sessions[clientID] = s
	return s
}

func (m *Manager) lookup(clientID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[clientID]
	if !ok {
		return nil
	}
	s.touch(time.Now())
	return s
}

// readToken returns the persisted token of clientID, empty when there is
// none. The read outlives a cancelled request.
func (m *Manager) readToken(ctx context.Context, clientID string) (string, error) {
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storageTimeout)
	defer cancel()

	token, err := m.store.Get(readCtx, clientID, storage.TokenKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "", nil
	case err != nil:
		log.Printf("session %s: failed to read persisted token: %v", clientID, err)
		return "", err
	}
	return token, nil
}

// Len returns the number of sessions held in memory
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// WaitSettled blocks until every session held in memory has settled
func (m *Manager) WaitSettled(ctx context.Context) error {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		if err := s.WaitSettled(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Prune drops sessions idle for longer than maxIdle that are neither
// resolving nor held. Their persisted tokens are kept, so the next request restores them as after a restart.
func (m *Manager) Prune(maxIdle time.Duration) int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		idle, busy := s.idleSince(now)
		if busy || idle <= maxIdle {
			continue
		}
		delete(m.sessions, id)
		removed++
	}
	return removed
}

// Close cancels in-flight resolutions and waits for them to finish
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

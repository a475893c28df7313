// Package session holds the per-browser authentication state: the bearer
// token, the resolved user profile and the loading flag, together with the
// login, logout and profile resolution operations that mutate it.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"peoplepulse/internal/models"
	"peoplepulse/internal/remote"
	"peoplepulse/internal/storage"
)

// User-facing login failure messages
const (
	MsgLoginFailed     = "Erro no login"
	MsgConnectionError = "Erro de conexão"
)

// storageTimeout bounds persisted-token reads and writes
const storageTimeout = 5 * time.Second

// Remote is the part of the HR service the session depends on
type Remote interface {
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	Me(ctx context.Context, token string) (*models.User, error)
}

// AuthError is a failed login with a message fit for the login form
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Snapshot is an immutable view of a session's state
type Snapshot struct {
	Token   string       `json:"-"`
	User    *models.User `json:"user"`
	Loading bool         `json:"loading"`
	Version uint64       `json:"version"`
}

// Authenticated reports whether a validated user is present
func (s Snapshot) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// Session is the authentication state of one browser client.
// User is only set while Token is set; Loading is only true during the
// initial resolution of a persisted token.
type Session struct {
	clientID string
	remote   Remote
	store    storage.Store
	audit    Auditor
	ctx      context.Context
	wg       *sync.WaitGroup

	mu         sync.Mutex
	token      string
	user       *models.User
	loading    bool
	page       string
	generation uint64
	inflight   int
	version    uint64
	changed    chan struct{}
	lastSeen   time.Time
	holders    int
}

// newSession builds the session of clientID. A non-empty token is the
// persisted one; its resolution starts immediately with loading set.
func newSession(clientID, token string, m *Manager) *Session {
	s := &Session{
		clientID: clientID,
		remote:   m.remote,
		store:    m.store,
		audit:    m.audit,
		ctx:      m.ctx,
		wg:       &m.wg,
		changed:  make(chan struct{}),
		lastSeen: time.Now(),
	}
	if token == "" {
		return s
	}

	s.mu.Lock()
	s.loading = true
	s.setTokenLocked(token, true)
	s.mu.Unlock()
	return s
}

// ClientID returns the browser client the session belongs to
func (s *Session) ClientID() string {
	return s.clientID
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Watch returns the current state and a channel closed on the next change
func (s *Session) Watch() (Snapshot, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), s.changed
}

// WaitSettled blocks until no profile resolution is in flight and the
// session is not loading
func (s *Session) WaitSettled(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.inflight == 0 && !s.loading {
			s.mu.Unlock()
			return nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// CurrentPage returns the selected page identifier, empty when none was chosen
func (s *Session) CurrentPage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// SelectPage changes the selected page. It has no other side effect.
func (s *Session) SelectPage(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
}

// Login authenticates against the HR service. On success the token and user
// are installed in memory and persisted. Failures return an *AuthError whose
// message is the service's explanation, or a generic one. It never retries.
func (s *Session) Login(ctx context.Context, username, password string) error {
	resp, err := s.remote.Login(ctx, username, password)
	if err != nil {
		var rej *remote.RejectionError
		if errors.As(err, &rej) {
			msg := rej.Message
			if msg == "" {
				msg = MsgLoginFailed
			}
			s.record(ctx, nil, models.ActionLoginFailed, map[string]interface{}{
				"username": username,
				"status":   rej.Status,
			})
			return &AuthError{Message: msg, Err: err}
		}
		log.Printf("session %s: login transport error: %v", s.clientID, err)
		return &AuthError{Message: MsgConnectionError, Err: err}
	}

	s.mu.Lock()
	s.persistLocked(ctx, resp.AccessToken)
	s.user = resp.User
	s.setTokenLocked(resp.AccessToken, false)
	s.bumpLocked()
	user := s.user
	s.mu.Unlock()

	s.record(ctx, user, models.ActionLogin, nil)
	return nil
}

// Logout clears the token and user and erases the persisted token. It makes
// no remote call and is a no-op on an already logged-out session.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	user, had := s.clearLocked(ctx)
	s.mu.Unlock()

	if had {
		s.record(ctx, user, models.ActionLogout, nil)
	}
}

// setTokenLocked installs token and, when it is a new non-empty value,
// starts a profile resolution tagged with a fresh generation
func (s *Session) setTokenLocked(token string, initial bool) {
	if token == s.token && !initial {
		return
	}
	s.token = token
	s.generation++
	if token == "" {
		return
	}

	s.inflight++
	s.wg.Add(1)
	go s.resolve(s.generation, token, initial)
}

// resolve validates token against GET /me. A result whose generation is no
// longer current is discarded. Any failure demotes the session to logged
// out. The initial pass clears the loading flag when it ends, whatever the
// outcome.
func (s *Session) resolve(gen uint64, token string, initial bool) {
	defer s.wg.Done()

	user, err := s.remote.Me(s.ctx, token)

	s.mu.Lock()
	s.inflight--

	var (
		invalidated bool
		lost        *models.User
	)
	switch {
	case gen != s.generation:
		// superseded by a newer token or a logout
	case err != nil && s.ctx.Err() != nil:
		// shutting down; leave the persisted token for the next start
	case err != nil:
		if errors.Is(err, remote.ErrTransport) {
			log.Printf("session %s: profile fetch failed: %v", s.clientID, err)
		}
		lost, _ = s.clearLocked(s.ctx)
		invalidated = true
	default:
		s.user = user
	}

	if initial {
		s.loading = false
	}
	s.bumpLocked()
	s.mu.Unlock()

	if invalidated {
		s.record(s.ctx, lost, models.ActionSessionInvalidated, map[string]string{
			"error": err.Error(),
		})
	}
}

// clearLocked drops token and user and erases the persisted token. It
// reports the user that was logged in and whether anything changed.
func (s *Session) clearLocked(ctx context.Context) (*models.User, bool) {
	had := s.token != "" || s.user != nil
	user := s.user

	s.user = nil
	s.setTokenLocked("", false)

	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storageTimeout)
	defer cancel()
	if err := s.store.Delete(delCtx, s.clientID, storage.TokenKey); err != nil {
		log.Printf("session %s: failed to erase persisted token: %v", s.clientID, err)
	}

	if had {
		s.bumpLocked()
	}
	return user, had
}

func (s *Session) persistLocked(ctx context.Context, token string) {
	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storageTimeout)
	defer cancel()

	ttl := storage.TokenTTL(token, time.Now())
	if err := s.store.Set(setCtx, s.clientID, storage.TokenKey, token, ttl); err != nil {
		// The session still works in memory; it will not survive a restart
		log.Printf("session %s: failed to persist token: %v", s.clientID, err)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Token:   s.token,
		User:    s.user,
		Loading: s.loading,
		Version: s.version,
	}
}

// bumpLocked publishes a state change to watchers
func (s *Session) bumpLocked() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Hold keeps the session in memory until release is called. Long-lived
// watchers such as the session socket hold it so it is never pruned under them.
func (s *Session) Hold() (release func()) {
	s.mu.Lock()
	s.holders++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.holders--
			s.lastSeen = time.Now()
			s.mu.Unlock()
		})
	}
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen), s.inflight > 0 || s.holders > 0
}

func (s *Session) record(ctx context.Context, user *models.User, action string, details interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, Event{
		ClientID: s.clientID,
		User:     user,
		Action:   action,
		Details:  details,
	})
}

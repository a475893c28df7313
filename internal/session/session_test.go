package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"peoplepulse/internal/models"
	"peoplepulse/internal/navigation"
	"peoplepulse/internal/remote"
	"peoplepulse/internal/remote/remotetest"
	"peoplepulse/internal/storage"
)

type memStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, clientID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[clientID+"/"+key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, clientID, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[clientID+"/"+key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, clientID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, clientID+"/"+key)
	return nil
}

// flakyStore fails the first reads and can block reads for one client
type flakyStore struct {
	*memStore

	mu       sync.Mutex
	failures int
	blockFor string
	unblock  chan struct{}
}

func (f *flakyStore) Get(ctx context.Context, clientID, key string) (string, error) {
	f.mu.Lock()
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	block := f.unblock != nil && clientID == f.blockFor
	f.mu.Unlock()

	if fail {
		return "", errors.New("database is locked")
	}
	if block {
		select {
		case <-f.unblock:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.memStore.Get(ctx, clientID, key)
}

func (m *memStore) token(clientID string) (string, bool) {
	v, err := m.Get(context.Background(), clientID, storage.TokenKey)
	return v, err == nil
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []Event
}

func (a *recordingAuditor) Record(_ context.Context, e Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

var (
	gestor    = models.User{ID: 1, Username: "good_user", FirstName: "Ana", LastName: "Lima", Role: models.RoleGestor}
	diretoria = models.User{ID: 2, Username: "boss", FirstName: "Bia", LastName: "Reis", Role: models.RoleDiretoria}
)

type fixture struct {
	fake    *remotetest.Service
	store   *memStore
	auditor *recordingAuditor
	mgr     *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := remotetest.New()
	t.Cleanup(fake.Close)
	fake.AddAccount("good_user", remotetest.Account{Password: "good_pass", Token: "abc", User: gestor})

	f := &fixture{
		fake:    fake,
		store:   newMemStore(),
		auditor: &recordingAuditor{},
	}
	f.mgr = NewManager(remote.NewClient(fake.URL(), 5*time.Second), f.store, f.auditor)
	t.Cleanup(f.mgr.Close)
	return f
}

func settle(t *testing.T, s *Session) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.WaitSettled(ctx); err != nil {
		t.Fatalf("WaitSettled failed: %v", err)
	}
	return s.Snapshot()
}

func TestStartWithoutPersistedTokenMakesNoCall(t *testing.T) {
	f := newFixture(t)

	s := f.mgr.Get(context.Background(), "client-1")
	snap := s.Snapshot()
	if snap.Loading {
		t.Fatal("expected loading to be false without a persisted token")
	}
	if snap.Authenticated() {
		t.Fatal("expected unauthenticated session")
	}
	if calls := f.fake.Calls(); calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestStartWithValidPersistedToken(t *testing.T) {
	f := newFixture(t)
	f.fake.AddToken("persisted", diretoria)
	f.store.Set(context.Background(), "client-1", storage.TokenKey, "persisted", 0)

	release := f.fake.Gate("/me")
	s := f.mgr.Get(context.Background(), "client-1")
	if !s.Snapshot().Loading {
		t.Fatal("expected loading while the persisted token is validated")
	}
	release()

	snap := settle(t, s)
	if snap.Loading {
		t.Fatal("expected loading to clear")
	}
	if snap.Token != "persisted" || snap.User == nil || snap.User.ID != diretoria.ID {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if f.fake.CallsTo("/me") != 1 {
		t.Fatalf("expected exactly one profile fetch, got %d", f.fake.CallsTo("/me"))
	}
}

func TestStartWithRejectedTokenLogsOut(t *testing.T) {
	f := newFixture(t)
	f.store.Set(context.Background(), "client-1", storage.TokenKey, "expired", 0)

	s := f.mgr.Get(context.Background(), "client-1")
	snap := settle(t, s)

	if snap.Token != "" || snap.User != nil || snap.Loading {
		t.Fatalf("expected logged-out settled session, got %+v", snap)
	}
	if _, ok := f.store.token("client-1"); ok {
		t.Fatal("expected persisted token to be erased")
	}
	if got := f.auditor.actions(); len(got) != 1 || got[0] != models.ActionSessionInvalidated {
		t.Fatalf("expected invalidation event, got %v", got)
	}
}

func TestStartWithUnreachableServiceLogsOut(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	store := newMemStore()
	store.Set(context.Background(), "client-1", storage.TokenKey, "abc", 0)
	mgr := NewManager(remote.NewClient(url, time.Second), store, nil)
	defer mgr.Close()

	snap := settle(t, mgr.Get(context.Background(), "client-1"))
	if snap.Token != "" || snap.User != nil {
		t.Fatalf("expected logged-out session, got %+v", snap)
	}
	if _, ok := store.token("client-1"); ok {
		t.Fatal("expected persisted token to be erased")
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	s := f.mgr.Get(context.Background(), "client-1")

	if err := s.Login(context.Background(), "good_user", "good_pass"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	snap := s.Snapshot()
	if !snap.Authenticated() || snap.Token != "abc" {
		t.Fatalf("expected authenticated session with token abc, got %+v", snap)
	}
	if token, ok := f.store.token("client-1"); !ok || token != "abc" {
		t.Fatalf("expected persisted token abc, got %q", token)
	}

	menu := navigation.Menu(snap.User.Role)
	if !navigation.Contains(menu, navigation.PageTeam) {
		t.Fatalf("expected gestor menu to include team, got %v", navigation.IDs(menu))
	}

	snap = settle(t, s)
	if !snap.Authenticated() {
		t.Fatalf("expected session to stay authenticated after revalidation, got %+v", snap)
	}
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t)
	s := f.mgr.Get(context.Background(), "client-1")

	err := s.Login(context.Background(), "bad_user", "bad_pass")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Message != "Invalid credentials" {
		t.Fatalf("expected server message, got %q", authErr.Message)
	}
	if s.Snapshot().Authenticated() {
		t.Fatal("expected session to remain unauthenticated")
	}
	if _, ok := f.store.token("client-1"); ok {
		t.Fatal("expected nothing persisted")
	}
	if got := f.auditor.actions(); len(got) != 1 || got[0] != models.ActionLoginFailed {
		t.Fatalf("expected login.failed event, got %v", got)
	}
}

func TestLoginRejectedWithoutMessage(t *testing.T) {
	// A bare server answers 404 with a plain-text body and no msg field
	srv := httptest.NewServer(nil)
	defer srv.Close()

	mgr := NewManager(remote.NewClient(srv.URL, time.Second), newMemStore(), nil)
	defer mgr.Close()
	s := mgr.Get(context.Background(), "client-1")

	err := s.Login(context.Background(), "good_user", "good_pass")
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Message != MsgLoginFailed {
		t.Fatalf("expected default message, got %v", err)
	}
}

func TestLoginTransportError(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	mgr := NewManager(remote.NewClient(url, time.Second), newMemStore(), nil)
	defer mgr.Close()

	err := mgr.Get(context.Background(), "client-1").Login(context.Background(), "u", "p")
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Message != MsgConnectionError {
		t.Fatalf("expected connection error, got %v", err)
	}
	if !errors.Is(err, remote.ErrTransport) {
		t.Fatalf("expected wrapped ErrTransport, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.mgr.Get(context.Background(), "client-1")

	before := s.Snapshot()
	s.Logout(context.Background())
	after := s.Snapshot()
	if after != before {
		t.Fatalf("expected unchanged session, got %+v -> %+v", before, after)
	}
	if len(f.auditor.actions()) != 0 {
		t.Fatalf("expected no audit events, got %v", f.auditor.actions())
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	f := newFixture(t)
	s := f.mgr.Get(context.Background(), "client-1")
	if err := s.Login(context.Background(), "good_user", "good_pass"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	settle(t, s)
	calls := f.fake.Calls()

	s.Logout(context.Background())

	snap := s.Snapshot()
	if snap.Token != "" || snap.User != nil || snap.Loading {
		t.Fatalf("expected cleared session, got %+v", snap)
	}
	if _, ok := f.store.token("client-1"); ok {
		t.Fatal("expected persisted token to be erased")
	}
	if f.fake.Calls() != calls {
		t.Fatal("logout must not call the HR service")
	}
}

func TestStaleResolutionIsDiscarded(t *testing.T) {
	f := newFixture(t)
	f.store.Set(context.Background(), "client-1", storage.TokenKey, "old", 0)

	// The old token's resolution is held until after a fresh login
	release := f.fake.Gate("/me")
	s := f.mgr.Get(context.Background(), "client-1")
	if err := s.Login(context.Background(), "good_user", "good_pass"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	release()

	snap := settle(t, s)
	if snap.Token != "abc" || snap.User == nil || snap.User.ID != gestor.ID {
		t.Fatalf("expected the newer login to win, got %+v", snap)
	}
	if snap.Loading {
		t.Fatal("expected loading to clear")
	}
	if token, ok := f.store.token("client-1"); !ok || token != "abc" {
		t.Fatalf("expected persisted token abc, got %q", token)
	}
}

func TestLogoutDuringResolutionWins(t *testing.T) {
	f := newFixture(t)
	f.fake.AddToken("persisted", diretoria)
	f.store.Set(context.Background(), "client-1", storage.TokenKey, "persisted", 0)

	release := f.fake.Gate("/me")
	s := f.mgr.Get(context.Background(), "client-1")
	s.Logout(context.Background())
	release()

	snap := settle(t, s)
	if snap.User != nil || snap.Token != "" {
		t.Fatalf("expected resolution result to be discarded, got %+v", snap)
	}
}

func TestWatchSignalsChanges(t *testing.T) {
	f := newFixture(t)
	s := f.mgr.Get(context.Background(), "client-1")

	first, changed := s.Watch()
	if err := s.Login(context.Background(), "good_user", "good_pass"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("expected change notification")
	}
	if s.Snapshot().Version <= first.Version {
		t.Fatal("expected version to advance")
	}
}

func TestSelectPage(t *testing.T) {
	f := newFixture(t)
	s := f.mgr.Get(context.Background(), "client-1")

	if s.CurrentPage() != "" {
		t.Fatalf("expected no page selected, got %q", s.CurrentPage())
	}
	s.SelectPage("pdi")
	if s.CurrentPage() != "pdi" {
		t.Fatalf("expected pdi, got %q", s.CurrentPage())
	}
}

func TestManagerReusesAndPrunesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.mgr.Get(ctx, "client-1")
	if f.mgr.Get(ctx, "client-1") != a {
		t.Fatal("expected the same session for the same client")
	}
	if f.mgr.Get(ctx, "client-2") == a {
		t.Fatal("expected distinct sessions per client")
	}

	if err := a.Login(ctx, "good_user", "good_pass"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	settle(t, a)

	time.Sleep(5 * time.Millisecond)
	if n := f.mgr.Prune(time.Millisecond); n != 2 {
		t.Fatalf("expected 2 pruned sessions, got %d", n)
	}
	if f.mgr.Len() != 0 {
		t.Fatalf("expected empty manager, got %d", f.mgr.Len())
	}

	// The persisted token restores the session like a restart would
	restored := f.mgr.Get(ctx, "client-1")
	snap := settle(t, restored)
	if !snap.Authenticated() || snap.Token != "abc" {
		t.Fatalf("expected restored session, got %+v", snap)
	}
}

func TestCloseCancelsResolution(t *testing.T) {
	fake := remotetest.New()
	defer fake.Close()
	fake.AddToken("persisted", diretoria)
	release := fake.Gate("/me")
	defer release()

	store := newMemStore()
	store.Set(context.Background(), "client-1", storage.TokenKey, "persisted", 0)
	mgr := NewManager(remote.NewClient(fake.URL(), 5*time.Second), store, nil)
	s := mgr.Get(context.Background(), "client-1")

	done := make(chan struct{})
	go func() {
		mgr.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	if s.Snapshot().Loading {
		t.Fatal("expected loading to clear on shutdown")
	}
	if token, ok := store.token("client-1"); !ok || token != "persisted" {
		t.Fatal("expected persisted token to survive shutdown")
	}
}

func TestManagerWaitSettled(t *testing.T) {
	f := newFixture(t)
	f.fake.AddToken("t1", gestor)
	f.fake.AddToken("t2", diretoria)
	f.store.Set(context.Background(), "client-1", storage.TokenKey, "t1", 0)
	f.store.Set(context.Background(), "client-2", storage.TokenKey, "t2", 0)

	release := f.fake.Gate("/me")
	a := f.mgr.Get(context.Background(), "client-1")
	b := f.mgr.Get(context.Background(), "client-2")

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := f.mgr.WaitSettled(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitSettled with gated resolutions = %v", err)
	}

	release()
	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := f.mgr.WaitSettled(ctx); err != nil {
		t.Fatalf("WaitSettled: %v", err)
	}
	if !a.Snapshot().Authenticated() || !b.Snapshot().Authenticated() {
		t.Error("sessions not authenticated after settling")
	}
}

func TestStorageReadErrorIsRetried(t *testing.T) {
	f := newFixture(t)
	store := &flakyStore{memStore: f.store, failures: 1}
	mgr := NewManager(remote.NewClient(f.fake.URL(), 5*time.Second), store, nil)
	t.Cleanup(mgr.Close)
	store.Set(context.Background(), "client-1", storage.TokenKey, "abc", 0)

	first := mgr.Get(context.Background(), "client-1")
	if first.Snapshot().Token != "" {
		t.Fatal("expected an anonymous session when storage fails")
	}
	if mgr.Len() != 0 {
		t.Fatal("session built from a failed read was kept")
	}

	again := mgr.Get(context.Background(), "client-1")
	snap := settle(t, again)
	if !snap.Authenticated() || snap.Token != "abc" {
		t.Fatalf("expected the persisted token to be restored, got %+v", snap)
	}
	if calls := f.fake.CallsTo("/me"); calls != 1 {
		t.Fatalf("expected one /me call, got %d", calls)
	}
}

func TestStorageReadSurvivesCancelledRequest(t *testing.T) {
	f := newFixture(t)
	f.store.Set(context.Background(), "client-1", storage.TokenKey, "abc", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := settle(t, f.mgr.Get(ctx, "client-1"))
	if !snap.Authenticated() {
		t.Fatalf("expected restored session despite cancelled request, got %+v", snap)
	}
}

func TestSlowStorageReadDoesNotBlockOtherClients(t *testing.T) {
	f := newFixture(t)
	store := &flakyStore{memStore: f.store, blockFor: "slow", unblock: make(chan struct{})}
	mgr := NewManager(remote.NewClient(f.fake.URL(), 5*time.Second), store, nil)
	t.Cleanup(mgr.Close)

	slowDone := make(chan *Session)
	go func() { slowDone <- mgr.Get(context.Background(), "slow") }()
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		mgr.Get(context.Background(), "fast")
		mgr.Len()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get for another client waited on a slow storage read")
	}

	close(store.unblock)
	select {
	case s := <-slowDone:
		if mgr.Get(context.Background(), "slow") != s {
			t.Fatal("expected the slow client's session to be kept")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("slow Get never returned")
	}
}

func TestPruneSkipsHeldSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.mgr.Get(ctx, "client-1")
	release := s.Hold()

	time.Sleep(5 * time.Millisecond)
	if n := f.mgr.Prune(time.Millisecond); n != 0 {
		t.Fatalf("expected held session to stay, pruned %d", n)
	}
	if f.mgr.Get(ctx, "client-1") != s {
		t.Fatal("expected the held session to be returned")
	}

	release()
	release()
	time.Sleep(5 * time.Millisecond)
	if n := f.mgr.Prune(time.Millisecond); n != 1 {
		t.Fatalf("expected released session to be pruned, got %d", n)
	}
}

// Package remotetest provides an in-process fake of the HR service for tests.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"peoplepulse/internal/models"
)

// Account is a user the fake service accepts
type Account struct {
	Password string
	Token    string
	User     models.User
}

// Service is a fake HR service backed by in-memory fixtures
type Service struct {
	*httptest.Server

	mu           sync.Mutex
	accounts     map[string]Account
	tokens       map[string]models.User
	kpis         map[int64][]models.KPI
	pdis         []models.PDI
	recognitions map[int64][]models.Recognition
	checkins     map[int64][]models.EmotionalCheckin
	failing      map[string]int
	gates        map[string]chan struct{}

	calls atomic.Int64
	paths sync.Map
}

// New starts a fake service; callers must Close it
func New() *Service {
	s := &Service{
		accounts:     make(map[string]Account),
		tokens:       make(map[string]models.User),
		kpis:         make(map[int64][]models.KPI),
		recognitions: make(map[int64][]models.Recognition),
		checkins:     make(map[int64][]models.EmotionalCheckin),
		failing:      make(map[string]int),
		gates:        make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// AddAccount registers credentials and makes the token valid for /me
func (s *Service) AddAccount(username string, a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = a
	s.tokens[a.Token] = a.User
}

// AddToken makes a bare token valid for /me
func (s *Service) AddToken(token string, u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = u
}

// RevokeToken makes token invalid for subsequent calls
func (s *Service) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// SetKPIs sets the KPIs returned for a user
func (s *Service) SetKPIs(userID int64, kpis []models.KPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kpis[userID] = kpis
}

// SetPDIs sets the PDIs returned by /pdis
func (s *Service) SetPDIs(pdis []models.PDI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pdis = pdis
}

// SetRecognitions sets the recognitions received by a user
func (s *Service) SetRecognitions(userID int64, recs []models.Recognition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recognitions[userID] = recs
}

// SetCheckins sets the emotional check-ins of a user
func (s *Service) SetCheckins(userID int64, checkins []models.EmotionalCheckin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkins[userID] = checkins
}

// FailPath makes requests whose path starts with prefix answer with status
func (s *Service) FailPath(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[prefix] = status
}

// Gate blocks requests whose path starts with prefix until the returned
// function is called
func (s *Service) Gate(prefix string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[prefix] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, prefix)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns the number of requests served
func (s *Service) Calls() int64 {
	return s.calls.Load()
}

// CallsTo returns the number of requests served for an exact path
func (s *Service) CallsTo(path string) int64 {
	v, ok := s.paths.Load(path)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// URL returns the base URL clients should use
func (s *Service) URL() string {
	return s.Server.URL + "/api"
}

func (s *Service) serve(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	path := strings.TrimPrefix(r.URL.Path, "/api")
	counter, _ := s.paths.LoadOrStore(path, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)

	s.mu.Lock()
	var gate chan struct{}
	for prefix, ch := range s.gates {
		if strings.HasPrefix(path, prefix) {
			gate = ch
		}
	}
	status := 0
	for prefix, st := range s.failing {
		if strings.HasPrefix(path, prefix) {
			status = st
		}
	}
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		writeJSON(w, status, models.ErrorResponse{Msg: http.StatusText(status)})
		return
	}

	if path == "/login" && r.Method == http.MethodPost {
		s.login(w, r)
		return
	}

	user, ok := s.authenticate(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Msg: "Token has expired"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case path == "/me":
		writeJSON(w, http.StatusOK, user)
	case path == "/pdis":
		writeJSON(w, http.StatusOK, nonNil(s.pdis))
	case path == fmt.Sprintf("/users/%d/kpis", user.ID):
		writeJSON(w, http.StatusOK, nonNil(s.kpis[user.ID]))
	case path == fmt.Sprintf("/users/%d/recognitions/received", user.ID):
		writeJSON(w, http.StatusOK, nonNil(s.recognitions[user.ID]))
	case path == fmt.Sprintf("/emotional-checkins/user/%d", user.ID):
		writeJSON(w, http.StatusOK, nonNil(s.checkins[user.ID]))
	default:
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Msg: "not found"})
	}
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Msg: "Invalid request"})
		return
	}

	s.mu.Lock()
	account, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || account.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Msg: "Invalid credentials"})
		return
	}

	user := account.User
	writeJSON(w, http.StatusOK, models.LoginResponse{AccessToken: account.Token, User: &user})
}

func (s *Service) authenticate(r *http.Request) (models.User, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		return models.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.tokens[token]
	return u, ok
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

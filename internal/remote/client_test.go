package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peoplepulse/internal/models"
	"peoplepulse/internal/remote/remotetest"
)

func newFake(t *testing.T) (*remotetest.Service, *Client) {
	t.Helper()
	fake := remotetest.New()
	t.Cleanup(fake.Close)
	fake.AddAccount("good_user", remotetest.Account{
		Password: "good_pass",
		Token:    "abc",
		User:     models.User{ID: 1, Username: "good_user", FirstName: "Ana", LastName: "Lima", Role: models.RoleGestor},
	})
	return fake, NewClient(fake.URL(), 5*time.Second)
}

func TestLoginSuccess(t *testing.T) {
	_, c := newFake(t)

	resp, err := c.Login(context.Background(), "good_user", "good_pass")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.AccessToken != "abc" {
		t.Fatalf("expected token abc, got %q", resp.AccessToken)
	}
	if resp.User.Role != models.RoleGestor {
		t.Fatalf("expected gestor, got %q", resp.User.Role)
	}
}

func TestLoginRejectionCarriesMessage(t *testing.T) {
	_, c := newFake(t)

	_, err := c.Login(context.Background(), "bad_user", "bad_pass")
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if rej.Status != http.StatusUnauthorized || rej.Message != "Invalid credentials" {
		t.Fatalf("unexpected rejection: %+v", rej)
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatal("expected 401 to match ErrUnauthorized")
	}
}

func TestRejectionWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>boom</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Login(context.Background(), "u", "p")
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if rej.Message != "" {
		t.Fatalf("expected empty message, got %q", rej.Message)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("500 must not match ErrUnauthorized")
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Me(context.Background(), "abc")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestCancelledContextIsNotTransportError(t *testing.T) {
	fake, c := newFake(t)
	release := fake.Gate("/me")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Me(ctx, "abc")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMeSendsBearerToken(t *testing.T) {
	_, c := newFake(t)

	user, err := c.Me(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.ID != 1 || user.FirstName != "Ana" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := c.Me(context.Background(), "stale"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for stale token, got %v", err)
	}
}

func TestDashboardReads(t *testing.T) {
	fake, c := newFake(t)
	fake.SetKPIs(1, []models.KPI{{ID: 1, Name: "Vendas", Value: 80}})
	fake.SetPDIs([]models.PDI{{ID: 7, Title: "Liderança", Status: models.PDIInProgress}})
	fake.SetRecognitions(1, []models.Recognition{{ID: 3, Badge: "Team Player", RecognizerUsername: "bia"}})
	fake.SetCheckins(1, []models.EmotionalCheckin{{ID: 9, Feeling: "feliz"}})
	ctx := context.Background()

	kpis, err := c.KPIs(ctx, "abc", 1)
	if err != nil || len(kpis) != 1 || kpis[0].Value != 80 {
		t.Fatalf("KPIs: %v %+v", err, kpis)
	}
	pdis, err := c.PDIs(ctx, "abc")
	if err != nil || len(pdis) != 1 || pdis[0].Status != models.PDIInProgress {
		t.Fatalf("PDIs: %v %+v", err, pdis)
	}
	recs, err := c.Recognitions(ctx, "abc", 1)
	if err != nil || len(recs) != 1 || recs[0].RecognizerUsername != "bia" {
		t.Fatalf("Recognitions: %v %+v", err, recs)
	}
	checkins, err := c.Checkins(ctx, "abc", 1)
	if err != nil || len(checkins) != 1 || checkins[0].Feeling.Emoji() != "😊" {
		t.Fatalf("Checkins: %v %+v", err, checkins)
	}
}

package dashboard

import (
	"context"
	"net/http"
	"sort"
	"testing"
	"time"

	"peoplepulse/internal/models"
	"peoplepulse/internal/remote"
	"peoplepulse/internal/remote/remotetest"
)

var ana = &models.User{ID: 1, Username: "ana", FirstName: "Ana", Role: models.RoleColaborador}

func newLoader(t *testing.T) (*remotetest.Service, *Loader) {
	t.Helper()
	fake := remotetest.New()
	t.Cleanup(fake.Close)
	fake.AddToken("abc", *ana)

	var kpis []models.KPI
	for i := 1; i <= 5; i++ {
		kpis = append(kpis, models.KPI{ID: int64(i), Name: "Vendas", Value: float64(i * 10)})
	}
	fake.SetKPIs(1, kpis)
	fake.SetPDIs([]models.PDI{
		{ID: 1, Title: "Inglês", Status: models.PDIDone},
		{ID: 2, Title: "Liderança", Status: models.PDIInProgress},
		{ID: 3, Title: "Go", Status: models.PDIPending},
		{ID: 4, Title: "Oratória", Status: models.PDILate},
	})
	fake.SetRecognitions(1, []models.Recognition{{ID: 1, Badge: "Inovador", RecognizerUsername: "bia"}})
	var checkins []models.EmotionalCheckin
	for i := 1; i <= 7; i++ {
		checkins = append(checkins, models.EmotionalCheckin{ID: int64(i), Feeling: "feliz"})
	}
	fake.SetCheckins(1, checkins)

	return fake, NewLoader(remote.NewClient(fake.URL(), 5*time.Second))
}

func TestLoadTakesBoundedPrefixes(t *testing.T) {
	_, l := newLoader(t)

	sum := l.Load(context.Background(), "abc", ana)
	if len(sum.KPIs) != KPILimit || sum.KPIs[0].ID != 1 || sum.KPIs[2].ID != 3 {
		t.Fatalf("expected first 3 KPIs in order, got %+v", sum.KPIs)
	}
	if len(sum.PDIs) != PDILimit {
		t.Fatalf("expected 3 PDIs, got %d", len(sum.PDIs))
	}
	if sum.ActivePDIs() != 2 {
		t.Fatalf("expected 2 active PDIs, got %d", sum.ActivePDIs())
	}
	if len(sum.Recognitions) != 1 {
		t.Fatalf("expected 1 recognition, got %d", len(sum.Recognitions))
	}
	if len(sum.Checkins) != CheckinLimit {
		t.Fatalf("expected 5 check-ins, got %d", len(sum.Checkins))
	}
	if len(sum.Failed) != 0 {
		t.Fatalf("expected no failures, got %v", sum.Failed)
	}
}

func TestLoadIsolatesFailures(t *testing.T) {
	fake, l := newLoader(t)
	fake.FailPath("/pdis", http.StatusInternalServerError)
	fake.FailPath("/emotional-checkins", http.StatusForbidden)

	sum := l.Load(context.Background(), "abc", ana)
	if len(sum.PDIs) != 0 || len(sum.Checkins) != 0 {
		t.Fatalf("expected failed sections to be empty, got %+v", sum)
	}
	if len(sum.KPIs) != KPILimit || len(sum.Recognitions) != 1 {
		t.Fatalf("expected sibling sections to load, got %+v", sum)
	}
	sort.Strings(sum.Failed)
	if len(sum.Failed) != 2 || sum.Failed[0] != "checkins" || sum.Failed[1] != "pdis" {
		t.Fatalf("unexpected failed sections: %v", sum.Failed)
	}
}

func TestLoadDropsResultsAfterCancel(t *testing.T) {
	fake, l := newLoader(t)
	release := fake.Gate("/pdis")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *Summary)
	go func() { done <- l.Load(ctx, "abc", ana) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case sum := <-done:
		if len(sum.KPIs) != 0 || len(sum.PDIs) != 0 || len(sum.Checkins) != 0 {
			t.Fatalf("expected no data after cancellation, got %+v", sum)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Load did not return after cancellation")
	}
}

func TestLoadWithoutUser(t *testing.T) {
	fake, l := newLoader(t)
	sum := l.Load(context.Background(), "", nil)
	if sum.Greeting == "" {
		t.Fatal("expected a greeting")
	}
	if fake.Calls() != 0 {
		t.Fatalf("expected no reads, got %d", fake.Calls())
	}
}

func TestGreeting(t *testing.T) {
	day := func(h int) time.Time { return time.Date(2024, 5, 1, h, 0, 0, 0, time.Local) }
	cases := map[int]string{0: "Bom dia", 11: "Bom dia", 12: "Boa tarde", 17: "Boa tarde", 18: "Boa noite", 23: "Boa noite"}
	for h, want := range cases {
		if got := Greeting(day(h)); got != want {
			t.Errorf("Greeting(%dh) = %q, want %q", h, got, want)
		}
	}
}

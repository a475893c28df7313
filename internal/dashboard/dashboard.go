// Package dashboard gathers the data shown on the landing page.
package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"peoplepulse/internal/models"
)

// Number of records each card shows
const (
	KPILimit         = 3
	PDILimit         = 3
	RecognitionLimit = 3
	CheckinLimit     = 5
)

// Source is the part of the HR service the dashboard reads from
type Source interface {
	KPIs(ctx context.Context, token string, userID int64) ([]models.KPI, error)
	PDIs(ctx context.Context, token string) ([]models.PDI, error)
	Recognitions(ctx context.Context, token string, userID int64) ([]models.Recognition, error)
	Checkins(ctx context.Context, token string, userID int64) ([]models.EmotionalCheckin, error)
}

// Summary is the dashboard content. A section whose read failed is empty.
type Summary struct {
	Greeting     string                    `json:"greeting"`
	KPIs         []models.KPI              `json:"kpis"`
	PDIs         []models.PDI              `json:"pdis"`
	Recognitions []models.Recognition      `json:"recognitions"`
	Checkins     []models.EmotionalCheckin `json:"checkins"`
	Failed       []string                  `json:"failed,omitempty"`
}

// ActivePDIs counts PDIs that are not finished
func (s *Summary) ActivePDIs() int {
	n := 0
	for _, p := range s.PDIs {
		if p.Status != models.PDIDone {
			n++
		}
	}
	return n
}

// Loader fetches dashboard sections
type Loader struct {
	src Source
	now func() time.Time
}

// NewLoader creates a loader reading from src
func NewLoader(src Source) *Loader {
	return &Loader{src: src, now: time.Now}
}

// Load issues the four section reads concurrently. Each read fails on its
// own without affecting its siblings. When ctx ends, outstanding reads are
// cancelled and their results dropped.
func (l *Loader) Load(ctx context.Context, token string, user *models.User) *Summary {
	sum := &Summary{Greeting: Greeting(l.now())}
	if user == nil {
		return sum
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	fetch := func(section string, read func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := read(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Printf("dashboard: %s read failed for user %d: %v", section, user.ID, err)
				}
				mu.Lock()
				sum.Failed = append(sum.Failed, section)
				mu.Unlock()
			}
		}()
	}

	var (
		kpis     []models.KPI
		pdis     []models.PDI
		recs     []models.Recognition
		checkins []models.EmotionalCheckin
	)
	fetch("kpis", func(ctx context.Context) error {
		v, err := l.src.KPIs(ctx, token, user.ID)
		if err == nil {
			kpis = v
		}
		return err
	})
	fetch("pdis", func(ctx context.Context) error {
		v, err := l.src.PDIs(ctx, token)
		if err == nil {
			pdis = v
		}
		return err
	})
	fetch("recognitions", func(ctx context.Context) error {
		v, err := l.src.Recognitions(ctx, token, user.ID)
		if err == nil {
			recs = v
		}
		return err
	})
	fetch("checkins", func(ctx context.Context) error {
		v, err := l.src.Checkins(ctx, token, user.ID)
		if err == nil {
			checkins = v
		}
		return err
	})
	wg.Wait()

	if ctx.Err() != nil {
		return sum
	}

	sum.KPIs = head(kpis, KPILimit)
	sum.PDIs = head(pdis, PDILimit)
	sum.Recognitions = head(recs, RecognitionLimit)
	sum.Checkins = head(checkins, CheckinLimit)
	return sum
}

// Greeting picks the salutation for the hour of t
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return "Bom dia"
	case h < 18:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

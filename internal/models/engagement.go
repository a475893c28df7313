package models

import "time"

// KPI is a named metric with a percentage value
type KPI struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Target float64 `json:"target,omitempty"`
}

// Percent clamps the value to the 0-100 range for progress bars
func (k KPI) Percent() float64 {
	switch {
	case k.Value < 0:
		return 0
	case k.Value > 100:
		return 100
	}
	return k.Value
}

// PDIStatus is the progress state of an individual development plan
type PDIStatus string

const (
	PDIPending    PDIStatus = "pendente"
	PDIInProgress PDIStatus = "em progresso"
	PDIDone       PDIStatus = "concluido"
	PDILate       PDIStatus = "atrasado"
)

var pdiBadgeClasses = map[PDIStatus]string{
	PDIPending:    "bg-yellow-100 text-yellow-800",
	PDIInProgress: "bg-blue-100 text-blue-800",
	PDIDone:       "bg-green-100 text-green-800",
	PDILate:       "bg-red-100 text-red-800",
}

// BadgeClass returns the CSS classes for the status badge
func (s PDIStatus) BadgeClass() string {
	if c, ok := pdiBadgeClasses[s]; ok {
		return c
	}
	return "bg-gray-100 text-gray-800"
}

// PDI is an individual development plan
type PDI struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      PDIStatus `json:"status"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
}

// Recognition is a badge awarded by a peer
type Recognition struct {
	ID                 int64  `json:"id"`
	Badge              string `json:"badge"`
	Message            string `json:"message,omitempty"`
	RecognizerUsername string `json:"recognizer_username"`
	CreatedAt          Date   `json:"created_at"`
}

// Feeling is a self-reported mood
type Feeling string

var feelingEmoji = map[Feeling]string{
	"feliz":      "😊",
	"neutro":     "😐",
	"triste":     "😢",
	"animado":    "🤩",
	"cansado":    "😴",
	"estressado": "😰",
}

// Emoji returns the emoji shown for the feeling
func (f Feeling) Emoji() string {
	if e, ok := feelingEmoji[f]; ok {
		return e
	}
	return "😐"
}

// EmotionalCheckin is a timestamped mood record
type EmotionalCheckin struct {
	ID        int64   `json:"id"`
	Feeling   Feeling `json:"feeling"`
	Notes     string  `json:"notes,omitempty"`
	Timestamp Date    `json:"timestamp"`
}

// Date accepts the timestamp layouts the HR service emits
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"Mon, 02 Jan 2006 15:04:05 GMT",
	"2006-01-02",
}

// UnmarshalJSON parses any known layout; unparseable values become the zero time
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || len(s) < 2 {
		d.Time = time.Time{}
		return nil
	}
	s = s[1 : len(s)-1]
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	d.Time = time.Time{}
	return nil
}

// MarshalJSON writes RFC 3339, or null for the zero time
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.RFC3339) + `"`), nil
}

// BR formats the date as dd/mm/yyyy
func (d Date) BR() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

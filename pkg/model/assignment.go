package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	StatusSubmitted  = "SUBMITTED"
	StatusInProgress = "IP"
)

// Assignment is one unit of work discovered on a Gradescope course page.
// Records are produced fresh by every scrape and never mutated by the sync engine.
type Assignment struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	FullTitle  string   `json:"fullTitle"`
	Status     string   `json:"status"`
	StatusAbbr string   `json:"statusAbbr"`
	DueDate    *DueDate `json:"dueDate,omitempty"`
	CourseName string   `json:"courseName"`
}

// HasDueDate reports whether the scraper saw a due date at all. A present but
// unparseable value still counts; the payload then just omits the due field.
func (a Assignment) HasDueDate() bool {
	return a.DueDate != nil && strings.TrimSpace(a.DueDate.Raw) != ""
}

// IsComplete reports whether the status abbreviation marks the work as handed in.
func (a Assignment) IsComplete() bool {
	switch strings.ToUpper(strings.TrimSpace(a.StatusAbbr)) {
	case StatusSubmitted, "COMPLETE", "COMPLETED":
		return true
	}
	return false
}

// DisplayTitle is the short name used in results and logs.
func (a Assignment) DisplayTitle() string {
	if a.Title != "" {
		return a.Title
	}
	return a.FullTitle
}

// AbbreviateStatus derives a status abbreviation from the free-text status the
// same way the page scraper does.
func AbbreviateStatus(status string) string {
	s := strings.ToLower(status)
	if strings.Contains(s, "submitted") || strings.Contains(s, "complete") {
		return StatusSubmitted
	}
	return StatusInProgress
}

// ComposeFullTitle builds the canonical remote title "<course>: <title> (<abbr>)".
func ComposeFullTitle(course, title, abbr string) string {
	return fmt.Sprintf("%s: %s (%s)", course, title, abbr)
}

// DueDate keeps the raw due date string next to its parsed instant.
// Time is zero when Raw could not be parsed.
type DueDate struct {
	Raw  string
	Time time.Time
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDueDate never fails; callers check Valid.
func ParseDueDate(raw string) *DueDate {
	d := &DueDate{Raw: strings.TrimSpace(raw)}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, d.Raw); err == nil {
			d.Time = t
			break
		}
	}
	return d
}

// NewDueDate wraps an already known instant.
func NewDueDate(t time.Time) *DueDate {
	return &DueDate{Raw: t.Format(time.RFC3339), Time: t}
}

func (d *DueDate) Valid() bool {
	return d != nil && !d.Time.IsZero()
}

// UnmarshalJSON implements the json.Unmarshaler interface for DueDate.
// Unparseable strings are kept in Raw instead of failing the whole batch.
func (d *DueDate) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = DueDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("failed to decode due date %s: %w", string(b), err)
	}
	*d = *ParseDueDate(s)
	return nil
}

// MarshalJSON implements the json.Marshaler interface for DueDate.
func (d DueDate) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return json.Marshal(d.Raw)
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}

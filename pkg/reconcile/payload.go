package reconcile

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harrisonrobin/gradesync/pkg/gateway"
	"github.com/harrisonrobin/gradesync/pkg/model"
)

const (
	// TitleLimit and NotesLimit are the Google Tasks field ceilings, in characters.
	TitleLimit = 1024
	NotesLimit = 8192

	Ellipsis = "..."

	// ProvenanceMarker tags every task this tool writes. Orphan sweeps only
	// ever touch tasks whose notes contain it.
	ProvenanceMarker = "Synced from Gradescope"

	// dueLayout renders the date-only wire value; it is only ever applied to
	// midnight UTC, so the clock and fraction are always zero.
	dueLayout = "2006-01-02T15:04:05.000Z"
)

var remoteIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// ValidRemoteID is the sanity check applied to stored task ids before use.
func ValidRemoteID(id string) bool {
	return remoteIDPattern.MatchString(id)
}

// PayloadBuilder turns an assignment into a remote task payload. Location
// decides which calendar day a due instant falls on; nil means time.Local.
type PayloadBuilder struct {
	Location *time.Location
}

func (b PayloadBuilder) location() *time.Location {
	if b.Location == nil {
		return time.Local
	}
	return b.Location
}

// Title returns the remote title for a, or "" when a has none.
func (b PayloadBuilder) Title(a model.Assignment) string {
	title := strings.TrimSpace(a.FullTitle)
	if title == "" {
		return ""
	}
	return truncate(title, TitleLimit)
}

// Build creates the payload for a. It fails only when the title is empty;
// an unparseable due date just leaves Due out.
func (b PayloadBuilder) Build(a model.Assignment) (model.TaskPayload, error) {
	title := b.Title(a)
	if title == "" {
		return model.TaskPayload{}, fmt.Errorf("%w: assignment %q has an empty title", gateway.ErrInvalidPayload, a.ID)
	}

	status := model.TaskNeedsAction
	if a.IsComplete() {
		status = model.TaskCompleted
	}

	payload := model.TaskPayload{
		Title:  title,
		Status: status,
	}

	var dueLine string
	if a.DueDate.Valid() {
		local := a.DueDate.Time.In(b.location())
		y, m, d := local.Date()
		payload.Due = time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format(dueLayout)
		// The Tasks API keeps only the date, so the time of day goes to the notes.
		dueLine = fmt.Sprintf("⏰ Due Time: %s", local.Format("3:04 PM"))
	}

	payload.Notes = buildNotes(a, dueLine)
	return payload, nil
}

func buildNotes(a model.Assignment, dueLine string) string {
	var notes strings.Builder
	notes.WriteString(fmt.Sprintf("Assignment from %s\n\n", a.CourseName))
	notes.WriteString(fmt.Sprintf("Status: %s", a.Status))
	if dueLine != "" {
		notes.WriteString("\n\n")
		notes.WriteString(dueLine)
	}

	suffix := "\n\n" + ProvenanceMarker
	body := notes.String()
	if utf8.RuneCountInString(body)+utf8.RuneCountInString(suffix) <= NotesLimit {
		return body + suffix
	}
	// Cut the body, never the marker.
	return truncate(body, NotesLimit-utf8.RuneCountInString(suffix)) + suffix
}

// truncate shortens s to at most limit characters, ending in Ellipsis when cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-utf8.RuneCountInString(Ellipsis)]) + Ellipsis
}

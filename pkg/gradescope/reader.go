// Package gradescope decodes the assignment export produced by the course page
// scraper into normalized model.Assignment records.
package gradescope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrisonrobin/gradesync/pkg/model"
	"gopkg.in/yaml.v3"
)

// Export is the message the scraper emits for one course page.
type Export struct {
	CourseName  string             `json:"courseName"`
	Assignments []model.Assignment `json:"assignments"`
}

type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// ReadFile parses an export file. YAML is chosen by extension, everything else is JSON.
func (r *Reader) ReadFile(path string) ([]model.Assignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open assignment export %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return r.ParseYAML(f)
	}
	return r.Parse(f)
}

// Parse decodes one or more JSON values from r. Each value may be an export
// envelope, a bare array of assignments, or a single assignment (NDJSON).
func (r *Reader) Parse(in io.Reader) ([]model.Assignment, error) {
	var out []model.Assignment
	decoder := json.NewDecoder(in)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode assignment json: %w", err)
		}
		batch, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

// ParseYAML accepts the same shapes as Parse, written as a single YAML document.
func (r *Reader) ParseYAML(in io.Reader) ([]model.Assignment, error) {
	var doc any
	if err := yaml.NewDecoder(in).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode assignment yaml: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert assignment yaml: %w", err)
	}
	return decodeValue(b)
}

func decodeValue(raw json.RawMessage) ([]model.Assignment, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var list []model.Assignment
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode assignment list: %w", err)
		}
		return normalizeAll("", list), nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode assignment object: %w", err)
	}
	if _, ok := probe["assignments"]; ok {
		var export Export
		if err := json.Unmarshal(trimmed, &export); err != nil {
			return nil, fmt.Errorf("failed to decode assignment export: %w", err)
		}
		return normalizeAll(export.CourseName, export.Assignments), nil
	}

	var a model.Assignment
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return nil, fmt.Errorf("failed to decode assignment: %w", err)
	}
	return []model.Assignment{Normalize("", a)}, nil
}

func normalizeAll(course string, list []model.Assignment) []model.Assignment {
	out := make([]model.Assignment, 0, len(list))
	for _, a := range list {
		out = append(out, Normalize(course, a))
	}
	return out
}

// Normalize fills the derived fields the scraper sometimes leaves out:
// course name from the envelope, status abbreviation from the status text,
// and the canonical full title.
func Normalize(course string, a model.Assignment) model.Assignment {
	a.ID = strings.TrimSpace(a.ID)
	a.Title = strings.TrimSpace(a.Title)
	if a.CourseName == "" {
		a.CourseName = course
	}
	if a.StatusAbbr == "" {
		a.StatusAbbr = model.AbbreviateStatus(a.Status)
	}
	if strings.TrimSpace(a.FullTitle) == "" && a.Title != "" {
		a.FullTitle = model.ComposeFullTitle(a.CourseName, a.Title, a.StatusAbbr)
	}
	return a
}

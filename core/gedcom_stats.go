package core

import (
	"encoding/json"
	"time"

	"github.com/marcmoiagese/gedcomimport/core/gedcom"
)

// Count són els comptadors d'un tipus d'entitat.
type Count struct {
	Parsed   int `json:"parsed" yaml:"parsed"`
	Inserted int `json:"inserted" yaml:"inserted"`
	Updated  int `json:"updated" yaml:"updated"`
	Skipped  int `json:"skipped" yaml:"skipped"`
}

// Imported retorna les files escrites (inserides o actualitzades).
func (c Count) Imported() int {
	return c.Inserted + c.Updated
}

func (c *Count) add(o Count) {
	c.Parsed += o.Parsed
	c.Inserted += o.Inserted
	c.Updated += o.Updated
	c.Skipped += o.Skipped
}

type Stats struct {
	Individuals  Count `json:"individuals" yaml:"individuals"`
	Families     Count `json:"families" yaml:"families"`
	Children     Count `json:"children" yaml:"children"`
	Events       Count `json:"events" yaml:"events"`
	Sources      Count `json:"sources" yaml:"sources"`
	Repositories Count `json:"repositories" yaml:"repositories"`
	Citations    Count `json:"citations" yaml:"citations"`
	Notes        Count `json:"notes" yaml:"notes"`
	Media        Count `json:"media" yaml:"media"`
}

func (s *Stats) add(o Stats) {
	s.Individuals.add(o.Individuals)
	s.Families.add(o.Families)
	s.Children.add(o.Children)
	s.Events.add(o.Events)
	s.Sources.add(o.Sources)
	s.Repositories.add(o.Repositories)
	s.Citations.add(o.Citations)
	s.Notes.add(o.Notes)
	s.Media.add(o.Media)
}

// parsedStats omple els comptadors Parsed a partir del document.
func parsedStats(doc *gedcom.Document) Stats {
	var s Stats
	s.Individuals.Parsed = len(doc.Individuals)
	s.Families.Parsed = len(doc.Families)
	s.Sources.Parsed = len(doc.Sources)
	s.Repositories.Parsed = len(doc.Repositories)
	s.Media.Parsed = len(doc.Media)
	s.Notes.Parsed = len(doc.Notes)
	s.Events.Parsed = doc.EventCount()
	for _, ind := range doc.Individuals {
		s.Citations.Parsed += countCitations(ind.Citations, ind.Events)
	}
	for _, fam := range doc.Families {
		s.Children.Parsed += len(fam.Children)
		s.Citations.Parsed += countCitations(fam.Citations, fam.Events)
	}
	for _, n := range doc.Notes {
		s.Citations.Parsed += countCitations(n.Citations, nil)
	}
	for tag, n := range doc.Dropped {
		var c *Count
		switch tag {
		case "INDI":
			c = &s.Individuals
		case "FAM":
			c = &s.Families
		case "SOUR":
			c = &s.Sources
		case "REPO":
			c = &s.Repositories
		case "OBJE":
			c = &s.Media
		case "NOTE":
			c = &s.Notes
		default:
			continue
		}
		c.Parsed += n
		c.Skipped += n
	}
	return s
}

// countCitations només compta les cites que apunten a una font.
func countCitations(cits []gedcom.Citation, events []gedcom.Event) int {
	n := 0
	for _, c := range cits {
		if c.SourceRef != "" {
			n++
		}
	}
	for _, ev := range events {
		n += countCitations(ev.Citations, nil)
	}
	return n
}

type Status string

const (
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
	StatusAborted   Status = "aborted"
)

// Result és el resum d'una importació.
type Result struct {
	RunID            string            `json:"run_id" yaml:"run_id"`
	Success          bool              `json:"success" yaml:"success"`
	Status           Status            `json:"status" yaml:"status"`
	Tree             string            `json:"tree" yaml:"tree"`
	File             string            `json:"file" yaml:"file"`
	Fingerprint      string            `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Options          Options           `json:"options" yaml:"-"`
	Header           gedcom.Header     `json:"header" yaml:"header"`
	Stats            Stats             `json:"stats" yaml:"stats"`
	Warnings         []gedcom.Warning  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	WarningsTotal    int               `json:"warnings_total" yaml:"warnings_total"`
	Errors           []string          `json:"errors,omitempty" yaml:"errors,omitempty"`
	CustomEventTypes map[string]string `json:"custom_event_types,omitempty" yaml:"custom_event_types,omitempty"`
	StartedAt        time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time         `json:"finished_at" yaml:"finished_at"`
}

func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SummaryJSON és el resum que es guarda a l'execució.
func (r *Result) SummaryJSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(b)
}

func (r *Result) fail(status Status, err error) {
	r.Success = false
	r.Status = status
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

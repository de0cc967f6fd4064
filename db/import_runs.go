package db

import "time"

// Estats d'una execució d'importació.
const (
	RunQueued     = "queued"
	RunParsing    = "parsing"
	RunResolving  = "resolving"
	RunPersisting = "persisting"
	RunDone       = "done"
	RunCancelled  = "cancelled"
	RunError      = "error"
)

// RunFinished indica si l'estat és final.
func RunFinished(status string) bool {
	switch status {
	case RunDone, RunCancelled, RunError:
		return true
	}
	return false
}

// ImportRun és una importació encuada o ja executada.
type ImportRun struct {
	ID          int64
	PublicID    string
	Tree        string
	FilePath    string
	Fingerprint string
	OptionsJSON string
	Status      string
	SummaryJSON string
	ErrorText   string
	CreatedAt   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	UpdatedAt   time.Time
}

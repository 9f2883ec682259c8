// Package state records conversion runs in SQLite: one row per run,
// one per attempted index entry, plus the duplicate-key warnings the
// run surfaced. The history backs the `iamconv runs` command.
package state

import "time"

// RunStatus is the lifecycle state of a conversion run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded conversion run.
type Run struct {
	ID          string
	IndexPath   string
	Output      string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	RowCount    int
}

// EntryResult is one index entry's outcome within a run.
type EntryResult struct {
	ID         string
	RunID      string
	Name       string
	Path       string
	RowCount   int
	DurationMS int64
	Error      string
}

// Store is the run-history persistence interface.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(indexPath, output string) (*Run, error)
	CompleteRun(id string, status RunStatus, rowCount int, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	SaveEntryResults(runID string, results []EntryResult) error
	GetEntryResults(runID string) ([]EntryResult, error)

	SaveWarnings(runID string, messages []string) error
	GetWarnings(runID string) ([]string, error)
}

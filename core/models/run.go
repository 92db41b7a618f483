package models

import "time"

type RunState string

const (
	StateStart     RunState = "start"
	StateGenerated RunState = "generated"
	StateValidated RunState = "validated"
	StateCorrected RunState = "corrected"
	StateExecuted  RunState = "executed"
	StateDone      RunState = "done"
	StateFailed    RunState = "failed"
)

func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// RunRecord is one pipeline run as persisted in history.
type RunRecord struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	State        RunState  `json:"state"`
	Flagged      int       `json:"flagged"`
	Unfixable    int       `json:"unfixable"`
	Corrections  int       `json:"corrections"`
	SourcePath   string    `json:"source_path"`
	ArtifactPath string    `json:"artifact_path"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

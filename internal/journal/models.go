package journal

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Stage outcomes as stored in stage_events.
const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID           string
	ConfigPath   string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       RunStatus
	ErrorMessage string
}

// Finished reports whether the run reached a terminal state.
func (r Run) Finished() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// StageEvent records what one stage did for one sample.
type StageEvent struct {
	RunID      string
	Sample     string
	Stage      string
	Ordinal    int
	Outcome    string
	OutputPath string
	LogPath    string
	ExitCode   int
	Duration   time.Duration
	RecordedAt time.Time
}

// Key identifies a stage of a sample across runs.
type Key struct {
	Sample string
	Stage  string
}

package domain

import "time"

// SensitiveMode selects what the autopilot does with articles that contain
// sensitive vocabulary: drop them, mask the wording, or leave them alone.
type SensitiveMode string

const (
	SensitiveOff  SensitiveMode = "off"
	SensitiveSkip SensitiveMode = "skip"
	SensitiveMask SensitiveMode = "mask"
)

// AutopilotSettings is the persisted, authoritative configuration of one
// user's autopilot. Enabled and LastRunAt are re-read every cycle; no
// in-process flag outlives them.
type AutopilotSettings struct {
	UserID        string        `db:"user_id"`
	Enabled       bool          `db:"enabled"`
	Source        string        `db:"source"`
	TemplateID    string        `db:"template_id"`
	SensitiveMode SensitiveMode `db:"sensitive_mode"`
	CheckInterval time.Duration `db:"-"`
	LastRunAt     *time.Time    `db:"last_run_at"`
	LastError     string        `db:"last_error"`
}

// RunStatus enumerates autopilot run outcomes.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// AutopilotRun is the append-only bookkeeping row for one loop iteration.
// Once CompletedAt is set the row is never mutated again.
type AutopilotRun struct {
	ID           string
	UserID       string
	Status       RunStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	NewsFound    int
	CardsCreated int
	Skipped      int
	Errors       int
	LastError    string
}

// RunResult is the aggregate outcome reported back to the trigger.
type RunResult struct {
	RunID        string `json:"runId"`
	Success      bool   `json:"success"`
	NewsFound    int    `json:"newsFound"`
	CardsCreated int    `json:"cardsCreated"`
	Skipped      int    `json:"skipped"`
	Errors       int    `json:"errors"`
}

// Package domain defines the malware scan state machine.
//
//	queued -> running -> clean | infected | error
//	error  -> queued            (heal, while attempts < max)
//	running -> queued           (heal, worker presumed dead)
//	any    -> skipped           (policy)
//	clean | infected | error | skipped -> queued (re-enqueue)
//
// A document is servable only when its job is clean or an unexpired quarantine override
// exists for it.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the state of a scan job. Documents mirror it in their scan_status column.
type Status string

const (
	// StatusUploading is only ever seen on documents whose bytes are still being written.
	StatusUploading Status = "uploading"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusClean     Status = "clean"
	StatusInfected  Status = "infected"
	StatusError     Status = "error"
	StatusSkipped   Status = "skipped"
)

// IsTerminal reports whether a job in this state may be re-enqueued.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusClean, StatusInfected, StatusError, StatusSkipped:
		return true
	}
	return false
}

// IsResult reports whether a worker may report this state.
func (s Status) IsResult() bool {
	switch s {
	case StatusClean, StatusInfected, StatusError:
		return true
	}
	return false
}

// TerminalStatuses lists the states Enqueue resets to queued.
var TerminalStatuses = []Status{StatusClean, StatusInfected, StatusError, StatusSkipped}

// Job is the scan state of one document.
type Job struct {
	DocID      uuid.UUID
	StorageKey string
	Status     Status
	Attempts   int
	LastError  string
	// NeedsReview is set once the job exhausted its attempts; heal never requeues it.
	NeedsReview bool
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// QuarantineOverride is a time-boxed exception that makes a non-clean document servable.
type QuarantineOverride struct {
	ID        uuid.UUID
	DocID     uuid.UUID
	Reason    string
	GrantedBy string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Active reports whether the override is still in force at now.
func (o *QuarantineOverride) Active(now time.Time) bool {
	return now.Before(o.ExpiresAt)
}

// HealInput bounds one heal pass. Zero values fall back to configured defaults.
type HealInput struct {
	RunningTimeout time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	Limit          int
}

// HealResult counts the jobs each heal rule moved.
type HealResult struct {
	// StaleRequeued counts running jobs past the timeout that went back to queued.
	StaleRequeued int `json:"stale_requeued"`
	// ErrorRequeued counts errored jobs past the retry delay that went back to queued.
	ErrorRequeued int `json:"error_requeued"`
	// MaxAttemptJobs counts jobs newly flagged for review in this pass.
	MaxAttemptJobs int `json:"max_attempt_jobs"`
}

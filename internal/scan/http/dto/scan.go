// Package dto provides data transfer objects for the scan queue HTTP API.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	scanDomain "github.com/allisson/docvault/internal/scan/domain"
	customValidation "github.com/allisson/docvault/internal/validation"
)

// ScanResultRequest is a scanner worker's verdict.
type ScanResultRequest struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// Validate checks if the request is valid.
func (r *ScanResultRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Result,
			validation.Required,
			customValidation.OneOf(
				string(scanDomain.StatusClean),
				string(scanDomain.StatusInfected),
				string(scanDomain.StatusError),
			),
		),
		validation.Field(&r.Error,
			validation.When(r.Result == string(scanDomain.StatusError), validation.Required, customValidation.NotBlank),
			validation.Length(0, 2000),
		),
	)
}

// SkipRequest marks a job as exempt from scanning.
type SkipRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the request is valid.
func (r *SkipRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank, validation.Length(1, 500)),
	)
}

// HealRequest is the scan-heal batch trigger. Zero fields use server defaults.
type HealRequest struct {
	RunningTimeoutMinutes int `json:"running_timeout_minutes"`
	MaxAttempts           int `json:"max_attempts"`
	RetryDelayMinutes     int `json:"retry_delay_minutes"`
	Limit                 int `json:"limit"`
}

// Validate checks if the request is valid.
func (r *HealRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RunningTimeoutMinutes, validation.Min(0), validation.Max(7*24*60)),
		validation.Field(&r.MaxAttempts, validation.Min(0), validation.Max(100)),
		validation.Field(&r.RetryDelayMinutes, validation.Min(0), validation.Max(7*24*60)),
		validation.Field(&r.Limit, validation.Min(0), validation.Max(10000)),
	)
}

// ToInput converts the request to a heal input.
func (r *HealRequest) ToInput() scanDomain.HealInput {
	return scanDomain.HealInput{
		RunningTimeout: time.Duration(r.RunningTimeoutMinutes) * time.Minute,
		MaxAttempts:    r.MaxAttempts,
		RetryDelay:     time.Duration(r.RetryDelayMinutes) * time.Minute,
		Limit:          r.Limit,
	}
}

// JobResponse represents a scan job.
type JobResponse struct {
	DocID       string     `json:"doc_id"`
	StorageKey  string     `json:"storage_key"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	NeedsReview bool       `json:"needs_review"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MapJobToResponse converts a job to a response.
func MapJobToResponse(job *scanDomain.Job) JobResponse {
	return JobResponse{
		DocID:       job.DocID.String(),
		StorageKey:  job.StorageKey,
		Status:      string(job.Status),
		Attempts:    job.Attempts,
		LastError:   job.LastError,
		NeedsReview: job.NeedsReview,
		StartedAt:   job.StartedAt,
		FinishedAt:  job.FinishedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

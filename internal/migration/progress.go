// Package migration drives bulk normalization of persona records with
// per-record failure isolation and pollable progress.
package migration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ErrNotFound is returned when a job id is unknown or its progress entry
// has expired.
var ErrNotFound = errors.New("migration job not found")

// RecordError is one per-record failure inside a batch. RecordID "system"
// marks an orchestration-level failure that took the whole job down.
type RecordError struct {
	RecordID string `json:"recordId"`
	Error    string `json:"error"`
}

// Progress is the pollable state of one batch job. It is updated after
// every record, so a poller observes continuous movement, not batch jumps.
type Progress struct {
	JobID   uuid.UUID `json:"jobId"`
	OwnerID uuid.UUID `json:"ownerId"`
	Status  JobStatus `json:"status"`

	TotalPersonas        int `json:"totalPersonas"`
	ProcessedPersonas    int `json:"processedPersonas"`
	SuccessfulMigrations int `json:"successfulMigrations"`
	FailedMigrations     int `json:"failedMigrations"`
	SkippedPersonas      int `json:"skippedPersonas"`

	// CurrentPersona names the record being processed right now.
	CurrentPersona string        `json:"currentPersona,omitempty"`
	Errors         []RecordError `json:"errors"`

	StartedAt   time.Time  `json:"startedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (p *Progress) active() bool {
	return p.Status == JobPending || p.Status == JobInProgress
}

// ProgressStore is the injected key-value store for job progress: created on
// submit, updated per record, retained until TTL expiry.
type ProgressStore interface {
	Create(ctx context.Context, p *Progress) error
	Update(ctx context.Context, p *Progress) error
	Get(ctx context.Context, jobID uuid.UUID) (*Progress, error)
	ListActive(ctx context.Context, ownerID uuid.UUID) ([]*Progress, error)
	Delete(ctx context.Context, jobID uuid.UUID) error
}

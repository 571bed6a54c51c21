package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Run status values.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run tracks a batch extraction over a set of sources.
type Run struct {
	ID          uuid.UUID       `json:"id"`
	Status      string          `json:"status"`
	Sources     json.RawMessage `json:"sources"`
	Report      json.RawMessage `json:"report,omitempty"`
	Error       *string         `json:"error,omitempty"`
	RequestedBy *string         `json:"requested_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

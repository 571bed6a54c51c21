package dto

import (
	"github.com/octobees/exhibitor-leads/internal/pipeline"
)

// RunRequest starts a batch over sources.
type RunRequest struct {
	Sources []pipeline.Source `json:"sources"`
}

// RunAccepted is returned when a run is queued.
type RunAccepted struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

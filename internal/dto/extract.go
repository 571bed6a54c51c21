package dto

import (
	"github.com/octobees/exhibitor-leads/internal/entity"
	"github.com/octobees/exhibitor-leads/internal/pipeline"
)

// ExtractRequest submits one exhibitor listing document.
type ExtractRequest struct {
	HTML        string `json:"html"`
	BaseURL     string `json:"base_url"`
	ContentType string `json:"content_type,omitempty"`
}

// ExtractResponse holds the exhibitor table of the document and its report.
type ExtractResponse struct {
	Exhibitors []entity.Exhibitor      `json:"exhibitors"`
	Report     pipeline.DocumentReport `json:"report"`
}

package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/octobees/exhibitor-leads/internal/document"
	"github.com/octobees/exhibitor-leads/internal/dto"
	"github.com/octobees/exhibitor-leads/internal/entity"
	"github.com/octobees/exhibitor-leads/internal/metrics"
	"github.com/octobees/exhibitor-leads/internal/pipeline"
)

// DocumentExtractor turns one markup document into exhibitor records.
type DocumentExtractor interface {
	ExtractHTML(raw []byte, contentType, baseURL string) ([]entity.Exhibitor, pipeline.DocumentReport)
}

// ExtractHandler serves stateless extraction over a submitted document.
type ExtractHandler struct {
	extractor DocumentExtractor
}

// NewExtractHandler constructs an ExtractHandler.
func NewExtractHandler(extractor DocumentExtractor) *ExtractHandler {
	return &ExtractHandler{extractor: extractor}
}

// Extract handles POST /extract requests.
func (h *ExtractHandler) Extract(c echo.Context) error {
	var req dto.ExtractRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.HTML) == "" {
		return Error(c, http.StatusBadRequest, "html is required")
	}
	if len(req.HTML) > document.MaxSize {
		return Error(c, http.StatusRequestEntityTooLarge, "html exceeds the document size limit")
	}

	exhibitors, report := h.extractor.ExtractHTML([]byte(req.HTML), req.ContentType, strings.TrimSpace(req.BaseURL))
	if report.Outcome == metrics.DocumentParseFailed {
		return ErrorWithDetails(c, http.StatusUnprocessableEntity, "document could not be parsed", report)
	}
	return Success(c, http.StatusOK, "document processed", dto.ExtractResponse{Exhibitors: exhibitors, Report: report})
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/octobees/exhibitor-leads/internal/dto"
	"github.com/octobees/exhibitor-leads/internal/enrich"
	"github.com/octobees/exhibitor-leads/internal/service"
)

// ContactEnricher gathers contacts for one exhibitor.
type ContactEnricher interface {
	Enrich(ctx context.Context, company, website string) enrich.Result
}

// EnrichHandler serves stateless contact enrichment.
type EnrichHandler struct {
	enricher ContactEnricher
}

// NewEnrichHandler constructs an EnrichHandler.
func NewEnrichHandler(enricher ContactEnricher) *EnrichHandler {
	return &EnrichHandler{enricher: enricher}
}

// Enrich handles POST /enrich requests.
func (h *EnrichHandler) Enrich(c echo.Context) error {
	var req dto.EnrichRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	req.CompanyName = strings.TrimSpace(req.CompanyName)
	if req.CompanyName == "" {
		return Error(c, http.StatusBadRequest, "company_name is required")
	}
	if website := strings.TrimSpace(req.Website); website != "" {
		normalized, err := service.NormalizeURL(website)
		if err != nil {
			return ErrorWithDetails(c, http.StatusBadRequest, "invalid website", map[string]string{"field": "website", "error": err.Error()})
		}
		req.Website = normalized
	}

	res := h.enricher.Enrich(c.Request().Context(), req.CompanyName, req.Website)
	return Success(c, http.StatusOK, "enrichment finished", res)
}

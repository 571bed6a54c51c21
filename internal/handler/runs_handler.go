package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/octobees/exhibitor-leads/internal/dto"
	"github.com/octobees/exhibitor-leads/internal/export"
	middlewarepkg "github.com/octobees/exhibitor-leads/internal/middleware"
	"github.com/octobees/exhibitor-leads/internal/repository"
	"github.com/octobees/exhibitor-leads/internal/service"
)

// RunsHandler exposes batch runs and their tables.
type RunsHandler struct {
	runs *service.RunService
}

// NewRunsHandler constructs a RunsHandler.
func NewRunsHandler(runs *service.RunService) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// Create handles POST /runs requests. The run executes in the background.
func (h *RunsHandler) Create(c echo.Context) error {
	var req dto.RunRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	run, err := h.runs.Start(c.Request().Context(), req.Sources, middlewarepkg.OperatorFromContext(c))
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return ErrorWithDetails(c, http.StatusBadRequest, "invalid sources", map[string]string{"field": verr.Field, "error": verr.Message})
		}
		return Error(c, http.StatusInternalServerError, "unable to start run")
	}

	c.Response().Header().Set(echo.HeaderLocation, "/runs/"+run.ID.String())
	return Success(c, http.StatusAccepted, "run queued", dto.RunAccepted{ID: run.ID.String(), Status: run.Status})
}

// Get handles GET /runs/:id requests.
func (h *RunsHandler) Get(c echo.Context) error {
	id, ok := h.runID(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "invalid run id")
	}
	run, err := h.runs.Get(c.Request().Context(), id)
	if err != nil {
		return h.lookupError(c, err)
	}
	return Success(c, http.StatusOK, "run retrieved", run)
}

// Exhibitors handles GET /runs/:id/exhibitors requests.
func (h *RunsHandler) Exhibitors(c echo.Context) error {
	id, ok := h.runID(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "invalid run id")
	}
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "format must be json, csv or ndjson")
	}
	rows, err := h.runs.Exhibitors(c.Request().Context(), id)
	if err != nil {
		return h.lookupError(c, err)
	}
	if format == export.FormatJSON {
		return Success(c, http.StatusOK, "exhibitors retrieved", rows)
	}
	return Attachment(c, tableFile("exhibitors", id, format), export.ContentType(format), func(w io.Writer) error {
		return export.WriteExhibitors(w, format, rows)
	})
}

// Contacts handles GET /runs/:id/contacts requests.
func (h *RunsHandler) Contacts(c echo.Context) error {
	id, ok := h.runID(c)
	if !ok {
		return Error(c, http.StatusBadRequest, "invalid run id")
	}
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "format must be json, csv or ndjson")
	}
	rows, err := h.runs.Contacts(c.Request().Context(), id)
	if err != nil {
		return h.lookupError(c, err)
	}
	if format == export.FormatJSON {
		return Success(c, http.StatusOK, "contacts retrieved", rows)
	}
	return Attachment(c, tableFile("contacts", id, format), export.ContentType(format), func(w io.Writer) error {
		return export.WriteContacts(w, format, rows)
	})
}

func (h *RunsHandler) runID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}

func (h *RunsHandler) lookupError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrRunNotFound) {
		return Error(c, http.StatusNotFound, "run not found")
	}
	return Error(c, http.StatusInternalServerError, "unable to load run")
}

func tableFile(table string, id uuid.UUID, format string) string {
	return table + "-" + id.String() + export.FileExtension(format)
}

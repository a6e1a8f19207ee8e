package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/personaforge/personaforge-backend/internal/migration"
	"github.com/personaforge/personaforge-backend/internal/services"
)

type MigrationHandler struct {
	migrations services.MigrationService
}

func NewMigrationHandler(migrations services.MigrationService) *MigrationHandler {
	return &MigrationHandler{migrations: migrations}
}

type submitMigrationRequest struct {
	PersonaIDs []uuid.UUID `json:"personaIds"`
	// All migrates the owner's entire corpus instead of a named id set.
	All bool `json:"all"`
}

// POST /api/migrations
func (h *MigrationHandler) Submit(c *gin.Context) {
	ownerID, err := ownerFrom(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_owner", err)
		return
	}
	var req submitMigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	var jobID uuid.UUID
	if req.All {
		jobID, err = h.migrations.SubmitAll(c.Request.Context(), ownerID)
	} else {
		if len(req.PersonaIDs) == 0 {
			RespondError(c, http.StatusBadRequest, "missing_persona_ids", fmt.Errorf("personaIds or all is required"))
			return
		}
		jobID, err = h.migrations.Submit(c.Request.Context(), ownerID, req.PersonaIDs)
	}
	if err != nil {
		RespondError(c, http.StatusBadRequest, "submit_failed", err)
		return
	}
	RespondAccepted(c, gin.H{"jobId": jobID})
}

// GET /api/migrations/:id
func (h *MigrationHandler) Get(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	progress, err := h.migrations.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, migration.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "job_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, gin.H{"progress": progress})
}

// GET /api/migrations
func (h *MigrationHandler) ListActive(c *gin.Context) {
	ownerID, err := ownerFrom(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_owner", err)
		return
	}
	jobs, err := h.migrations.ListActive(c.Request.Context(), ownerID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs})
}

// POST /api/migrations/:id/cancel
func (h *MigrationHandler) Cancel(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	h.migrations.Cancel(jobID)
	RespondOK(c, gin.H{"canceled": jobID})
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/personaforge/personaforge-backend/internal/record"
	"github.com/personaforge/personaforge-backend/internal/services"
	"github.com/personaforge/personaforge-backend/internal/validation"
)

// OwnerHeader carries the tenant id injected by the upstream gateway after
// authentication.
const OwnerHeader = "X-Owner-ID"

func ownerFrom(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetHeader(OwnerHeader)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s header", OwnerHeader)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s header: %w", OwnerHeader, err)
	}
	return id, nil
}

type PersonaHandler struct {
	personas services.PersonaService
}

func NewPersonaHandler(personas services.PersonaService) *PersonaHandler {
	return &PersonaHandler{personas: personas}
}

type validateRequest struct {
	TemplateID      string `json:"templateId"`
	TemplateVersion string `json:"templateVersion"`
	// Candidate is one record or an array of records, untouched generator
	// output.
	Candidate any `json:"candidate"`
	Attempt   int `json:"attempt"`
}

// POST /api/personas/validate
func (h *PersonaHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.Candidate == nil {
		RespondError(c, http.StatusBadRequest, "missing_candidate", fmt.Errorf("candidate is required"))
		return
	}
	run, err := h.personas.Validate(c.Request.Context(), req.TemplateID, req.TemplateVersion, req.Candidate, &validation.Context{
		TemplateID: req.TemplateID,
		Attempt:    req.Attempt,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, "template_not_found", err)
		return
	}
	RespondOK(c, gin.H{"result": run})
}

// POST /api/personas
func (h *PersonaHandler) Create(c *gin.Context) {
	ownerID, err := ownerFrom(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_owner", err)
		return
	}
	var candidate record.Bag
	if err := c.ShouldBindJSON(&candidate); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	persona, err := h.personas.Create(c.Request.Context(), ownerID, candidate)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "create_failed", err)
		return
	}
	RespondCreated(c, gin.H{"persona": persona})
}

// GET /api/personas
func (h *PersonaHandler) List(c *gin.Context) {
	ownerID, err := ownerFrom(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_owner", err)
		return
	}
	personas, err := h.personas.List(c.Request.Context(), ownerID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	RespondOK(c, gin.H{"personas": personas})
}

// GET /api/personas/:id
func (h *PersonaHandler) Get(c *gin.Context) {
	ownerID, err := ownerFrom(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_owner", err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_persona_id", err)
		return
	}
	persona, err := h.personas.Get(c.Request.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, http.StatusNotFound, "persona_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, gin.H{"persona": persona})
}

// GET /api/personas/:id/comparison
func (h *PersonaHandler) Compare(c *gin.Context) {
	ownerID, err := ownerFrom(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_owner", err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_persona_id", err)
		return
	}
	topN, _ := strconv.Atoi(c.DefaultQuery("top", "5"))
	comparison, err := h.personas.Compare(c.Request.Context(), ownerID, id, topN)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, http.StatusNotFound, "persona_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "comparison_failed", err)
		return
	}
	RespondOK(c, gin.H{"comparison": comparison})
}

// DELETE /api/personas/:id
func (h *PersonaHandler) Delete(c *gin.Context) {
	ownerID, err := ownerFrom(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "missing_owner", err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_persona_id", err)
		return
	}
	if err := h.personas.Delete(c.Request.Context(), ownerID, id); err != nil {
		RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}

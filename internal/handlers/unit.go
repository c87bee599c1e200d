package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/services/structure"
)

type UnitHandler struct {
	log              *logger.Logger
	structureService structure.Service
}

func NewUnitHandler(log *logger.Logger, structureService structure.Service) *UnitHandler {
	return &UnitHandler{
		log:              log.With("handler", "UnitHandler"),
		structureService: structureService,
	}
}

type createUnitRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

func (h *UnitHandler) Create(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req createUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	unit, err := h.structureService.AddUnit(c.Request.Context(), courseID, req.Name, req.Description, req.Order)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"unit": unit})
}

func (h *UnitHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	unit, err := h.structureService.GetUnit(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"unit": unit})
}

func (h *UnitHandler) ListByCourse(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	units, err := h.structureService.ListUnits(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"units": units})
}

type updateUnitRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
}

func (h *UnitHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	unit, err := h.structureService.UpdateUnit(c.Request.Context(), id, req.Name, req.Description, req.Order)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"unit": unit})
}

func (h *UnitHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.structureService.DeleteUnit(c.Request.Context(), id); err != nil {
		h.log.Error("Delete failed", "error", err, "unit_id", id)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

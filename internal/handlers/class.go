package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/services/structure"
)

type ClassHandler struct {
	log              *logger.Logger
	structureService structure.Service
}

func NewClassHandler(log *logger.Logger, structureService structure.Service) *ClassHandler {
	return &ClassHandler{
		log:              log.With("handler", "ClassHandler"),
		structureService: structureService,
	}
}

type createClassRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *ClassHandler) Create(c *gin.Context) {
	unitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req createClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	class, err := h.structureService.AddClass(c.Request.Context(), unitID, req.Name, req.Description)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"class": class})
}

func (h *ClassHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	class, err := h.structureService.GetClass(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"class": class})
}

type updateClassRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *ClassHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	class, err := h.structureService.UpdateClass(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"class": class})
}

func (h *ClassHandler) Publish(c *gin.Context) {
	h.setPublished(c, true)
}

func (h *ClassHandler) Unpublish(c *gin.Context) {
	h.setPublished(c, false)
}

func (h *ClassHandler) setPublished(c *gin.Context, published bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	class, err := h.structureService.SetClassPublished(c.Request.Context(), id, published)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"class": class})
}

type classMaterialRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *ClassHandler) AddMaterial(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req classMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	class, err := h.structureService.AddClassMaterial(c.Request.Context(), id, req.URL)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"class": class})
}

func (h *ClassHandler) RemoveMaterial(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req classMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	class, err := h.structureService.RemoveClassMaterial(c.Request.Context(), id, req.URL)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"class": class})
}

func (h *ClassHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.structureService.DeleteClass(c.Request.Context(), id); err != nil {
		h.log.Error("Delete failed", "error", err, "class_id", id)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

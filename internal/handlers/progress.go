package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/middleware"
	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/services/progresssync"
)

type ProgressHandler struct {
	log    *logger.Logger
	engine progresssync.Engine
}

func NewProgressHandler(log *logger.Logger, engine progresssync.Engine) *ProgressHandler {
	return &ProgressHandler{
		log:    log.With("handler", "ProgressHandler"),
		engine: engine,
	}
}

func (h *ProgressHandler) currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return userID, true
}

// Sync is the read path: progress is repaired against live structure before
// it is returned, never served from the stored snapshot.
func (h *ProgressHandler) Sync(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(c, "courseId")
	if !ok {
		return
	}
	cp, err := h.engine.Sync(c.Request.Context(), userID, courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": cp})
}

func (h *ProgressHandler) SyncAll(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	u, err := h.engine.SyncAll(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("SyncAll failed", "error", err, "user_id", userID)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"coursesProgress": u.CoursesProgress})
}

type markItemRequest struct {
	ItemName string `json:"itemName"`
}

func (h *ProgressHandler) MarkItemCompleted(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(c, "courseId")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}
	var req markItemRequest
	_ = c.ShouldBindJSON(&req)

	cp, err := h.engine.MarkItemCompleted(c.Request.Context(), userID, courseID, itemID, req.ItemName)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": cp})
}

func (h *ProgressHandler) Reset(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(c, "courseId")
	if !ok {
		return
	}
	cp, err := h.engine.ResetProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": cp})
}

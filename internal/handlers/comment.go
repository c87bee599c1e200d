package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/middleware"
	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/services/comments"
)

type CommentHandler struct {
	log            *logger.Logger
	commentService comments.Service
}

func NewCommentHandler(log *logger.Logger, commentService comments.Service) *CommentHandler {
	return &CommentHandler{
		log:            log.With("handler", "CommentHandler"),
		commentService: commentService,
	}
}

func limitQuery(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

type createCommentRequest struct {
	CourseID uuid.UUID `json:"course_id" binding:"required"`
	Title    string    `json:"title"`
	Content  string    `json:"content" binding:"required"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	comment, err := h.commentService.Create(c.Request.Context(), userID, req.CourseID, req.Title, req.Content)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"comment": comment})
}

func (h *CommentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	comment, err := h.commentService.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comment": comment})
}

func (h *CommentHandler) List(c *gin.Context) {
	all, err := h.commentService.List(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comments": all})
}

func (h *CommentHandler) ListByCourse(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	all, err := h.commentService.ListByCourse(c.Request.Context(), courseID, limitQuery(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comments": all})
}

func (h *CommentHandler) TopByCourse(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	all, err := h.commentService.TopByCourse(c.Request.Context(), courseID, limitQuery(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comments": all})
}

type updateCommentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
}

func (h *CommentHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	comment, err := h.commentService.Update(c.Request.Context(), id, req.Title, req.Content)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comment": comment})
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.commentService.Delete(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

type reactRequest struct {
	Kind domain.ReactionKind `json:"kind" binding:"required"`
}

func (h *CommentHandler) React(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if !req.Kind.Valid() {
		RespondError(c, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	comment, err := h.commentService.React(c.Request.Context(), userID, id, req.Kind)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"comment": comment})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/middleware"
	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/services/rating"
)

type RatingHandler struct {
	log           *logger.Logger
	ratingService rating.Service
}

func NewRatingHandler(log *logger.Logger, ratingService rating.Service) *RatingHandler {
	return &RatingHandler{
		log:           log.With("handler", "RatingHandler"),
		ratingService: ratingService,
	}
}

func (h *RatingHandler) currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return userID, true
}

type rateRequest struct {
	Value int `json:"rating" binding:"required,min=1,max=5"`
}

func (h *RatingHandler) Rate(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(c, "courseId")
	if !ok {
		return
	}
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	stats, err := h.ratingService.Rate(c.Request.Context(), userID, courseID, req.Value)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"stats": stats})
}

func (h *RatingHandler) Update(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(c, "courseId")
	if !ok {
		return
	}
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	stats, err := h.ratingService.UpdateRating(c.Request.Context(), userID, courseID, req.Value)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

func (h *RatingHandler) Remove(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(c, "courseId")
	if !ok {
		return
	}
	stats, err := h.ratingService.RemoveRating(c.Request.Context(), userID, courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

func (h *RatingHandler) GetMine(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(c, "courseId")
	if !ok {
		return
	}
	edge, err := h.ratingService.GetRating(c.Request.Context(), userID, courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"rating": edge})
}

func (h *RatingHandler) Stats(c *gin.Context) {
	courseID, ok := parseIDParam(c, "courseId")
	if !ok {
		return
	}
	stats, err := h.ratingService.GetCourseStats(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

func (h *RatingHandler) List(c *gin.Context) {
	courseID, ok := parseIDParam(c, "courseId")
	if !ok {
		return
	}
	edges, err := h.ratingService.ListCourseRatings(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"ratings": edges})
}

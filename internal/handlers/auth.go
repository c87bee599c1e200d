package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studylane/studylane-backend/internal/platform/apierr"
	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/services/auth"
	"github.com/studylane/studylane-backend/internal/services/users"
)

type AuthHandler struct {
	log         *logger.Logger
	userService users.Service
	authService auth.Service
}

func NewAuthHandler(log *logger.Logger, userService users.Service, authService auth.Service) *AuthHandler {
	return &AuthHandler{
		log:         log.With("handler", "AuthHandler"),
		userService: userService,
		authService: authService,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	u, err := h.userService.Register(c.Request.Context(), req.Email, req.Username, req.Password, req.Role)
	if err != nil {
		if apierr.IsConflict(err) {
			RespondServiceError(c, err)
			return
		}
		h.log.Error("Register failed", "error", err, "email", req.Email)
		RespondServiceError(c, err)
		return
	}
	token, err := h.authService.IssueToken(u.ID, u.Role)
	if err != nil {
		h.log.Error("token issue failed", "error", err, "user_id", u.ID)
		RespondError(c, http.StatusInternalServerError, "token_issue_failed", err)
		return
	}
	RespondCreated(c, gin.H{"user": u, "token": token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	u, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if apierr.IsNotFound(err) {
			RespondError(c, http.StatusUnauthorized, "invalid_credentials", err)
			return
		}
		h.log.Error("Login failed", "error", err)
		RespondServiceError(c, err)
		return
	}
	token, err := h.authService.IssueToken(u.ID, u.Role)
	if err != nil {
		h.log.Error("token issue failed", "error", err, "user_id", u.ID)
		RespondError(c, http.StatusInternalServerError, "token_issue_failed", err)
		return
	}
	RespondOK(c, gin.H{"user": u.Sanitized(), "token": token})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studylane/studylane-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Store   string `json:"store,omitempty"`
	Step    string `json:"step,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps a taxonomy error to its HTTP status. Cascade
// failures carry the failed store and step so the caller knows what to rerun.
func RespondServiceError(c *gin.Context, err error) {
	status := apierr.Status(err)
	out := APIError{
		Message: err.Error(),
		Code:    apierr.ErrorCode(err),
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		out.Store = ae.Store
		out.Step = ae.Step
	}
	c.JSON(status, ErrorEnvelope{Error: out})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

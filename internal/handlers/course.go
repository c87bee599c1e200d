package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/middleware"
	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/services/cascade"
	"github.com/studylane/studylane-backend/internal/services/structure"
)

type CourseHandler struct {
	log              *logger.Logger
	structureService structure.Service
	cascades         cascade.Coordinator
}

func NewCourseHandler(log *logger.Logger, structureService structure.Service, cascades cascade.Coordinator) *CourseHandler {
	return &CourseHandler{
		log:              log.With("handler", "CourseHandler"),
		structureService: structureService,
		cascades:         cascades,
	}
}

type createCourseRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *CourseHandler) Create(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.structureService.CreateCourse(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.log.Error("Create failed", "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"course": course})
}

func (h *CourseHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	course, err := h.structureService.GetCourse(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.structureService.ListCourses(c.Request.Context())
	if err != nil {
		h.log.Error("List failed", "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

type updateCourseRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *CourseHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.structureService.UpdateCourse(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"course": course})
}

// Delete runs the course cascade: learner records, graph subgraph, then the
// structure rows.
func (h *CourseHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.cascades.DeleteCourse(c.Request.Context(), id); err != nil {
		h.log.Error("Delete failed", "error", err, "course_id", id)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := h.structureService.Enroll(c.Request.Context(), courseID, userID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"enrolled": true})
}

func (h *CourseHandler) Unenroll(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := h.structureService.Unenroll(c.Request.Context(), courseID, userID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"enrolled": false})
}

type assignInstructorRequest struct {
	InstructorID uuid.UUID `json:"instructor_id" binding:"required"`
}

func (h *CourseHandler) AssignInstructor(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req assignInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.structureService.AssignInstructor(c.Request.Context(), courseID, req.InstructorID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"assigned": true})
}

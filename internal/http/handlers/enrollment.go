package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tutorbridge-backend/internal/http/response"
	"github.com/yungbote/tutorbridge-backend/internal/services"
)

type EnrollmentHandler struct {
	enrollments services.EnrollmentService
}

func NewEnrollmentHandler(enrollments services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// POST /api/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.enrollments.Enroll(c.Request.Context(), req.Code)
	if err != nil {
		response.RespondServiceError(c, "enroll_failed", err)
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/enrollments
func (h *EnrollmentHandler) ListCourses(c *gin.Context) {
	courses, err := h.enrollments.ListCourses(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, "list_enrollments_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /api/enrollments/:courseId
func (h *EnrollmentHandler) GetCourse(c *gin.Context) {
	id, ok := uuidParam(c, "courseId", "invalid_course_id")
	if !ok {
		return
	}
	details, err := h.enrollments.GetCourseDetails(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "load_course_failed", err)
		return
	}
	response.RespondOK(c, details)
}

// DELETE /api/enrollments/:courseId
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	id, ok := uuidParam(c, "courseId", "invalid_course_id")
	if !ok {
		return
	}
	if err := h.enrollments.Drop(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, "drop_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// PATCH /api/enrollments/:courseId/progress
func (h *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	id, ok := uuidParam(c, "courseId", "invalid_course_id")
	if !ok {
		return
	}
	var req struct {
		Progress *int `json:"progress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Progress == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_progress", errMissingProgress)
		return
	}
	if err := h.enrollments.UpdateProgress(c.Request.Context(), id, *req.Progress); err != nil {
		response.RespondServiceError(c, "update_progress_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "progress": *req.Progress})
}

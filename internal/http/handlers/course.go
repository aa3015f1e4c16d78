package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tutorbridge-backend/internal/http/response"
	"github.com/yungbote/tutorbridge-backend/internal/services"
)

const maxImportBytes = 1 << 20

type CourseHandler struct {
	courses services.CourseService
}

func NewCourseHandler(courses services.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// POST /api/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CourseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.courses.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, "create_course_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

// GET /api/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courses.ListTeacherCourses(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, "list_courses_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// POST /api/courses/import accepts the outline as JSON or YAML.
func (h *CourseHandler) ImportCourse(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(body) > maxImportBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "import_too_large", errImportTooLarge)
		return
	}
	res, err := h.courses.ImportCourse(c.Request.Context(), body)
	if err != nil {
		response.RespondServiceError(c, "import_failed", err)
		return
	}
	response.RespondCreated(c, res)
}

// GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	details, err := h.courses.GetCourseDetails(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "load_course_failed", err)
		return
	}
	response.RespondOK(c, details)
}

// PATCH /api/courses/:id
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	var req services.CourseUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	course, err := h.courses.UpdateCourse(c.Request.Context(), id, req)
	if err != nil {
		response.RespondServiceError(c, "update_course_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// DELETE /api/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	if err := h.courses.DeleteCourse(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, "delete_course_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// PUT /api/courses/:id/persona
func (h *CourseHandler) UpsertPersona(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	var req services.PersonaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	persona, err := h.courses.UpsertPersona(c.Request.Context(), id, req)
	if err != nil {
		response.RespondServiceError(c, "save_persona_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"persona": persona})
}

// POST /api/courses/:id/topics
func (h *CourseHandler) CreateTopic(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	var req services.TopicInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	topic, err := h.courses.CreateTopic(c.Request.Context(), id, req)
	if err != nil {
		response.RespondServiceError(c, "create_topic_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"topic": topic})
}

// GET /api/courses/:id/topics
func (h *CourseHandler) ListTopics(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	topics, err := h.courses.ListTopics(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, "list_topics_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"topics": topics})
}

// PATCH /api/topics/:id
func (h *CourseHandler) UpdateTopic(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_topic_id")
	if !ok {
		return
	}
	var req services.TopicUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	topic, err := h.courses.UpdateTopic(c.Request.Context(), id, req)
	if err != nil {
		response.RespondServiceError(c, "update_topic_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"topic": topic})
}

// DELETE /api/topics/:id
func (h *CourseHandler) DeleteTopic(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_topic_id")
	if !ok {
		return
	}
	if err := h.courses.DeleteTopic(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, "delete_topic_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/catalog?q=&limit=
func (h *CourseHandler) SearchCatalog(c *gin.Context) {
	courses, err := h.courses.SearchCatalog(c.Request.Context(), c.Query("q"), intQuery(c, "limit", 20))
	if err != nil {
		response.RespondServiceError(c, "catalog_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/tutorbridge-backend/internal/http/response"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
	"github.com/yungbote/tutorbridge-backend/internal/services"
)

type TutorHandler struct {
	log   *logger.Logger
	tutor services.TutorService
}

func NewTutorHandler(log *logger.Logger, tutor services.TutorService) *TutorHandler {
	return &TutorHandler{log: log.With("handler", "TutorHandler"), tutor: tutor}
}

// POST /api/courses/:id/chat
func (h *TutorHandler) SendMessage(c *gin.Context) {
	courseID, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reply, err := h.tutor.SendMessage(c.Request.Context(), courseID, req.Message)
	if err != nil {
		h.log.Warn("tutor turn failed", "course_id", courseID, "error", err)
		response.RespondServiceError(c, "tutor_failed", err)
		return
	}
	response.RespondOK(c, reply)
}

// POST /api/courses/:id/chat/init
func (h *TutorHandler) StartSession(c *gin.Context) {
	courseID, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	reply, err := h.tutor.StartSession(c.Request.Context(), courseID)
	if err != nil {
		h.log.Warn("tutor session init failed", "course_id", courseID, "error", err)
		response.RespondServiceError(c, "tutor_failed", err)
		return
	}
	response.RespondOK(c, reply)
}

// GET /api/courses/:id/chat?limit=
func (h *TutorHandler) GetHistory(c *gin.Context) {
	courseID, ok := uuidParam(c, "id", "invalid_course_id")
	if !ok {
		return
	}
	msgs, err := h.tutor.GetHistory(c.Request.Context(), courseID, intQuery(c, "limit", 0))
	if err != nil {
		response.RespondServiceError(c, "load_history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// GET /api/topics/:id/summary
func (h *TutorHandler) GetLatestSummary(c *gin.Context) {
	topicID, ok := uuidParam(c, "id", "invalid_topic_id")
	if !ok {
		return
	}
	sum, err := h.tutor.GetLatestSummary(c.Request.Context(), topicID)
	if err != nil {
		response.RespondServiceError(c, "load_summary_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"summary": sum})
}

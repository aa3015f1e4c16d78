package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	httpH "github.com/yungbote/tutorbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tutorbridge-backend/internal/http/middleware"
	"github.com/yungbote/tutorbridge-backend/internal/observability"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	TracingEnabled bool
	ServiceName    string

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	RealtimeHandler *httpH.RealtimeHandler
	JobHandler      *httpH.JobHandler

	CourseHandler     *httpH.CourseHandler
	EnrollmentHandler *httpH.EnrollmentHandler
	TutorHandler      *httpH.TutorHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "tutorbridge"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.AuthHandler != nil {
			protected.POST("/refresh", cfg.AuthHandler.Refresh)
			protected.POST("/logout", cfg.AuthHandler.Logout)
			protected.GET("/me", cfg.AuthHandler.GetMe)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		if cfg.JobHandler != nil {
			protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	teacher := protected.Group("/", httpMW.RequireRole(types.RoleTeacher))
	if h := cfg.CourseHandler; h != nil {
		teacher.POST("/courses", h.CreateCourse)
		teacher.GET("/courses", h.ListCourses)
		teacher.POST("/courses/import", h.ImportCourse)
		teacher.GET("/courses/:id", h.GetCourse)
		teacher.PATCH("/courses/:id", h.UpdateCourse)
		teacher.DELETE("/courses/:id", h.DeleteCourse)
		teacher.PUT("/courses/:id/persona", h.UpsertPersona)
		teacher.POST("/courses/:id/topics", h.CreateTopic)
		teacher.GET("/courses/:id/topics", h.ListTopics)
		teacher.PATCH("/topics/:id", h.UpdateTopic)
		teacher.DELETE("/topics/:id", h.DeleteTopic)
		teacher.GET("/catalog", h.SearchCatalog)
	}

	student := protected.Group("/", httpMW.RequireRole(types.RoleStudent))
	if h := cfg.EnrollmentHandler; h != nil {
		student.POST("/enrollments", h.Enroll)
		student.GET("/enrollments", h.ListCourses)
		student.GET("/enrollments/:courseId", h.GetCourse)
		student.DELETE("/enrollments/:courseId", h.Drop)
		student.PATCH("/enrollments/:courseId/progress", h.UpdateProgress)
	}
	if h := cfg.TutorHandler; h != nil {
		student.POST("/courses/:id/chat", h.SendMessage)
		student.POST("/courses/:id/chat/init", h.StartSession)
		student.GET("/courses/:id/chat", h.GetHistory)
		student.GET("/topics/:id/summary", h.GetLatestSummary)
	}

	return r
}

package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/http"
	httpH "github.com/yungbote/tutorbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tutorbridge-backend/internal/http/middleware"
	"github.com/yungbote/tutorbridge-backend/internal/observability"
	"github.com/yungbote/tutorbridge-backend/internal/platform/envutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
	"github.com/yungbote/tutorbridge-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Auth       *httpH.AuthHandler
	Realtime   *httpH.RealtimeHandler
	Job        *httpH.JobHandler
	Course     *httpH.CourseHandler
	Enrollment *httpH.EnrollmentHandler
	Tutor      *httpH.TutorHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Auth:       httpH.NewAuthHandler(services.Auth),
		Realtime:   httpH.NewRealtimeHandler(log, sseHub),
		Job:        httpH.NewJobHandler(services.JobService),
		Course:     httpH.NewCourseHandler(services.Course),
		Enrollment: httpH.NewEnrollmentHandler(services.Enrollment),
		Tutor:      httpH.NewTutorHandler(log, services.Tutor),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		TracingEnabled:    envutil.Bool("OTEL_ENABLED", false),
		ServiceName:       envutil.String("OTEL_SERVICE_NAME", "tutorbridge"),
		HealthHandler:     handlers.Health,
		AuthHandler:       handlers.Auth,
		AuthMiddleware:    middleware.Auth,
		RealtimeHandler:   handlers.Realtime,
		JobHandler:        handlers.Job,
		CourseHandler:     handlers.Course,
		EnrollmentHandler: handlers.Enrollment,
		TutorHandler:      handlers.Tutor,
	})
}

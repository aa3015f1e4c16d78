package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/jobs/notary"
	jobruntime "github.com/yungbote/tutorbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/tutorbridge-backend/internal/jobs/sweeper"
	"github.com/yungbote/tutorbridge-backend/internal/jobs/worker"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
	"github.com/yungbote/tutorbridge-backend/internal/platform/redisx"
	"github.com/yungbote/tutorbridge-backend/internal/realtime"
	"github.com/yungbote/tutorbridge-backend/internal/services"
	"github.com/yungbote/tutorbridge-backend/internal/temporalx/temporalworker"
	"github.com/yungbote/tutorbridge-backend/internal/tutoring"
)

type Services struct {
	Auth       services.AuthService
	Course     services.CourseService
	Enrollment services.EnrollmentService
	Tutor      services.TutorService
	JobService services.JobService
	Notifier   services.Notifier

	Orchestrator *tutoring.Orchestrator
	Notary       *tutoring.Notary
	JobRegistry  *jobruntime.Registry

	// Exactly one of JobWorker and TemporalWorker is set when RUN_WORKER is on.
	JobWorker      *worker.Worker
	TemporalWorker *temporalworker.Runner
	Sweeper        *sweeper.Sweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, hub *realtime.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if clients.SSEBus != nil {
		emitter = &services.BusEmitter{Bus: clients.SSEBus, Log: log}
	}
	notifier := services.NewNotifier(emitter)

	locker := redisx.NewLocalLocker()
	claimer := redisx.NewLocalClaimer()
	if clients.Redis != nil {
		locker = redisx.NewLocker(clients.Redis, "tutorbridge:turn:", cfg.TurnLockTTL)
		claimer = redisx.NewClaimer(clients.Redis, "tutorbridge:claim:")
	}

	jobs := services.NewJobService(db, log, repos.JobRun, notifier, claimer, cfg.NotaryDedupeTTL, clients.Temporal, cfg.Temporal.TaskQueue)
	ports := services.NewTutorPorts(db, repos.Course, repos.Topic, repos.Persona, repos.Syllabus, repos.ChatSession, repos.ChatMessage, repos.TopicSummary, jobs)

	orch := tutoring.NewOrchestrator(log, tutoring.OrchestratorDeps{
		Identity:    ports.Identity,
		Syllabi:     ports.Syllabi,
		Personas:    ports.Personas,
		Transcripts: ports.Transcripts,
		LLM:         clients.LLM,
		Notary:      ports.Notary,
		Locker:      locker,
	}, tutoring.OrchestratorConfig{TurnTimeout: cfg.TurnTimeout, LockWait: cfg.TurnLockWait, HistoryLimit: cfg.TurnHistory})

	notaryAgent := tutoring.NewNotary(log, tutoring.NotaryDeps{
		Transcripts: ports.Transcripts,
		Summaries:   ports.Summaries,
		LLM:         clients.LLM,
	}, cfg.NotaryTimeout)

	registry := jobruntime.NewRegistry()
	if err := registry.Register(notary.New(log, notaryAgent, repos.TopicSummary, notifier)); err != nil {
		return Services{}, fmt.Errorf("register notary handler: %w", err)
	}

	out := Services{
		Auth:         services.NewAuthService(db, log, repos.User, repos.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Course:       services.NewCourseService(db, log, repos.Course, repos.Topic, repos.Persona, repos.Enrollment, repos.Syllabus, repos.ChatSession, repos.ChatMessage),
		Enrollment:   services.NewEnrollmentService(db, log, repos.User, repos.Course, repos.Topic, repos.Enrollment, repos.Syllabus, repos.ChatSession, repos.ChatMessage),
		Tutor:        services.NewTutorService(db, log, orch, repos.Syllabus, repos.ChatSession, repos.ChatMessage, repos.TopicSummary, notifier),
		JobService:   jobs,
		Notifier:     notifier,
		Orchestrator: orch,
		Notary:       notaryAgent,
		JobRegistry:  registry,
		Sweeper:      sweeper.New(db, log, repos.UserToken, repos.JobRun, cfg.Sweeper),
	}

	if !cfg.RunWorker {
		return out, nil
	}
	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, cfg.Temporal, clients.Temporal, db, repos.JobRun, registry, notifier)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalWorker = runner
	} else {
		out.JobWorker = worker.NewWorker(db, log, repos.JobRun, registry, notifier)
	}
	return out, nil
}

package tutoring

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

// TurnState names the steps of one Teacher turn.
type TurnState string

const (
	StateAuthenticating TurnState = "AUTHENTICATING"
	StateLoadingContext TurnState = "LOADING_CONTEXT"
	StatePrompting      TurnState = "PROMPTING"
	StateSplitting      TurnState = "SPLITTING"
	StateValidating     TurnState = "VALIDATING"
	StatePersisting     TurnState = "PERSISTING"
	StateResponding     TurnState = "RESPONDING"
	StateFailed         TurnState = "FAILED"
)

const (
	defaultTurnTimeout  = 90 * time.Second
	defaultLockWait     = 30 * time.Second
	defaultHistoryLimit = 40
)

// TurnResult is what a caller gets back from one Teacher turn.
type TurnResult struct {
	Text string
	// Update is the state update that was applied, fallback included.
	Update         AIStateUpdate
	UsedFallback   bool
	SessionStarted bool
	// Syllabus is the student's plan with Update applied.
	Syllabus Syllabus
	// NotaryTopics lists the topics handed to the Notary, if any.
	NotaryTopics []string
}

type OrchestratorDeps struct {
	Identity    IdentityResolver
	Syllabi     SyllabusStore
	Personas    PersonaSource
	Transcripts TranscriptStore
	LLM         Completer
	Notary      NotaryQueue
	Locker      TurnLocker
}

type OrchestratorConfig struct {
	TurnTimeout time.Duration
	LockWait    time.Duration
	// HistoryLimit caps how many prior course messages reach the prompt.
	HistoryLimit int
}

// Orchestrator runs Teacher turns.
type Orchestrator struct {
	log    *logger.Logger
	deps   OrchestratorDeps
	cfg    OrchestratorConfig
	tracer trace.Tracer

	bg sync.WaitGroup
}

func NewOrchestrator(baseLog *logger.Logger, deps OrchestratorDeps, cfg OrchestratorConfig) *Orchestrator {
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaultLockWait
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Orchestrator{
		log:    baseLog.With("component", "TeacherOrchestrator"),
		deps:   deps,
		cfg:    cfg,
		tracer: otel.Tracer("tutorbridge/tutoring"),
	}
}

// HandleStudentMessage runs one turn for a student message. The first message
// of a course is sent to the model as the session-start sentinel while the
// real text is what gets recorded.
func (o *Orchestrator) HandleStudentMessage(ctx context.Context, courseID, message string) (*TurnResult, error) {
	return o.runTurn(ctx, courseID, message, false)
}

// InitializeSession runs one turn with the session-start sentinel as input.
func (o *Orchestrator) InitializeSession(ctx context.Context, courseID string) (*TurnResult, error) {
	return o.runTurn(ctx, courseID, SessionInitSentinel, true)
}

// Wait blocks until every Notary handoff started by this orchestrator returned.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

type turnContext struct {
	identity   Identity
	syllabus   Syllabus
	persona    PersonaConfig
	history    []Message
	hasHistory bool
}

func (o *Orchestrator) runTurn(ctx context.Context, courseID, input string, explicitInit bool) (res *TurnResult, err error) {
	ctx, span := o.tracer.Start(ctx, "tutoring.turn", trace.WithAttributes(
		attribute.String("course_id", courseID),
		attribute.Bool("session_init", explicitInit),
	))
	defer span.End()

	log := o.log.With("course_id", courseID)
	state := StateAuthenticating
	enter := func(s TurnState) {
		state = s
		span.AddEvent(string(s))
		log.Debug("turn state", "state", string(s))
	}
	defer func() {
		if err != nil {
			span.AddEvent(string(StateFailed))
			span.RecordError(err)
			span.SetStatus(codes.Error, string(KindOf(err)))
			log.Warn("turn failed", "state", string(state), "kind", string(KindOf(err)), "error", err)
		}
	}()

	// AUTHENTICATING
	enter(StateAuthenticating)
	ident, ok, ierr := o.deps.Identity.ResolveCallerIdentity(ctx)
	if ierr != nil || !ok || strings.TrimSpace(ident.StudentID) == "" {
		return nil, newError(KindAuthentication, "tutoring.authenticate", "no resolvable identity", ierr)
	}
	log = log.With("student_id", ident.StudentID)

	release := o.lock(ctx, log, ident.StudentID, courseID)
	defer release()

	// LOADING_CONTEXT
	enter(StateLoadingContext)
	tc, err := o.loadContext(ctx, log, ident, courseID, !explicitInit)
	if err != nil {
		return nil, err
	}

	userInput := input
	sessionStarted := explicitInit
	if !explicitInit && !tc.hasHistory {
		userInput = SessionInitSentinel
		sessionStarted = true
	}
	topicAtTurn := tc.syllabus.CurrentTopicID()

	// PROMPTING
	enter(StatePrompting)
	raw, err := o.complete(ctx, tc, userInput)
	if err != nil {
		return nil, err
	}

	// SPLITTING
	enter(StateSplitting)
	text, candidate := Split(raw)

	// VALIDATING
	enter(StateValidating)
	update, verr := ParseStateUpdate(candidate, tc.syllabus)
	usedFallback := false
	if verr != nil {
		log.Warn("state update rejected, applying fallback", "error", verr, "completion", raw)
		update = FallbackUpdate(tc.syllabus)
		usedFallback = true
	}
	span.SetAttributes(attribute.Bool("fallback", usedFallback))

	// PERSISTING
	enter(StatePersisting)
	o.persist(ctx, log, ident.StudentID, courseID, update)
	o.recordExchange(ctx, log, ident.StudentID, courseID, topicAtTurn, input, text, explicitInit)

	// RESPONDING
	enter(StateResponding)
	res = &TurnResult{
		Text:           text,
		Update:         update,
		UsedFallback:   usedFallback,
		SessionStarted: sessionStarted,
		Syllabus:       tc.syllabus.Apply(update),
	}
	if update.TriggerSummaryGeneration && update.CurrentTopicID != "" {
		res.NotaryTopics = notaryTopics(tc.syllabus, update)
		o.scheduleNotary(ctx, log, ident.StudentID, courseID, res.NotaryTopics)
	}
	return res, nil
}

func (o *Orchestrator) lock(ctx context.Context, log *logger.Logger, studentID, courseID string) func() {
	if o.deps.Locker == nil {
		return func() {}
	}
	lockCtx, cancel := context.WithTimeout(ctx, o.cfg.LockWait)
	defer cancel()
	release, err := o.deps.Locker.Lock(lockCtx, "turn:"+studentID+":"+courseID)
	if err != nil || release == nil {
		log.Warn("turn lock not acquired, continuing unlocked", "error", err)
		return func() {}
	}
	return release
}

func (o *Orchestrator) loadContext(ctx context.Context, log *logger.Logger, ident Identity, courseID string, checkHistory bool) (turnContext, error) {
	tc := turnContext{identity: ident, hasHistory: true}
	var found bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, ok, err := o.deps.Syllabi.GetSyllabus(gctx, ident.StudentID, courseID)
		if err != nil {
			return err
		}
		tc.syllabus, found = s, ok
		return nil
	})
	g.Go(func() error {
		tc.persona = DefaultPersona()
		if o.deps.Personas == nil {
			return nil
		}
		p, ok, err := o.deps.Personas.GetPersonaConfig(gctx, courseID)
		if err != nil {
			log.Warn("persona lookup failed, using default", "error", err)
			return nil
		}
		if ok {
			tc.persona = p
		}
		return nil
	})
	if o.deps.Transcripts != nil {
		g.Go(func() error {
			msgs, err := o.deps.Transcripts.GetCourseHistory(gctx, ident.StudentID, courseID, o.cfg.HistoryLimit)
			if err != nil {
				log.Warn("history lookup failed, treating session as ongoing", "error", err)
				return nil
			}
			tc.history = msgs
			if checkHistory {
				tc.hasHistory = len(msgs) > 0
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tc, newError(KindMissingPlan, "tutoring.loadContext", "syllabus lookup failed", err)
	}
	if !found || len(tc.syllabus.Topics) == 0 {
		return tc, newError(KindMissingPlan, "tutoring.loadContext", "no learning plan found", nil)
	}
	if tc.syllabus.StudentID == "" {
		tc.syllabus.StudentID = ident.StudentID
	}
	if tc.syllabus.CourseID == "" {
		tc.syllabus.CourseID = courseID
	}
	return tc, nil
}

// syllabusSnapshot is the JSON shape the Teacher prompt receives.
type syllabusSnapshot struct {
	CourseID          string       `json:"course_id"`
	CourseName        string       `json:"course_name,omitempty"`
	CourseDescription string       `json:"course_description,omitempty"`
	StudentID         string       `json:"student_id"`
	CurrentTopicID    string       `json:"current_topic_id"`
	Topics            []TopicEntry `json:"topics"`
}

// snapshotOf keeps the study material of the current topic only.
func snapshotOf(s Syllabus) syllabusSnapshot {
	current := s.CurrentTopicID()
	topics := make([]TopicEntry, len(s.Topics))
	for i, t := range s.Topics {
		if t.TopicID != current {
			t.Content, t.Activities = "", ""
		}
		topics[i] = t
	}
	return syllabusSnapshot{
		CourseID:          s.CourseID,
		CourseName:        s.CourseName,
		CourseDescription: s.CourseDescription,
		StudentID:         s.StudentID,
		CurrentTopicID:    current,
		Topics:            topics,
	}
}

func (o *Orchestrator) complete(ctx context.Context, tc turnContext, userInput string) (string, error) {
	const op = "tutoring.complete"
	personaJSON, _ := json.Marshal(tc.persona)
	syllabusJSON, _ := json.Marshal(snapshotOf(tc.syllabus))
	history := RenderTranscript(tc.history)
	if history == "" {
		history = noHistory
	}
	prompt := FillPrompt(TeacherPrompt, map[string]string{
		"PERSONA_JSON":  string(personaJSON),
		"SYLLABUS_JSON": string(syllabusJSON),
		"CHAT_HISTORY":  history,
		"USER_INPUT":    userInput,
	})

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.TurnTimeout)
	defer cancel()
	raw, err := o.deps.LLM.GenerateText(callCtx, "", prompt)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", newError(KindCompletion, op, "completion timed out", err)
		}
		return "", newError(KindCompletion, op, "completion failed", err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", newError(KindCompletion, op, "empty completion", nil)
	}
	return raw, nil
}

func (o *Orchestrator) persist(ctx context.Context, log *logger.Logger, studentID, courseID string, u AIStateUpdate) {
	for _, upd := range u.TopicsUpdated {
		if err := o.deps.Syllabi.WriteTopicStatus(ctx, studentID, courseID, upd.TopicID, upd.Status); err != nil {
			perr := newError(KindPersistence, "tutoring.persist", "topic status write failed", err)
			log.Error("syllabus write failed", "topic_id", upd.TopicID, "status", string(upd.Status), "error", perr)
		}
	}
}

func (o *Orchestrator) recordExchange(ctx context.Context, log *logger.Logger, studentID, courseID, topicID, input, reply string, explicitInit bool) {
	if o.deps.Transcripts == nil {
		return
	}
	msgs := make([]Message, 0, 2)
	if !explicitInit && strings.TrimSpace(input) != "" {
		msgs = append(msgs, Message{Role: RoleUser, Content: input})
	}
	msgs = append(msgs, Message{Role: RoleAssistant, Content: reply})
	if err := o.deps.Transcripts.AppendExchange(ctx, studentID, courseID, topicID, msgs); err != nil {
		perr := newError(KindPersistence, "tutoring.recordExchange", "transcript append failed", err)
		log.Error("transcript append failed", "topic_id", topicID, "error", perr)
	}
}

// notaryTopics picks what to summarize: the topics this update completed, or
// the update's current topic when it completed nothing new.
func notaryTopics(s Syllabus, u AIStateUpdate) []string {
	if done := newlyCompleted(s, u); len(done) > 0 {
		return done
	}
	return []string{u.CurrentTopicID}
}

func (o *Orchestrator) scheduleNotary(ctx context.Context, log *logger.Logger, studentID, courseID string, topics []string) {
	if o.deps.Notary == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, topicID := range topics {
		req := NotaryRequest{StudentID: studentID, CourseID: courseID, TopicID: topicID}
		o.bg.Add(1)
		go func() {
			defer o.bg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error("notary handoff panicked", "topic_id", req.TopicID, "panic", r)
				}
			}()
			if err := o.deps.Notary.EnqueueNotary(detached, req); err != nil {
				log.Error("notary handoff failed", "topic_id", req.TopicID, "error", err)
				return
			}
			log.Info("notary scheduled", "topic_id", req.TopicID)
		}()
	}
}


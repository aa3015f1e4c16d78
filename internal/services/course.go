package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/yungbote/tutorbridge-backend/internal/data/db"
	"github.com/yungbote/tutorbridge-backend/internal/data/repos"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	pkgerrors "github.com/yungbote/tutorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/tutorbridge-backend/internal/platform/apierr"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

const (
	importCodePrefix   = "COURSE-"
	importCodeAttempts = 5
	catalogScanLimit   = 500
)

type CourseInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

type CourseUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type TopicInput struct {
	Name       string `json:"name"`
	Content    string `json:"content"`
	Activities string `json:"activities"`
}

type TopicUpdate struct {
	Name       *string `json:"name"`
	Content    *string `json:"content"`
	Activities *string `json:"activities"`
}

type PersonaInput struct {
	Tone             string `json:"tone"`
	ExplanationStyle string `json:"explanation_style"`
	Language         string `json:"language"`
	DifficultyLevel  string `json:"difficulty_level"`
}

type CourseDetails struct {
	Course      *types.Course        `json:"course"`
	Topics      []*types.Topic       `json:"topics"`
	Enrollments []*types.Enrollment  `json:"enrollments"`
	Persona     *types.PersonaConfig `json:"persona,omitempty"`
}

type ImportResult struct {
	Course *types.Course  `json:"course"`
	Topics []*types.Topic `json:"topics"`
}

// CourseImport is the structured outline accepted by ImportCourse, as JSON or YAML.
type CourseImport struct {
	Name    string         `yaml:"curso_nombre" json:"curso_nombre"`
	Modules []ImportModule `yaml:"modulos" json:"modulos"`
}

type ImportModule struct {
	Name      string           `yaml:"nombre" json:"nombre"`
	Subtopics []ImportSubtopic `yaml:"subtemas" json:"subtemas"`
}

type ImportSubtopic struct {
	ID   any    `yaml:"id" json:"id"`
	Name string `yaml:"nombre" json:"nombre"`
}

type CourseService interface {
	CreateCourse(ctx context.Context, in CourseInput) (*types.Course, error)
	ListTeacherCourses(ctx context.Context) ([]*types.Course, error)
	GetCourseDetails(ctx context.Context, courseID uuid.UUID) (*CourseDetails, error)
	UpdateCourse(ctx context.Context, courseID uuid.UUID, in CourseUpdate) (*types.Course, error)
	DeleteCourse(ctx context.Context, courseID uuid.UUID) error

	CreateTopic(ctx context.Context, courseID uuid.UUID, in TopicInput) (*types.Topic, error)
	ListTopics(ctx context.Context, courseID uuid.UUID) ([]*types.Topic, error)
	UpdateTopic(ctx context.Context, topicID uuid.UUID, in TopicUpdate) (*types.Topic, error)
	DeleteTopic(ctx context.Context, topicID uuid.UUID) error

	UpsertPersona(ctx context.Context, courseID uuid.UUID, in PersonaInput) (*types.PersonaConfig, error)
	ImportCourse(ctx context.Context, body []byte) (*ImportResult, error)
	SearchCatalog(ctx context.Context, query string, limit int) ([]*types.Course, error)
}

type courseService struct {
	db          *gorm.DB
	log         *logger.Logger
	courses     repos.CourseRepo
	topics      repos.TopicRepo
	personas    repos.PersonaRepo
	enrollments repos.EnrollmentRepo
	syllabi     repos.SyllabusRepo
	sessions    repos.ChatSessionRepo
	messages    repos.ChatMessageRepo

	newCode func() string
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	topics repos.TopicRepo,
	personas repos.PersonaRepo,
	enrollments repos.EnrollmentRepo,
	syllabi repos.SyllabusRepo,
	sessions repos.ChatSessionRepo,
	messages repos.ChatMessageRepo,
) CourseService {
	return &courseService{
		db:          db,
		log:         baseLog.With("service", "CourseService"),
		courses:     courses,
		topics:      topics,
		personas:    personas,
		enrollments: enrollments,
		syllabi:     syllabi,
		sessions:    sessions,
		messages:    messages,
		newCode:     randomCourseCode,
	}
}

func randomCourseCode() string {
	return importCodePrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func (s *courseService) CreateCourse(ctx context.Context, in CourseInput) (*types.Course, error) {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if name == "" || code == "" {
		return nil, apierr.BadRequest("name_and_code_required", fmt.Errorf("%w: name and code are required", pkgerrors.ErrInvalidArgument))
	}
	c := &types.Course{
		TeacherID:   rd.UserID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Code:        code,
	}
	if _, err := s.courses.Create(dbctx.New(ctx), []*types.Course{c}); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apierr.Conflict("course_code_taken", fmt.Errorf("%w: course code already exists", pkgerrors.ErrConflict))
		}
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.log.Info("course created", "course_id", c.ID, "user_id", rd.UserID)
	return c, nil
}

func (s *courseService) ListTeacherCourses(ctx context.Context) ([]*types.Course, error) {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return nil, err
	}
	return s.courses.ListByTeacher(dbctx.New(ctx), rd.UserID)
}

// ownedCourse loads the course and hides courses of other teachers as not found.
func (s *courseService) ownedCourse(dbc dbctx.Context, teacherID, courseID uuid.UUID) (*types.Course, error) {
	if courseID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_course_id", pkgerrors.ErrInvalidArgument)
	}
	rows, err := s.courses.GetByIDs(dbc, []uuid.UUID{courseID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].TeacherID != teacherID {
		return nil, apierr.NotFound("course_not_found", pkgerrors.ErrNotFound)
	}
	return rows[0], nil
}

func (s *courseService) ownedTopic(dbc dbctx.Context, teacherID, topicID uuid.UUID) (*types.Topic, error) {
	if topicID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_topic_id", pkgerrors.ErrInvalidArgument)
	}
	rows, err := s.topics.GetByIDs(dbc, []uuid.UUID{topicID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apierr.NotFound("topic_not_found", pkgerrors.ErrNotFound)
	}
	if _, err := s.ownedCourse(dbc, teacherID, rows[0].CourseID); err != nil {
		return nil, apierr.NotFound("topic_not_found", pkgerrors.ErrNotFound)
	}
	return rows[0], nil
}

func (s *courseService) GetCourseDetails(ctx context.Context, courseID uuid.UUID) (*CourseDetails, error) {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	c, err := s.ownedCourse(dbc, rd.UserID, courseID)
	if err != nil {
		return nil, err
	}
	topics, err := s.topics.ListByCourse(dbc, courseID)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByCourse(dbc, courseID)
	if err != nil {
		return nil, err
	}
	persona, err := s.personas.GetByCourse(dbc, courseID)
	if err != nil {
		return nil, err
	}
	return &CourseDetails{Course: c, Topics: topics, Enrollments: enrollments, Persona: persona}, nil
}

func (s *courseService) UpdateCourse(ctx context.Context, courseID uuid.UUID, in CourseUpdate) (*types.Course, error) {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	c, err := s.ownedCourse(dbc, rd.UserID, courseID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apierr.BadRequest("name_required", pkgerrors.ErrInvalidArgument)
		}
		updates["name"] = name
		c.Name = name
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
		c.Description = strings.TrimSpace(*in.Description)
	}
	if len(updates) == 0 {
		return c, nil
	}
	if err := s.courses.UpdateFields(dbc, courseID, updates); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	c.UpdatedAt = time.Now().UTC()
	return c, nil
}

// DeleteCourse soft-deletes the course and removes everything students built on it.
func (s *courseService) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return err
	}
	if _, err := s.ownedCourse(dbctx.New(ctx), rd.UserID, courseID); err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		sessions, err := s.sessions.ListByCourse(dbc, courseID)
		if err != nil {
			return err
		}
		if err := s.messages.DeleteBySessionIDs(dbc, lo.Map(sessions, func(cs *types.ChatSession, _ int) uuid.UUID { return cs.ID })); err != nil {
			return err
		}
		for _, cs := range sessions {
			if err := s.sessions.Delete(dbc, cs.UserID, courseID); err != nil {
				return err
			}
		}
		if err := s.syllabi.DeleteByCourseID(dbc, courseID); err != nil {
			return err
		}
		if err := s.enrollments.DeleteByCourseID(dbc, courseID); err != nil {
			return err
		}
		if err := s.topics.DeleteByCourseID(dbc, courseID); err != nil {
			return err
		}
		return s.courses.SoftDeleteByIDs(dbc, []uuid.UUID{courseID})
	})
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	s.log.Info("course deleted", "course_id", courseID, "user_id", rd.UserID)
	return nil
}

func (s *courseService) CreateTopic(ctx context.Context, courseID uuid.UUID, in TopicInput) (*types.Topic, error) {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	content := strings.TrimSpace(in.Content)
	if name == "" || content == "" {
		return nil, apierr.BadRequest("name_and_content_required", fmt.Errorf("%w: name and content are required", pkgerrors.ErrInvalidArgument))
	}
	activities := strings.TrimSpace(in.Activities)
	if activities == "" {
		activities = "[]"
	}

	var topic *types.Topic
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.ownedCourse(dbc, rd.UserID, courseID); err != nil {
			return err
		}
		pos, err := s.topics.NextPosition(dbc, courseID)
		if err != nil {
			return err
		}
		topic = &types.Topic{CourseID: courseID, Name: name, Content: content, Activities: activities, Position: pos}
		_, err = s.topics.Create(dbc, []*types.Topic{topic})
		return err
	})
	if err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *courseService) ListTopics(ctx context.Context, courseID uuid.UUID) ([]*types.Topic, error) {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	if _, err := s.ownedCourse(dbc, rd.UserID, courseID); err != nil {
		return nil, err
	}
	return s.topics.ListByCourse(dbc, courseID)
}

func (s *courseService) UpdateTopic(ctx context.Context, topicID uuid.UUID, in TopicUpdate) (*types.Topic, error) {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	topic, err := s.ownedTopic(dbc, rd.UserID, topicID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apierr.BadRequest("name_required", pkgerrors.ErrInvalidArgument)
		}
		topic.Name = strings.TrimSpace(*in.Name)
		updates["name"] = topic.Name
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, apierr.BadRequest("content_required", pkgerrors.ErrInvalidArgument)
		}
		topic.Content = strings.TrimSpace(*in.Content)
		updates["content"] = topic.Content
	}
	if in.Activities != nil {
		topic.Activities = strings.TrimSpace(*in.Activities)
		if topic.Activities == "" {
			topic.Activities = "[]"
		}
		updates["activities"] = topic.Activities
	}
	if len(updates) == 0 {
		return topic, nil
	}
	if err := s.topics.UpdateFields(dbc, topicID, updates); err != nil {
		return nil, fmt.Errorf("update topic: %w", err)
	}
	return topic, nil
}

func (s *courseService) DeleteTopic(ctx context.Context, topicID uuid.UUID) error {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return err
	}
	if _, err := s.ownedTopic(dbctx.New(ctx), rd.UserID, topicID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.syllabi.DeleteByTopicIDs(dbc, []uuid.UUID{topicID}); err != nil {
			return err
		}
		return s.topics.DeleteByIDs(dbc, []uuid.UUID{topicID})
	})
}

func (s *courseService) UpsertPersona(ctx context.Context, courseID uuid.UUID, in PersonaInput) (*types.PersonaConfig, error) {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	if _, err := s.ownedCourse(dbc, rd.UserID, courseID); err != nil {
		return nil, err
	}
	p := &types.PersonaConfig{
		CourseID:         courseID,
		Tone:             strings.TrimSpace(in.Tone),
		ExplanationStyle: strings.TrimSpace(in.ExplanationStyle),
		Language:         strings.TrimSpace(in.Language),
		DifficultyLevel:  strings.TrimSpace(in.DifficultyLevel),
	}
	if err := s.personas.Upsert(dbc, p); err != nil {
		return nil, fmt.Errorf("upsert persona: %w", err)
	}
	return s.personas.GetByCourse(dbc, courseID)
}

// ParseCourseImport decodes an outline. YAML is a superset of JSON, so one
// decoder serves both bodies.
func ParseCourseImport(body []byte) (*CourseImport, error) {
	var in CourseImport
	if err := yaml.Unmarshal(body, &in); err != nil {
		return nil, apierr.BadRequest("invalid_import", fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Modules == nil {
		return nil, apierr.BadRequest("invalid_import", fmt.Errorf("%w: curso_nombre and modulos are required", pkgerrors.ErrInvalidArgument))
	}
	return &in, nil
}

func importTopics(courseID uuid.UUID, in *CourseImport) []*types.Topic {
	var out []*types.Topic
	for _, m := range in.Modules {
		module := strings.TrimSpace(m.Name)
		for _, sub := range m.Subtopics {
			name := strings.TrimSpace(sub.Name)
			out = append(out, &types.Topic{
				CourseID:   courseID,
				Name:       module + " - " + name,
				Content:    fmt.Sprintf("**Módulo:** %s\n**Subtema:** %s\n\nID: %v", module, name, sub.ID),
				Activities: "Estudia el contenido de " + name,
				Position:   len(out),
			})
		}
	}
	return out
}

func (s *courseService) ImportCourse(ctx context.Context, body []byte) (*ImportResult, error) {
	rd, err := requireRole(ctx, types.RoleTeacher)
	if err != nil {
		return nil, err
	}
	in, err := ParseCourseImport(body)
	if err != nil {
		return nil, err
	}

	var res *ImportResult
	for attempt := 1; attempt <= importCodeAttempts; attempt++ {
		res, err = s.importOnce(ctx, rd.UserID, in)
		if err == nil || !db.IsUniqueViolation(err) {
			break
		}
		s.log.Warn("generated course code collided, retrying", "attempt", attempt)
	}
	if err != nil {
		return nil, fmt.Errorf("import course: %w", err)
	}
	s.log.Info("course imported", "course_id", res.Course.ID, "modules", len(in.Modules), "topics", len(res.Topics))
	return res, nil
}

func (s *courseService) importOnce(ctx context.Context, teacherID uuid.UUID, in *CourseImport) (*ImportResult, error) {
	c := &types.Course{
		TeacherID:   teacherID,
		Name:        in.Name,
		Description: fmt.Sprintf("Curso importado con %d módulos", len(in.Modules)),
		Code:        s.newCode(),
	}
	var topics []*types.Topic
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.courses.Create(dbc, []*types.Course{c}); err != nil {
			return err
		}
		topics = importTopics(c.ID, in)
		if len(topics) == 0 {
			return nil
		}
		_, err := s.topics.Create(dbc, topics)
		return err
	})
	if err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []*types.Topic{}
	}
	return &ImportResult{Course: c, Topics: topics}, nil
}

// SearchCatalog ranks courses by fuzzy match of query against name and code.
// An empty query lists the newest courses.
func (s *courseService) SearchCatalog(ctx context.Context, query string, limit int) ([]*types.Course, error) {
	if _, err := requireRole(ctx, types.RoleTeacher); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	all, err := s.courses.ListAll(dbctx.New(ctx), catalogScanLimit)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return lo.Subset(all, 0, uint(limit)), nil
	}

	best := map[int]int{}
	rank := func(targets []string) {
		for _, r := range fuzzy.RankFindNormalizedFold(query, targets) {
			if d, ok := best[r.OriginalIndex]; !ok || r.Distance < d {
				best[r.OriginalIndex] = r.Distance
			}
		}
	}
	rank(lo.Map(all, func(c *types.Course, _ int) string { return c.Name }))
	rank(lo.Map(all, func(c *types.Course, _ int) string { return c.Code }))

	idx := lo.Keys(best)
	sort.Slice(idx, func(i, j int) bool {
		if best[idx[i]] != best[idx[j]] {
			return best[idx[i]] < best[idx[j]]
		}
		return idx[i] < idx[j]
	})
	hits := lo.Map(idx, func(i int, _ int) *types.Course { return all[i] })
	return lo.Subset(hits, 0, uint(limit)), nil
}

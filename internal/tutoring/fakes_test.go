package tutoring

import (
	"context"
	"errors"
	"sync"
)

type fakeIdentity struct {
	id  string
	err error
}

func (f fakeIdentity) ResolveCallerIdentity(context.Context) (Identity, bool, error) {
	if f.err != nil {
		return Identity{}, false, f.err
	}
	if f.id == "" {
		return Identity{}, false, nil
	}
	return Identity{StudentID: f.id}, true, nil
}

type write struct {
	topicID string
	status  TopicStatus
}

// memSyllabi keeps one syllabus per (student, course) and applies writes the
// way the database repo does: completed entries never move back.
type memSyllabi struct {
	mu      sync.Mutex
	plans   map[string]Syllabus
	writes  []write
	failFor map[string]bool
}

func newMemSyllabi() *memSyllabi {
	return &memSyllabi{plans: map[string]Syllabus{}, failFor: map[string]bool{}}
}

func (m *memSyllabi) put(s Syllabus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[s.StudentID+"|"+s.CourseID] = s
}

func (m *memSyllabi) GetSyllabus(_ context.Context, studentID, courseID string) (Syllabus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.plans[studentID+"|"+courseID]
	if !ok {
		return Syllabus{}, false, nil
	}
	s.Topics = append([]TopicEntry(nil), s.Topics...)
	return s, true, nil
}

func (m *memSyllabi) WriteTopicStatus(_ context.Context, studentID, courseID, topicID string, status TopicStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, write{topicID, status})
	if m.failFor[topicID] {
		return errors.New("store unavailable")
	}
	key := studentID + "|" + courseID
	s := m.plans[key]
	m.plans[key] = s.Apply(AIStateUpdate{TopicsUpdated: []TopicUpdate{{TopicID: topicID, Status: status}}})
	return nil
}

type fakePersonas struct {
	p  PersonaConfig
	ok bool
}

func (f fakePersonas) GetPersonaConfig(context.Context, string) (PersonaConfig, bool, error) {
	return f.p, f.ok, nil
}

type appended struct {
	topicID string
	msgs    []Message
}

// memTranscripts keeps one course conversation plus a per-topic index.
type memTranscripts struct {
	mu      sync.Mutex
	history []Message
	byTopic map[string][]Message
	appends []appended
}

func (m *memTranscripts) GetChatTranscript(_ context.Context, _, topicID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.byTopic[topicID]...), nil
}

func (m *memTranscripts) GetCourseHistory(_ context.Context, _, _ string, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.history
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]Message(nil), out...), nil
}

func (m *memTranscripts) AppendExchange(_ context.Context, _, _, topicID string, msgs []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends = append(m.appends, appended{topicID, msgs})
	if m.byTopic == nil {
		m.byTopic = map[string][]Message{}
	}
	m.byTopic[topicID] = append(m.byTopic[topicID], msgs...)
	m.history = append(m.history, msgs...)
	return nil
}

// scriptedLLM returns its replies in order and records every prompt it saw.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (s *scriptedLLM) GenerateText(ctx context.Context, _, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, user)
	if s.err != nil {
		return "", s.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	out := s.replies[0]
	s.replies = s.replies[1:]
	return out, nil
}

func (s *scriptedLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

type recordingQueue struct {
	mu   sync.Mutex
	reqs []NotaryRequest
}

func (q *recordingQueue) EnqueueNotary(_ context.Context, req NotaryRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reqs = append(q.reqs, req)
	return nil
}

func (q *recordingQueue) requests() []NotaryRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]NotaryRequest(nil), q.reqs...)
}

type memSummaries struct {
	mu    sync.Mutex
	saved []TopicSummary
}

func (m *memSummaries) SaveSummary(_ context.Context, s TopicSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return nil
}

func twoTopicSyllabus() Syllabus {
	return Syllabus{
		StudentID: "s1",
		CourseID:  "c1",
		Topics: []TopicEntry{
			{TopicID: "t1", Status: StatusInProgress, OrderIndex: 0},
			{TopicID: "t2", Status: StatusPending, OrderIndex: 1},
		},
	}
}

package tutoring

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// StateDelimiter separates the student-facing prose from the state JSON in a
// Teacher completion.
const StateDelimiter = "###STATE_UPDATE###"

type TopicStatus string

const (
	StatusPending    TopicStatus = "pending"
	StatusInProgress TopicStatus = "in_progress"
	StatusCompleted  TopicStatus = "completed"
)

func (s TopicStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type TopicEntry struct {
	TopicID    string      `json:"topic_id"`
	Title      string      `json:"title,omitempty"`
	Status     TopicStatus `json:"status"`
	OrderIndex int         `json:"order_index"`
	Content    string      `json:"content,omitempty"`
	Activities string      `json:"activities,omitempty"`
}

// Syllabus is one student's ordered plan for one course.
type Syllabus struct {
	StudentID         string       `json:"student_id"`
	CourseID          string       `json:"course_id"`
	CourseName        string       `json:"course_name,omitempty"`
	CourseDescription string       `json:"course_description,omitempty"`
	Topics            []TopicEntry `json:"topics"`
}

// CurrentTopicID is the first in_progress topic, or the first topic when none is.
func (s Syllabus) CurrentTopicID() string {
	for _, t := range s.Topics {
		if t.Status == StatusInProgress {
			return t.TopicID
		}
	}
	if len(s.Topics) > 0 {
		return s.Topics[0].TopicID
	}
	return ""
}

func (s Syllabus) Find(topicID string) (TopicEntry, bool) {
	for _, t := range s.Topics {
		if t.TopicID == topicID {
			return t, true
		}
	}
	return TopicEntry{}, false
}

// Apply returns a copy of s with u's statuses written, skipping any write that
// would move a completed topic backwards.
func (s Syllabus) Apply(u AIStateUpdate) Syllabus {
	out := s
	out.Topics = append([]TopicEntry(nil), s.Topics...)
	for _, upd := range u.TopicsUpdated {
		for i := range out.Topics {
			if out.Topics[i].TopicID != upd.TopicID {
				continue
			}
			if out.Topics[i].Status == StatusCompleted && upd.Status != StatusCompleted {
				continue
			}
			out.Topics[i].Status = upd.Status
		}
	}
	return out
}

type TopicUpdate struct {
	TopicID string      `json:"topic_id"`
	Status  TopicStatus `json:"status"`
}

// AIStateUpdate is the machine-readable half of one Teacher turn.
type AIStateUpdate struct {
	TriggerSummaryGeneration bool          `json:"trigger_summary_generation"`
	CurrentTopicID           string        `json:"current_topic_id"`
	TopicsUpdated            []TopicUpdate `json:"topics_updated"`
}

// Split separates a raw completion into the text shown to the student and a
// candidate state object. It is total: without a delimiter, or when the tail is
// not exactly one JSON object, the candidate is nil and the whole trimmed
// completion is the text.
func Split(raw string) (userText string, candidate map[string]any) {
	idx := strings.Index(raw, StateDelimiter)
	if idx < 0 {
		return strings.TrimSpace(raw), nil
	}
	obj, ok := decodeSingleObject(raw[idx+len(StateDelimiter):])
	if !ok {
		return strings.TrimSpace(raw), nil
	}
	return strings.TrimSpace(raw[:idx]), obj
}

// decodeSingleObject accepts s only when, after trimming, it holds one JSON
// object and nothing else.
func decodeSingleObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return obj, true
}

package tutoring

import (
	"strings"
	"testing"
)

func TestSplitTotality(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"plain reply with no state",
		StateDelimiter,
		"Hola" + StateDelimiter,
		"Hola" + StateDelimiter + "{not json",
		"Hola" + StateDelimiter + `{"a":1} trailing`,
		"Hola" + StateDelimiter + `{"a":1}{"b":2}`,
		"Hola" + StateDelimiter + `[1,2,3]`,
		"Hola" + StateDelimiter + `"just a string"`,
		"Hola" + StateDelimiter + "```json\n{\"a\":1}\n```",
		"Hola" + StateDelimiter + `null`,
	}
	for _, in := range cases {
		text, cand := Split(in)
		if cand != nil {
			t.Fatalf("Split(%q) candidate=%v want nil", in, cand)
		}
		if text != strings.TrimSpace(in) {
			t.Fatalf("Split(%q) text=%q want whole trimmed input", in, text)
		}
	}
}

func TestSplitExtractsState(t *testing.T) {
	raw := `Hello###STATE_UPDATE###{"trigger_summary_generation":false,"current_topic_id":"t1","topics_updated":[{"topic_id":"t1","status":"in_progress"}]}`
	text, cand := Split(raw)
	if text != "Hello" {
		t.Fatalf("text=%q want Hello", text)
	}
	if cand == nil || cand["current_topic_id"] != "t1" {
		t.Fatalf("candidate=%v", cand)
	}
}

func TestSplitTrimsAroundDelimiter(t *testing.T) {
	raw := "  ¡Muy bien!\n\n###STATE_UPDATE###\n {\"current_topic_id\":\"t1\"}  \n"
	text, cand := Split(raw)
	if text != "¡Muy bien!" {
		t.Fatalf("text=%q", text)
	}
	if cand["current_topic_id"] != "t1" {
		t.Fatalf("candidate=%v", cand)
	}
}

func TestSplitUsesFirstDelimiter(t *testing.T) {
	raw := "a" + StateDelimiter + `{"x":"` + StateDelimiter + `"}`
	text, cand := Split(raw)
	if text != "a" || cand["x"] != StateDelimiter {
		t.Fatalf("text=%q cand=%v", text, cand)
	}
}

func TestSyllabusCurrentTopic(t *testing.T) {
	s := twoTopicSyllabus()
	if got := s.CurrentTopicID(); got != "t1" {
		t.Fatalf("current=%q want t1", got)
	}
	s.Topics[0].Status = StatusCompleted
	s.Topics[1].Status = StatusPending
	if got := s.CurrentTopicID(); got != "t1" {
		t.Fatalf("no in_progress: current=%q want first entry", got)
	}
	if got := (Syllabus{}).CurrentTopicID(); got != "" {
		t.Fatalf("empty syllabus current=%q", got)
	}
}

func TestSyllabusApplyIsMonotonic(t *testing.T) {
	s := twoTopicSyllabus()
	seq := []AIStateUpdate{
		{TopicsUpdated: []TopicUpdate{{"t1", StatusCompleted}, {"t2", StatusInProgress}}},
		{TopicsUpdated: []TopicUpdate{{"t1", StatusInProgress}}},
		{TopicsUpdated: []TopicUpdate{{"t1", StatusPending}, {"t2", StatusCompleted}}},
		{TopicsUpdated: []TopicUpdate{{"t2", StatusPending}}},
	}
	completed := map[string]bool{}
	for i, u := range seq {
		next := s.Apply(u)
		for _, e := range next.Topics {
			if completed[e.TopicID] && e.Status != StatusCompleted {
				t.Fatalf("step %d: %s left completed (now %s)", i, e.TopicID, e.Status)
			}
			if e.Status == StatusCompleted {
				completed[e.TopicID] = true
			}
		}
		s = next
	}
	if !completed["t1"] || !completed["t2"] {
		t.Fatalf("completed=%v", completed)
	}
}

func TestSyllabusApplyDoesNotMutateReceiver(t *testing.T) {
	s := twoTopicSyllabus()
	_ = s.Apply(AIStateUpdate{TopicsUpdated: []TopicUpdate{{"t1", StatusCompleted}}})
	if s.Topics[0].Status != StatusInProgress {
		t.Fatalf("receiver mutated: %v", s.Topics[0])
	}
}

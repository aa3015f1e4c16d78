package tutoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

func newTestNotary(reply string) (*Notary, *memSummaries, *scriptedLLM) {
	sums := &memSummaries{}
	llm := &scriptedLLM{replies: []string{reply}}
	tr := &memTranscripts{byTopic: map[string][]Message{
		"t1": {
			{Role: RoleUser, Content: "no entiendo los punteros"},
			{Role: RoleAssistant, Content: "Piensa en una dirección postal."},
		},
	}}
	n := NewNotary(logger.Nop(), NotaryDeps{Transcripts: tr, Summaries: sums, LLM: llm}, time.Second)
	return n, sums, llm
}

func TestNotaryRejectsNonBareJSON(t *testing.T) {
	n, sums, _ := newTestNotary(`Here is the summary: {"topic_completion_summary":"..."}`)
	_, err := n.Run(context.Background(), "s1", "t1")
	if !errors.Is(err, ErrSummaryParse) {
		t.Fatalf("err=%v want summary_parse", err)
	}
	if len(sums.saved) != 0 {
		t.Fatalf("summary written from non-bare output")
	}
}

func TestNotaryRejectsFencedAndTrailingOutput(t *testing.T) {
	for _, raw := range []string{
		"```json\n{\"topic_completion_summary\":\"x\"}\n```",
		`{"topic_completion_summary":"x"} gracias`,
		`{"topic_completion_summary":"x"}{"b":1}`,
		`["x"]`,
		"",
	} {
		if _, err := ParseSummary(raw); !errors.Is(err, ErrSummaryParse) {
			t.Fatalf("ParseSummary(%q) err=%v", raw, err)
		}
	}
}

func TestNotaryStoresNestedSummary(t *testing.T) {
	reply := `
{"topic_completion_summary":"Entiende punteros.","pedagogical_notes":{"student_doubts":["diferencia entre * y &"],"effective_analogies":"dirección postal","engagement_level":"High"},"next_session_hook":"¿Y los slices?"}
`
	n, sums, llm := newTestNotary(reply)
	got, err := n.Run(context.Background(), "s1", "t1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sums.saved) != 1 {
		t.Fatalf("saved=%d", len(sums.saved))
	}
	s := sums.saved[0]
	if s.StudentID != "s1" || s.TopicID != "t1" || s.CompletionSummary != "Entiende punteros." {
		t.Fatalf("summary=%+v", s)
	}
	if len(s.StudentDoubts) != 1 || s.EffectiveAnalogies != "dirección postal" || s.EngagementLevel != "High" || s.NextSessionHook != "¿Y los slices?" {
		t.Fatalf("summary=%+v", s)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt not set")
	}
	if !strings.Contains(llm.lastPrompt(), "USER: no entiendo los punteros\n\nASSISTANT: Piensa en una dirección postal.") {
		t.Fatalf("transcript not rendered into prompt")
	}
}

func TestNotaryDefaultsMissingFields(t *testing.T) {
	n, sums, _ := newTestNotary(`{"topic_completion_summary":"ok"}`)
	if _, err := n.Run(context.Background(), "s1", "t1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := sums.saved[0]
	if s.StudentDoubts == nil || len(s.StudentDoubts) != 0 {
		t.Fatalf("doubts=%#v want empty non-nil", s.StudentDoubts)
	}
	if s.EffectiveAnalogies != "" || s.EngagementLevel != "Medium" || s.NextSessionHook != "" {
		t.Fatalf("summary=%+v", s)
	}
}

func TestParseSummaryFlatFormAndEngagement(t *testing.T) {
	s, err := ParseSummary(`{"topic_completion_summary":"x","student_doubts":"una sola duda","engagement_level":"bajo"}`)
	if err != nil {
		t.Fatalf("ParseSummary: %v", err)
	}
	if len(s.StudentDoubts) != 1 || s.StudentDoubts[0] != "una sola duda" {
		t.Fatalf("doubts=%v", s.StudentDoubts)
	}
	if s.EngagementLevel != "Low" {
		t.Fatalf("engagement=%q", s.EngagementLevel)
	}
	s, _ = ParseSummary(`{"pedagogical_notes":{"engagement_level":"enthusiastic"}}`)
	if s.EngagementLevel != "Medium" {
		t.Fatalf("unknown engagement=%q want Medium", s.EngagementLevel)
	}
}

func TestNotaryCompletionFailureWritesNothing(t *testing.T) {
	n, sums, llm := newTestNotary("")
	llm.err = errors.New("timeout")
	if _, err := n.Run(context.Background(), "s1", "t1"); !errors.Is(err, ErrCompletion) {
		t.Fatalf("err=%v", err)
	}
	if len(sums.saved) != 0 {
		t.Fatalf("summary written after failed completion")
	}
}

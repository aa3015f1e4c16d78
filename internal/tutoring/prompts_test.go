package tutoring

import (
	"strings"
	"testing"
)

func TestFillPromptFirstOccurrenceOnly(t *testing.T) {
	got := FillPrompt("{{A}} and {{A}} and {{B}}", map[string]string{"A": "x"})
	if got != "x and {{A}} and {{B}}" {
		t.Fatalf("got %q", got)
	}
}

func TestFillPromptDoesNotExpandValues(t *testing.T) {
	tpl := "<P>{{PERSONA_JSON}}</P><U>{{USER_INPUT}}</U>"
	got := FillPrompt(tpl, map[string]string{
		"PERSONA_JSON": `{"tone":"{{USER_INPUT}}"}`,
		"USER_INPUT":   "hola {{PERSONA_JSON}}",
	})
	want := `<P>{"tone":"{{USER_INPUT}}"}</P><U>hola {{PERSONA_JSON}}</U>`
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestTemplatesCarryPlaceholders(t *testing.T) {
	for _, key := range []string{"{{PERSONA_JSON}}", "{{SYLLABUS_JSON}}", "{{CHAT_HISTORY}}", "{{USER_INPUT}}"} {
		if strings.Count(TeacherPrompt, key) != 1 {
			t.Fatalf("teacher prompt has %d of %s", strings.Count(TeacherPrompt, key), key)
		}
	}
	if strings.Count(NotaryPrompt, "{{CHAT_HISTORY}}") != 1 {
		t.Fatalf("notary prompt lacks CHAT_HISTORY")
	}
	if !strings.Contains(TeacherPrompt, StateDelimiter) {
		t.Fatalf("teacher prompt does not teach the delimiter")
	}
	if !strings.Contains(TeacherPrompt, sessionInitPrefix) {
		t.Fatalf("teacher prompt does not describe the session sentinel")
	}
	for _, rule := range []string{
		`Set the current topic to "in_progress" if it's in "pending" status.`,
		"Think step-by-step:",
		`{"trigger_summary_generation":true,"current_topic_id":"sub1_2"`,
	} {
		if !strings.Contains(TeacherPrompt, rule) {
			t.Fatalf("teacher prompt lost %q", rule)
		}
	}
	if strings.Index(TeacherPrompt, "{{CHAT_HISTORY}}") > strings.Index(TeacherPrompt, "{{USER_INPUT}}") {
		t.Fatalf("history placed after the student input")
	}
}

func TestSessionSentinel(t *testing.T) {
	if !IsSessionInit(SessionInitSentinel) {
		t.Fatalf("sentinel not recognised")
	}
	if IsSessionInit("hola, tengo una duda") {
		t.Fatalf("ordinary input treated as sentinel")
	}
}

func TestRenderTranscript(t *testing.T) {
	got := RenderTranscript([]Message{
		{Role: RoleUser, Content: "¿Qué es una variable?"},
		{Role: RoleAssistant, Content: "Un nombre para un valor."},
	})
	want := "USER: ¿Qué es una variable?\n\nASSISTANT: Un nombre para un valor."
	if got != want {
		t.Fatalf("got %q", got)
	}
	if RenderTranscript(nil) != "" {
		t.Fatalf("empty transcript rendered as non-empty")
	}
}

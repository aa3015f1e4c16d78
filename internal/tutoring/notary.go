package tutoring

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

const defaultEngagement = "Medium"

type NotaryDeps struct {
	Transcripts TranscriptStore
	Summaries   SummaryStore
	LLM         Completer
}

// Notary writes a pedagogical summary for one (student, topic).
type Notary struct {
	log     *logger.Logger
	deps    NotaryDeps
	timeout time.Duration
	tracer  trace.Tracer
}

func NewNotary(baseLog *logger.Logger, deps NotaryDeps, timeout time.Duration) *Notary {
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}
	return &Notary{
		log:     baseLog.With("component", "Notary"),
		deps:    deps,
		timeout: timeout,
		tracer:  otel.Tracer("tutorbridge/tutoring"),
	}
}

// Run summarizes the transcript and stores the result. A completion that is not
// one bare JSON object is a summary_parse error and nothing is written.
func (n *Notary) Run(ctx context.Context, studentID, topicID string) (sum *TopicSummary, err error) {
	ctx, span := n.tracer.Start(ctx, "tutoring.notary", trace.WithAttributes(attribute.String("topic_id", topicID)))
	defer span.End()
	log := n.log.With("student_id", studentID, "topic_id", topicID)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(KindOf(err)))
			log.Warn("notary aborted", "error", err)
		}
	}()

	msgs, err := n.deps.Transcripts.GetChatTranscript(ctx, studentID, topicID)
	if err != nil {
		return nil, newError(KindPersistence, "tutoring.notary.transcript", "transcript read failed", err)
	}
	prompt := FillPrompt(NotaryPrompt, map[string]string{"CHAT_HISTORY": RenderTranscript(msgs)})

	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	raw, err := n.deps.LLM.GenerateText(callCtx, "", prompt)
	if err != nil {
		return nil, newError(KindCompletion, "tutoring.notary.complete", "completion failed", err)
	}

	parsed, err := ParseSummary(raw)
	if err != nil {
		log.Warn("notary output rejected", "raw", raw)
		return nil, err
	}
	parsed.StudentID = studentID
	parsed.TopicID = topicID
	parsed.CreatedAt = time.Now().UTC()

	if err := n.deps.Summaries.SaveSummary(ctx, *parsed); err != nil {
		return nil, newError(KindPersistence, "tutoring.notary.save", "summary write failed", err)
	}
	log.Info("topic summary stored", "engagement", parsed.EngagementLevel, "doubts", len(parsed.StudentDoubts))
	return parsed, nil
}

// ParseSummary accepts only a completion that is, once trimmed, a single JSON
// object. Both the nested pedagogical_notes form and a flat form are read;
// missing fields take neutral defaults.
func ParseSummary(raw string) (*TopicSummary, error) {
	obj, ok := decodeSingleObject(raw)
	if !ok {
		return nil, newError(KindSummaryParse, "tutoring.ParseSummary", "completion is not a bare JSON object", nil)
	}

	notes, _ := obj["pedagogical_notes"].(map[string]any)
	field := func(key string) any {
		if notes != nil {
			if v, ok := notes[key]; ok {
				return v
			}
		}
		return obj[key]
	}

	return &TopicSummary{
		CompletionSummary:  stringOr(obj["topic_completion_summary"], ""),
		StudentDoubts:      stringList(field("student_doubts")),
		EffectiveAnalogies: stringOr(field("effective_analogies"), ""),
		EngagementLevel:    normalizeEngagement(stringOr(field("engagement_level"), "")),
		NextSessionHook:    stringOr(obj["next_session_hook"], ""),
	}, nil
}

func stringOr(v any, def string) string {
	s, ok := v.(string)
	if !ok {
		return def
	}
	return strings.TrimSpace(s)
}

func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeEngagement(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high", "alto", "alta":
		return "High"
	case "low", "bajo", "baja":
		return "Low"
	case "medium", "medio", "media":
		return "Medium"
	}
	return defaultEngagement
}

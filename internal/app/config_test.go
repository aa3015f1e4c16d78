package app

import (
	"testing"
	"time"

	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LLM_PROVIDER", "TEACHER_TURN_TIMEOUT_SECONDS", "TEMPORAL_ADDRESS", "RUN_WORKER", "TEACHER_HISTORY_MESSAGES"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(logger.Nop())
	if cfg.Port != "8080" || cfg.LLMProvider != "openai" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.TurnTimeout != 90*time.Second || cfg.NotaryDedupeTTL != time.Minute {
		t.Fatalf("timeouts: turn=%s dedupe=%s", cfg.TurnTimeout, cfg.NotaryDedupeTTL)
	}
	if cfg.TurnHistory != 40 {
		t.Fatalf("turn history=%d", cfg.TurnHistory)
	}
	if cfg.Temporal.Enabled() || !cfg.RunWorker {
		t.Fatalf("temporal=%v run_worker=%v", cfg.Temporal.Enabled(), cfg.RunWorker)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("TEACHER_TURN_TIMEOUT_SECONDS", "15")
	t.Setenv("RUN_WORKER", "false")
	t.Setenv("TEACHER_HISTORY_MESSAGES", "12")
	cfg := LoadConfig(logger.Nop())
	if cfg.LLMProvider != "anthropic" || cfg.TurnTimeout != 15*time.Second || cfg.RunWorker || cfg.TurnHistory != 12 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestNewLLM(t *testing.T) {
	log := logger.Nop()
	if _, err := newLLM(log, "mistral"); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := newLLM(log, "openai"); err == nil {
		t.Fatalf("expected missing key error")
	}
	t.Setenv("ANTHROPIC_API_KEY", "k")
	if _, err := newLLM(log, "anthropic"); err != nil {
		t.Fatalf("anthropic: %v", err)
	}
}

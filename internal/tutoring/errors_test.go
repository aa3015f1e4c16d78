package tutoring

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMatching(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("turn: %w", newError(KindCompletion, "tutoring.complete", "completion failed", cause))
	if !errors.Is(err, ErrCompletion) {
		t.Fatalf("kind not matched through wrap")
	}
	if errors.Is(err, ErrMissingPlan) {
		t.Fatalf("matched wrong kind")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable")
	}
	if KindOf(err) != KindCompletion {
		t.Fatalf("KindOf=%q", KindOf(err))
	}
	if got := err.Error(); got != "turn: tutoring.complete: completion failed (completion)" {
		t.Fatalf("Error()=%q", got)
	}
	if UserMessage(newError(KindAuthentication, "", "", nil)) != "No estás autenticado. Por favor inicia sesión." {
		t.Fatalf("auth message changed")
	}
}

package tutoring

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies tutoring failures. Only the first three ever reach a caller.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindMissingPlan    ErrorKind = "missing_plan"
	KindCompletion     ErrorKind = "completion"
	KindMalformedState ErrorKind = "malformed_state"
	KindPersistence    ErrorKind = "persistence"
	KindSummaryParse   ErrorKind = "summary_parse"
)

// Error is the tutoring error wrapper.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Kind)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Kind)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrCompletion) works
// regardless of Op or Cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Cause == nil
}

var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrMissingPlan    = &Error{Kind: KindMissingPlan}
	ErrCompletion     = &Error{Kind: KindCompletion}
	ErrMalformedState = &Error{Kind: KindMalformedState}
	ErrPersistence    = &Error{Kind: KindPersistence}
	ErrSummaryParse   = &Error{Kind: KindSummaryParse}
)

func newError(kind ErrorKind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf extracts the tutoring error kind when available.
func KindOf(err error) ErrorKind {
	var te *Error
	if !errors.As(err, &te) {
		return ""
	}
	return te.Kind
}

// UserMessage is the text a student sees for a terminal turn error.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindAuthentication:
		return "No estás autenticado. Por favor inicia sesión."
	case KindMissingPlan:
		return "No se encontró un plan de estudio para este curso."
	case KindCompletion:
		return "No se pudo obtener una respuesta del tutor. Intenta de nuevo."
	default:
		return "Error interno."
	}
}

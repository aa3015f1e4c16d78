package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/yungbote/tutorbridge-backend/internal/pkg/errors"
	"github.com/yungbote/tutorbridge-backend/internal/platform/apierr"
	"github.com/yungbote/tutorbridge-backend/internal/tutoring"
)

func render(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondServiceError(c, "request_failed", err)

	var env ErrorEnvelope
	if jerr := json.Unmarshal(rec.Body.Bytes(), &env); jerr != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), jerr)
	}
	return rec.Code, env
}

func TestRespondServiceError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"apierr", apierr.Conflict("duplicate_code", pkgerrors.ErrConflict), http.StatusConflict, "duplicate_code"},
		{"auth", tutoring.ErrAuthentication, http.StatusUnauthorized, "authentication"},
		{"missing plan", tutoring.ErrMissingPlan, http.StatusNotFound, "missing_plan"},
		{"completion", tutoring.ErrCompletion, http.StatusBadGateway, "completion"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "request_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := render(t, tc.err)
			if status != tc.wantStatus || env.Error.Code != tc.wantCode {
				t.Fatalf("got %d/%q want %d/%q", status, env.Error.Code, tc.wantStatus, tc.wantCode)
			}
		})
	}
}

func TestTutoringErrorsCarryStudentText(t *testing.T) {
	_, env := render(t, tutoring.ErrMissingPlan)
	if env.Error.Message != tutoring.UserMessage(tutoring.ErrMissingPlan) {
		t.Fatalf("message=%q", env.Error.Message)
	}
	_, env = render(t, errors.New("db password=hunter2"))
	if env.Error.Message != "internal error" {
		t.Fatalf("internal error leaked: %q", env.Error.Message)
	}
}

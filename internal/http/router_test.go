package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	httpH "github.com/yungbote/tutorbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tutorbridge-backend/internal/http/middleware"
	"github.com/yungbote/tutorbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
	"github.com/yungbote/tutorbridge-backend/internal/services"
	"github.com/yungbote/tutorbridge-backend/internal/tutoring"
)

// stubAuth accepts "teacher" and "student" as bearer tokens.
type stubAuth struct {
	services.AuthService
}

func (stubAuth) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	switch token {
	case types.RoleTeacher, types.RoleStudent:
		return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: uuid.New(), SessionID: uuid.New(), Role: token}), nil
	}
	return nil, errors.New("invalid token")
}

func (stubAuth) GetAccessTTL() time.Duration { return time.Hour }

type stubCourses struct {
	services.CourseService
	created services.CourseInput
}

func (s *stubCourses) CreateCourse(_ context.Context, in services.CourseInput) (*types.Course, error) {
	s.created = in
	return &types.Course{ID: uuid.New(), Name: in.Name, Code: strings.ToUpper(in.Code)}, nil
}

type stubTutor struct {
	services.TutorService
	err error
}

func (s *stubTutor) SendMessage(_ context.Context, _ uuid.UUID, message string) (*services.TutorReply, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.TutorReply{Reply: "eco: " + message, Syllabus: []tutoring.TopicEntry{}}, nil
}

func newTestRouter(tutor *stubTutor, courses *stubCourses) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	return NewRouter(RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, stubAuth{}),
		CourseHandler:  httpH.NewCourseHandler(courses),
		TutorHandler:   httpH.NewTutorHandler(log, tutor),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})
}

func do(r *gin.Engine, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

func TestRouterAuthAndRoles(t *testing.T) {
	courses := &stubCourses{}
	r := newTestRouter(&stubTutor{}, courses)

	if rec := do(r, http.MethodGet, "/healthcheck", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthcheck=%d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/api/courses", "", `{"name":"x"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous=%d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/api/courses", "bogus", `{"name":"x"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token=%d", rec.Code)
	}
	if rec := do(r, http.MethodPost, "/api/courses", types.RoleStudent, `{"name":"x"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("student creating course=%d", rec.Code)
	}

	rec := do(r, http.MethodPost, "/api/courses", types.RoleTeacher, `{"name":"Física","code":"fis-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create=%d body=%s", rec.Code, rec.Body.String())
	}
	if courses.created.Name != "Física" {
		t.Fatalf("handler did not pass input: %+v", courses.created)
	}
	if rec := do(r, http.MethodPost, "/api/courses/"+uuid.NewString()+"/chat", types.RoleTeacher, `{"message":"hola"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("teacher chatting=%d", rec.Code)
	}
}

func TestRouterTutorChat(t *testing.T) {
	tutor := &stubTutor{}
	r := newTestRouter(tutor, &stubCourses{})
	target := "/api/courses/" + uuid.NewString() + "/chat"

	rec := do(r, http.MethodPost, target, types.RoleStudent, `{"message":"hola"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat=%d body=%s", rec.Code, rec.Body.String())
	}
	var reply services.TutorReply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil || reply.Reply != "eco: hola" {
		t.Fatalf("reply=%+v err=%v", reply, err)
	}

	if rec := do(r, http.MethodPost, "/api/courses/not-a-uuid/chat", types.RoleStudent, `{"message":"hola"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id=%d", rec.Code)
	}

	tutor.err = tutoring.ErrMissingPlan
	rec = do(r, http.MethodPost, target, types.RoleStudent, `{"message":"hola"}`)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "missing_plan" {
		t.Fatalf("missing plan=%d %s", rec.Code, rec.Body.String())
	}

	tutor.err = tutoring.ErrCompletion
	rec = do(r, http.MethodPost, target, types.RoleStudent, `{"message":"hola"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("completion=%d", rec.Code)
	}
}

func TestRouterRequestIDHeader(t *testing.T) {
	r := newTestRouter(&stubTutor{}, &stubCourses{})
	rec := do(r, http.MethodGet, "/healthcheck", "", "")
	if rec.Header().Get("X-Request-Id") == "" || rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("missing trace headers: %v", rec.Header())
	}
}

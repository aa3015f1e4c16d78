package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/tutorbridge-backend/internal/platform/ctxutil"
)

func TestTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("request id header=%q", rec.Header().Get("X-Request-Id"))
	}
	if seen == nil || seen.RequestID != "req-1" || seen.TraceID == "" {
		t.Fatalf("trace data=%+v", seen)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		rd   *ctxutil.RequestData
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"wrong role", &ctxutil.RequestData{UserID: uuid.New(), Role: "student"}, http.StatusForbidden},
		{"teacher", &ctxutil.RequestData{UserID: uuid.New(), Role: "teacher"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) {
				if tc.rd != nil {
					c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), tc.rd))
				}
				c.Next()
			})
			r.GET("/x", RequireRole("teacher"), func(c *gin.Context) { c.Status(http.StatusOK) })

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
			if rec.Code != tc.want {
				t.Fatalf("status=%d want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		target string
		header string
		want   string
	}{
		{"/x?token=q1", "", "q1"},
		{"/x", "Bearer h1", "h1"},
		{"/x", "bearer h2", "h2"},
		{"/x", "Basic zzz", ""},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, tc.target, nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}
		if got := extractTokenFromAll(c); got != tc.want {
			t.Fatalf("%s %q: got %q want %q", tc.target, tc.header, got, tc.want)
		}
	}
}

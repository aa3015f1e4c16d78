package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

const okBody = `{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Hola"},{"type":"output_text","text":" mundo"}]}],"usage":{"input_tokens":12,"output_tokens":3}}`

func testClient(t *testing.T, url string, temp *float64) *Client {
	t.Helper()
	c, err := NewClient(logger.Nop(), Config{
		APIKey:      "sk-test",
		BaseURL:     url,
		Model:       "gpt-test",
		Timeout:     5 * time.Second,
		MaxRetries:  2,
		Temperature: temp,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestGenerateText(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != responsesPath {
			t.Errorf("path=%s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth=%q", r.Header.Get("Authorization"))
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	out, err := testClient(t, srv.URL, nil).GenerateText(context.Background(), "  sys ", "hi")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != "Hola mundo" {
		t.Fatalf("out=%q", out)
	}
	if got.Model != "gpt-test" || got.Instructions != "sys" || len(got.Input) != 1 || got.Input[0].Content != "hi" {
		t.Fatalf("request=%+v", got)
	}
	if got.Temperature != nil {
		t.Fatalf("temperature sent when unset")
	}
}

func TestGenerateTextRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	if _, err := testClient(t, srv.URL, nil).GenerateText(context.Background(), "", "hi"); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls=%d want 2", n)
	}
}

func TestGenerateTextDropsRejectedTemperature(t *testing.T) {
	var withTemp, withoutTemp int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if strings.Contains(string(raw), `"temperature"`) {
			atomic.AddInt32(&withTemp, 1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`)
			return
		}
		atomic.AddInt32(&withoutTemp, 1)
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	temp := 0.7
	c := testClient(t, srv.URL, &temp)
	for i := 0; i < 2; i++ {
		if _, err := c.GenerateText(context.Background(), "", "hi"); err != nil {
			t.Fatalf("GenerateText #%d: %v", i, err)
		}
	}
	if withTemp != 1 || withoutTemp != 2 {
		t.Fatalf("withTemp=%d withoutTemp=%d", withTemp, withoutTemp)
	}
}

func TestGenerateTextClientErrorIsFinal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(t, srv.URL, nil).GenerateText(context.Background(), "", "hi")
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func TestGenerateTextEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"output":[{"type":"reasoning"}]}`)
	}))
	defer srv.Close()

	if _, err := testClient(t, srv.URL, nil).GenerateText(context.Background(), "", "hi"); err == nil {
		t.Fatalf("expected error for empty output")
	}
}

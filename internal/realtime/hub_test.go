package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	channel := uuid.New().String()

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventJobCreated})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventTopicSummaryReady})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventJobCreated {
		t.Fatalf("first event=%s", got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventTopicSummaryReady {
		t.Fatalf("second event=%s", got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("outbound still open after close")
	}
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventJobDone})

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventJobDone})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventJobDone {
		t.Fatalf("reconnect event=%s", got.Event)
	}
}

func TestSSEHubIgnoresOtherChannels(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, "mine")
	hub.Broadcast(SSEMessage{Channel: "theirs", Event: SSEEventJobDone})
	hub.Broadcast(SSEMessage{Event: SSEEventJobDone})
	select {
	case m := <-c.Outbound:
		t.Fatalf("unexpected message %+v", m)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSSEHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, "u1")
	hub.Broadcast(SSEMessage{Channel: "u1", Event: SSEEventTopicSummaryReady, Data: map[string]any{"topic_id": "t1"}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sse/stream", nil)
	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, c)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	hub.CloseClient(c)
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: TopicSummaryReady") || !strings.Contains(body, `"topic_id":"t1"`) {
		t.Fatalf("body=%q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%q", ct)
	}
}

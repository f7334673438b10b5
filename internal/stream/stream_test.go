package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vigil/internal/event"
	"vigil/internal/logging"
	"vigil/internal/metrics"
	"vigil/internal/session"
)

func testLogger() *logging.Logger {
	return logging.NewLoggerWithOutput(logging.NewLogBuffer(10), logging.LevelError, nil)
}

func TestHandlerStreamsNotifications(t *testing.T) {
	bus := event.NewBus[session.Notification](context.Background(), event.BusOptions{
		Name:     "test",
		Registry: &metrics.Registry{},
	})
	defer bus.Close()

	server := httptest.NewServer(NewHandler(bus, testLogger()))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	// Give the server loop a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	bus.Publish(session.Notification{ProjectID: "demo", OccurredAt: time.Now().UTC()})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var notification session.Notification
	if err := conn.ReadJSON(&notification); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if notification.ProjectID != "demo" {
		t.Fatalf("expected project demo, got %q", notification.ProjectID)
	}
}

func TestHandlerWithoutBus(t *testing.T) {
	server := httptest.NewServer(NewHandler(nil, testLogger()))
	defer server.Close()

	response, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer response.Body.Close()
	if response.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", response.StatusCode)
	}
}

func TestMetricsHandler(t *testing.T) {
	registry := &metrics.Registry{}
	registry.IncBatchesFlushed()

	server := httptest.NewServer(MetricsHandler(registry))
	defer server.Close()

	response, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer response.Body.Close()

	buffer := make([]byte, 4096)
	n, _ := response.Body.Read(buffer)
	body := string(buffer[:n])
	if !strings.Contains(body, "vigil_batches_flushed_total 1") {
		t.Fatalf("expected counter in body:\n%s", body)
	}
}

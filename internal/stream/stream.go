// Package stream serves agent observability endpoints for local tooling: a
// websocket feed of batch-ready notifications and the Prometheus counters.
package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"vigil/internal/event"
	"vigil/internal/logging"
	"vigil/internal/metrics"
	"vigil/internal/session"
)

const writeTimeout = 10 * time.Second

// Handler streams batch-ready notifications over a websocket connection.
type Handler struct {
	bus      *event.Bus[session.Notification]
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler for the session's notification bus.
// Only same-host origins are accepted; this endpoint is for local tooling.
func NewHandler(bus *event.Bus[session.Notification], logger *logging.Logger) *Handler {
	return &Handler{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
	}
}

func (handler *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler == nil || handler.bus == nil {
		http.Error(w, "notification stream unavailable", http.StatusInternalServerError)
		return
	}

	notifications, cancel := handler.bus.Subscribe()
	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		handler.logger.Warn("websocket upgrade failed", map[string]string{
			"error": err.Error(),
		})
		return
	}
	defer cancel()
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case notification, ok := <-notifications:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(notification); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// MetricsHandler exposes the registry in Prometheus text format.
func MetricsHandler(registry *metrics.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = registry.WritePrometheus(w)
	})
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/utils"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBuffer      = 100
	heartbeatInterval = 30 * time.Second
	writeTimeout      = 5 * time.Second
)

// streamMessage is one frame sent to websocket clients
type streamMessage struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventsStreamHandler streams bus events to websocket clients
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new event stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws. An optional types query parameter
// (comma separated) restricts the stream to those event types.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	types := events.AllEventTypes
	if filter := utils.ParseCSV(r.URL.Query().Get("types")); filter != nil {
		types = types[:0:0]
		for _, name := range filter {
			t, ok := events.ParseEventType(name)
			if !ok {
				http.Error(w, "unknown event type "+name, http.StatusBadRequest)
				return
			}
			types = append(types, t)
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead cancels ctx when they go away
	ctx := conn.CloseRead(r.Context())

	eventChan := make(chan *events.Event, streamBuffer)
	handler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	subs := make([]events.SubscriptionID, 0, len(types))
	for _, t := range types {
		subs = append(subs, h.eventBus.Subscribe(t, handler))
	}
	defer func() {
		for _, id := range subs {
			h.eventBus.Unsubscribe(id)
		}
	}()

	h.log.Info().Int("types", len(types)).Msg("Client connected to event stream")

	if err := h.write(ctx, conn, streamMessage{
		Type:      "connected",
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			msg := streamMessage{
				Type:      string(event.Type),
				Module:    event.Module,
				Timestamp: event.Timestamp.Format(time.RFC3339),
				Data:      event.Data,
			}
			if err := h.write(ctx, conn, msg); err != nil {
				h.log.Debug().Err(err).Msg("Event write failed, closing stream")
				return
			}

		case <-heartbeat.C:
			if err := h.write(ctx, conn, streamMessage{
				Type:      "heartbeat",
				Timestamp: time.Now().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}

func (h *EventsStreamHandler) write(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

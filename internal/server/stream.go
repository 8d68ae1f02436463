package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gardenDesignAi/internal/conversation"
	"gardenDesignAi/internal/vision"
)

const (
	sseHeartbeat   = 25 * time.Second
	wsReadLimit    = 2 * vision.MaxImageBytes
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: sameOrigin}

// sameOrigin accepts clients that send no Origin (non-browser tools) and browsers on the serving
// host. The socket rides on the session cookie, so other sites must not open it.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// wsMessage is one WebSocket frame in either direction.
type wsMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// chatSocket runs a chat over a socket: "message" frames carry a messageRequest and are answered
// with a "turn" frame, "ping" is answered with "pong".
func (h *handler) chatSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.Get(id); !ok {
		h.fail(w, conversation.ErrSessionNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	logger := h.logger.With(zap.String("session_id", id))
	logger.Info("websocket connected")
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error("websocket read failed", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "ping":
			h.send(conn, logger, "pong", nil)
		case "message":
			in, err := inboundFromFrame(msg.Data)
			if err != nil {
				h.send(conn, logger, "error", map[string]string{"error": err.Error()})
				continue
			}
			resp, err := h.turn(r, id, in)
			if err != nil {
				h.send(conn, logger, "error", map[string]string{"error": err.Error()})
				return
			}
			h.send(conn, logger, "turn", resp)
		default:
			h.send(conn, logger, "error", map[string]string{"error": fmt.Sprintf("unknown frame type %q", msg.Type)})
		}
	}
}

func (h *handler) send(conn *websocket.Conn, logger *zap.Logger, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to encode websocket frame", zap.Error(err), zap.String("type", msgType))
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(wsMessage{Type: msgType, Data: raw, Timestamp: time.Now().UTC()}); err != nil {
		logger.Error("failed to send websocket message", zap.Error(err), zap.String("type", msgType))
	}
}

func inboundFromFrame(data json.RawMessage) (conversation.Inbound, error) {
	var payload messageRequest
	if err := json.Unmarshal(data, &payload); err != nil {
		return conversation.Inbound{}, fmt.Errorf("invalid message frame: %w", err)
	}
	in := conversation.Inbound{Text: payload.Text}
	if payload.ImageBase64 == "" {
		return in, nil
	}
	img, err := decodeBase64Image(payload.ImageBase64, payload.ImageMIME)
	if err != nil {
		return conversation.Inbound{}, err
	}
	in.Attachments = []conversation.Attachment{img}
	return in, nil
}

// streamEvents sends conversation events as Server-Sent Events. The session query parameter
// narrows the stream to one session.
func (h *handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ch := h.events.Subscribe(r.URL.Query().Get("session"))
	defer h.events.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("failed to encode event", zap.Error(err))
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, payload)
			flusher.Flush()
		}
	}
}

// Package ws provides the WebSocket transport: connection lifecycle,
// frame decoding and dispatch into the session manager.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/developer5167/chatspotWebservices/internal/app/session"
	"github.com/developer5167/chatspotWebservices/internal/infra/config"
)

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 64
)

// Handler upgrades HTTP requests to WebSocket connections and runs the
// per-connection read loop.
type Handler struct {
	manager  *session.Manager
	config   *config.Config
	upgrader websocket.Upgrader
	validate *validator.Validate
}

// NewHandler creates a WebSocket handler backed by the session manager.
func NewHandler(manager *session.Manager, cfg *config.Config) *Handler {
	return &Handler{
		manager: manager,
		config:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Mobile clients connect from app webviews without an Origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		validate: validator.New(),
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Msgf("websocket upgrade failed: remote=%s error=%v", r.RemoteAddr, err)
		return
	}

	sink := newSink(wsConn)
	go sink.writePump()

	conn := h.manager.Registry().Register(sink)
	zlog.Info().Msgf("connection opened: conn=%s remote=%s", conn.ID, r.RemoteAddr)

	defer func() {
		h.manager.RemoveOnDisconnect(conn.ID)
		sink.close()
		zlog.Info().Msgf("connection closed: conn=%s", conn.ID)
	}()

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zlog.Warn().Msgf("read failed: conn=%s error=%v", conn.ID, err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			h.sendError(sink, conn.ID, errors.New("malformed frame"))
			continue
		}

		if err := h.dispatch(conn.ID, sink, f); err != nil {
			h.sendError(sink, conn.ID, err)
		}
	}
}

// dispatch routes one inbound frame. A returned error means the payload
// was malformed; the connection stays up.
func (h *Handler) dispatch(connID string, sink *wsSink, f frame) error {
	switch f.Event {
	case eventReadyToPair:
		var p readyToPairPayload
		if err := h.decode(f.Data, &p); err != nil {
			return err
		}
		h.manager.EnqueueOrMatch(connID, p.ID, p.Gender, p.InterestedIn)

	case eventChangePreference:
		var p changePreferencePayload
		if err := h.decode(f.Data, &p); err != nil {
			return err
		}
		h.manager.ChangePreference(connID, p.ID, p.NewInterestedIn)

	case eventJoin:
		var p chatRefPayload
		if err := h.decode(f.Data, &p); err != nil {
			return err
		}
		h.manager.Join(connID, p.ChatID)

	case eventSendMessage:
		var msg session.ChatMessage
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return errors.Wrap(err, "failed to decode payload")
		}
		if msg.ChatID == "" || msg.Message == "" {
			return errors.New("chatId and message are required")
		}
		h.manager.SendMessage(connID, msg)

	case eventTyping, eventTypingOff:
		var p typingPayload
		if err := h.decode(f.Data, &p); err != nil {
			return err
		}
		h.manager.Typing(connID, p.ChatID, p.SenderID, f.Event == eventTyping)

	case eventLeftChatRoom:
		var p chatRefPayload
		if err := h.decode(f.Data, &p); err != nil {
			return err
		}
		h.manager.LeftChat(connID, p.ChatID)

	case eventClosedApp:
		var p chatRefPayload
		if err := h.decode(f.Data, &p); err != nil {
			return err
		}
		h.manager.ClosedApp(connID, p.ChatID)

	case eventGetWaitingUsers:
		h.manager.BroadcastCounts()

	default:
		outEvent, ok := signalEvents[f.Event]
		if !ok {
			zlog.Debug().Msgf("ignoring unknown event: conn=%s event=%s", connID, f.Event)
			return nil
		}
		var p chatRefPayload
		if err := h.decode(f.Data, &p); err != nil {
			return err
		}
		h.manager.Signal(connID, p.ChatID, outEvent, f.Data)
	}

	return nil
}

func (h *Handler) decode(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to decode payload")
	}
	if err := h.validate.Struct(out); err != nil {
		return errors.Wrap(err, "payload validation failed")
	}
	return nil
}

func (h *Handler) sendError(sink *wsSink, connID string, err error) {
	zlog.Debug().Msgf("rejecting frame: conn=%s error=%v", connID, err)
	_ = sink.Send(session.EventError, h.config.Messages.DefaultError)
}

// wsSink serializes outbound frames through a single writer goroutine.
// Send never blocks the caller; a full queue drops the connection's
// frames rather than stalling the matchmaking path.
type wsSink struct {
	conn *websocket.Conn
	out  chan outFrame

	closeOnce sync.Once
	done      chan struct{}
}

func newSink(conn *websocket.Conn) *wsSink {
	return &wsSink{
		conn: conn,
		out:  make(chan outFrame, sendQueueSize),
		done: make(chan struct{}),
	}
}

// Send implements registry.Sink.
func (s *wsSink) Send(event string, payload any) error {
	select {
	case <-s.done:
		return errors.New("connection closed")
	default:
	}

	select {
	case s.out <- outFrame{Event: event, Data: payload}:
		return nil
	default:
		return errors.Newf("send queue full, dropping event: %s", event)
	}
}

func (s *wsSink) writePump() {
	for {
		select {
		case f := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(f); err != nil {
				s.close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}

func (s *wsSink) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

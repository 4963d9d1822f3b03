package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

const (
	streamSendBuffer   = 256
	streamWriteTimeout = 10 * time.Second
	streamPongTimeout  = 60 * time.Second
	streamPingInterval = 30 * time.Second
	streamReadLimit    = 4096
)

// Stream forwards notifications to websocket clients.
// Clients pick topics with ?topics=indexed,replay.progress; no topics means all of them.
type Stream struct {
	handler  *Handler
	upgrader websocket.Upgrader
	dropped  atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
}

// NewStream creates a websocket notification stream. allowedOrigins follows the CORS rules;
// an empty list accepts every origin.
func NewStream(h *Handler, allowedOrigins []string) *Stream {
	return &Stream{
		handler: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		done: make(chan struct{}),
	}
}

// Close disconnects every stream client.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		return slices.ContainsFunc(allowed, func(a string) bool { return strings.EqualFold(a, origin) })
	}
}

// Dropped returns how many notifications were discarded for slow clients.
func (s *Stream) Dropped() uint64 {
	return s.dropped.Load()
}

// ServeHTTP upgrades the connection and streams notifications until the client leaves.
// @Summary Notification stream
// @Description Websocket stream of indexer and replay notifications
// @Tags Stream
// @Param topics query string false "Comma separated topics (default all)"
// @Success 101 {object} events.Notification
// @Failure 400 {object} ErrorResponse "Unknown topic"
// @Router /stream [get]
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topics, err := parseTopics(r.URL.Query().Get("topics"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote an error response
		s.handler.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	send := make(chan events.Notification, streamSendBuffer)
	unsubscribe := s.handler.manager.Subscribe(func(n events.Notification) {
		select {
		case send <- n:
		default:
			s.dropped.Add(1)
		}
	}, topics...)

	s.handler.log.Infow("stream client connected", "remote", r.RemoteAddr, "topics", topics)

	closed := make(chan struct{})
	go s.readPump(conn, closed)
	s.writePump(conn, send, closed)

	unsubscribe()
	_ = conn.Close()
	s.handler.log.Infow("stream client disconnected", "remote", r.RemoteAddr)
}

// readPump discards client messages and tracks pongs; it closes closed when the client goes away.
func (s *Stream) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.handler.log.Debugw("stream read error", "error", err)
			}
			return
		}
	}
}

func (s *Stream) writePump(conn *websocket.Conn, send <-chan events.Notification, closed <-chan struct{}) {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteTimeout))
			return
		case n := <-send:
			data, err := json.Marshal(n)
			if err != nil {
				s.handler.log.Warnw("failed to encode notification", "topic", n.Topic, "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// parseTopics validates a comma separated topic list against the known topics.
func parseTopics(raw string) ([]events.Topic, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var topics []events.Topic
	for _, part := range strings.Split(raw, ",") {
		t := events.Topic(strings.TrimSpace(part))
		if t == "" {
			continue
		}
		if !slices.Contains(events.AllTopics, t) {
			return nil, fmt.Errorf("unknown topic %q", t)
		}
		topics = append(topics, t)
	}
	return topics, nil
}

package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gbrlmrll/mnemo/internal/config"
	"github.com/gbrlmrll/mnemo/internal/observability"
	"github.com/gbrlmrll/mnemo/internal/protocol"
)

// Server exposes the chat gateway: a websocket endpoint for clients plus
// health and metrics routes.
type Server struct {
	cfg      config.Config
	bot      *Bot
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func NewServer(cfg config.Config, bot *Bot, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		bot:     bot,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser connections from the same origin unless
				// explicitly opened up; non-browser clients omit Origin.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/chat/ws", s.handleChatWS)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"bot":        s.cfg.BotName,
		"store_mode": s.storeMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"bot":        s.cfg.BotName,
		"store_mode": s.storeMode(),
	})
}

func (s *Server) storeMode() string {
	if strings.TrimSpace(s.cfg.DatabaseURL) != "" {
		return "postgres"
	}
	return "file"
}

// handleChatWS serves one chat client. Messages are handled in read order on
// this goroutine, so turns for a given connection stay serialized while the
// extraction tasks spawned per turn run detached.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if s.bot == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "bot not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ActiveConnections.Inc()
		defer s.metrics.ActiveConnections.Dec()
	}

	wsc := &wsConn{conn: conn, metrics: s.metrics}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("chat ws read error: %v", err)
			}
			return
		}

		msg, err := protocol.ParseClientMessage(raw)
		if err != nil {
			code := "invalid_message"
			if errors.Is(err, protocol.ErrUnsupportedType) {
				code = "unsupported_type"
			}
			_ = wsc.send(protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   code,
				Detail: err.Error(),
			}, string(protocol.TypeErrorEvent))
			continue
		}

		if s.metrics != nil {
			s.metrics.WSMessages.WithLabelValues("in", string(protocol.TypeClientMessage)).Inc()
		}

		wsc.userID = msg.UserID
		s.bot.HandleMessage(r.Context(), Inbound{
			UserID:      msg.UserID,
			DisplayName: msg.DisplayName,
			Text:        msg.Text,
		}, wsc)
	}
}

// wsConn adapts one websocket connection to the Conn interface. The mutex
// serializes writes; gorilla allows only one concurrent writer.
type wsConn struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	userID  string
	metrics *observability.Metrics
}

func (c *wsConn) Reply(text string) error {
	return c.send(protocol.AssistantReply{
		Type:   protocol.TypeAssistantReply,
		TurnID: uuid.NewString(),
		UserID: c.userID,
		Text:   text,
	}, string(protocol.TypeAssistantReply))
}

func (c *wsConn) React(emoji string) error {
	return c.send(protocol.ReactionEvent{
		Type:   protocol.TypeReactionEvent,
		UserID: c.userID,
		Emoji:  emoji,
	}, string(protocol.TypeReactionEvent))
}

func (c *wsConn) Typing(active bool) error {
	return c.send(protocol.TypingEvent{
		Type:   protocol.TypeTypingEvent,
		UserID: c.userID,
		Active: active,
	}, string(protocol.TypeTypingEvent))
}

func (c *wsConn) send(v any, typ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.WSMessages.WithLabelValues("out", typ).Inc()
	}
	return c.conn.WriteJSON(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

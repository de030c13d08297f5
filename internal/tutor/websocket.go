package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ashureev/studymate/internal/agent"
	"github.com/ashureev/studymate/internal/domain"
	"github.com/ashureev/studymate/internal/identity"
	"github.com/ashureev/studymate/internal/store"
)

const maxMessageBytes = 64 << 10

// Asker answers one chat tutor question for a session.
type Asker interface {
	Ask(ctx context.Context, sessionID string, req agent.ChatRequest) (*agent.ChatResponse, error)
}

var _ Asker = (*agent.Service)(nil)

// ChatSocketHandler serves the chat tutor over a WebSocket.
type ChatSocketHandler struct {
	asker          Asker
	conns          *ConnManager
	allowedOrigins []string
	isDev          bool
}

// NewChatSocketHandler creates the /ws/chat handler.
func NewChatSocketHandler(asker Asker, conns *ConnManager, allowedOrigins []string, isDev bool) *ChatSocketHandler {
	return &ChatSocketHandler{
		asker:          asker,
		conns:          conns,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// inMessage is a client frame.
type inMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// outMessage is a server frame. Type is answer, error or pong.
type outMessage struct {
	Type    string            `json:"type"`
	Answer  string            `json:"answer,omitempty"`
	History []domain.ChatTurn `json:"history,omitempty"`
	Error   string            `json:"error,omitempty"`
	Kind    string            `json:"kind,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	ws.SetReadLimit(maxMessageBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "bye"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	connID := uuid.NewString()
	h.conns.Register(sessionID, connID, ws)
	defer h.conns.Unregister(sessionID, connID, ws)

	slog.Info("Chat socket opened", "session_id", sessionID, "conn_id", connID)
	h.readLoop(r.Context(), ws, sessionID)
	slog.Info("Chat socket ended", "session_id", sessionID, "conn_id", connID)
}

func (h *ChatSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *ChatSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg inMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.send(ctx, ws, outMessage{Type: "error", Error: "Invalid message.", Kind: domain.KindValidation})
			continue
		}

		switch msg.Type {
		case "ask":
			h.send(ctx, ws, h.answer(ctx, sessionID, msg.Content))
		case "ping":
			h.send(ctx, ws, outMessage{Type: "pong"})
		default:
			h.send(ctx, ws, outMessage{Type: "error", Error: "Unknown message type.", Kind: domain.KindValidation})
		}
	}
}

func (h *ChatSocketHandler) answer(ctx context.Context, sessionID, question string) outMessage {
	resp, err := h.asker.Ask(ctx, sessionID, agent.ChatRequest{Question: question})
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return outMessage{Type: "error", Error: "Your session has ended. Reload the page to start a new one.", Kind: "session_ended"}
		}
		kind, message := domain.Classify(err)
		if kind == domain.KindInternal {
			slog.Error("Chat tutor failed", "session_id", sessionID, "error", err)
		}
		return outMessage{Type: "error", Error: message, Kind: kind}
	}
	return outMessage{Type: "answer", Answer: resp.Answer, History: resp.History}
}

func (h *ChatSocketHandler) send(ctx context.Context, ws *websocket.Conn, msg outMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to encode socket message", "error", err)
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("Failed to write socket message", "type", msg.Type, "error", err)
	}
}

package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	sessionhandler "github.com/zhouzirui/tilawa/backend/internal/handler/session"
	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
	recitalservice "github.com/zhouzirui/tilawa/backend/internal/service/recital"
	"github.com/zhouzirui/tilawa/backend/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Inbound message types.
const (
	TypeTranscript = "transcript"
	TypeText       = "text"
	TypeFeedback   = "feedback"
	TypeJoin       = "join"
)

// Outbound message types.
const (
	TypeReply  = "reply"
	TypeJoined = "joined"
	TypeError  = "error"
)

// Inbound is a client frame. Data carries {"text": ...} for transcript and text.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is a server frame.
type Outbound struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type textPayload struct {
	Text string `json:"text"`
}

// ErrorPayload is the data of an error frame.
type ErrorPayload struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Handler 实时会话的WebSocket处理器
type Handler struct {
	orch     sessionhandler.Orchestrator
	registry *Registry
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(orch sessionhandler.Orchestrator, registry *Registry, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{
		orch:     orch,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.orch.Rejoin(r.Context(), sessionID, ""); err != nil {
		status, msg := sessionhandler.StatusFor(err)
		utils.RespondError(w, status, msg)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "sessionId", sessionID, "error", err)
		return
	}
	defer ws.Close()

	conn := h.registry.Register(sessionID, ws)
	defer h.registry.Unregister(conn.ID)

	log := h.logger.With("sessionId", sessionID, "connId", conn.ID)
	log.Infow("live connection opened")
	defer log.Infow("live connection closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if !h.join(ctx, conn) {
		return
	}

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go h.pingLoop(ctx, conn, log)

	var turns sync.WaitGroup
	defer turns.Wait()

	for {
		var msg Inbound
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnw("websocket read error", "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		if err := utils.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, http.StatusBadRequest, "invalid message")
			continue
		}

		switch msg.Type {
		case TypeJoin:
			h.join(ctx, conn)
		case TypeTranscript, TypeText, TypeFeedback:
			turns.Add(1)
			go func(msg Inbound) {
				defer turns.Done()
				h.runTurn(ctx, conn, msg, log)
			}(msg)
		default:
			h.sendError(conn, http.StatusBadRequest, "unsupported message type: "+msg.Type)
		}
	}
}

// join binds conn as the session's live transport.
func (h *Handler) join(ctx context.Context, conn *Conn) bool {
	if err := h.orch.Rejoin(ctx, conn.SessionID, conn.ID); err != nil {
		status, msg := sessionhandler.StatusFor(err)
		h.sendError(conn, status, msg)
		return false
	}
	h.send(conn, Outbound{Type: TypeJoined, Data: map[string]string{"connectionId": conn.ID}})
	return true
}

func (h *Handler) runTurn(ctx context.Context, conn *Conn, msg Inbound, log *zap.SugaredLogger) {
	var (
		env recital.ReplyEnvelope
		err error
	)
	switch msg.Type {
	case TypeFeedback:
		env, err = h.orch.RequestFeedback(ctx, conn.SessionID)
	default:
		var p textPayload
		if len(msg.Data) > 0 {
			if uerr := utils.Unmarshal(msg.Data, &p); uerr != nil {
				h.sendError(conn, http.StatusBadRequest, "invalid transcript payload")
				return
			}
		}
		source := recital.SourceSpeech
		if msg.Type == TypeText {
			source = recital.SourceText
		}
		env, err = h.orch.SubmitTranscript(ctx, conn.SessionID, p.Text, source)
	}

	if err != nil {
		status, text := sessionhandler.StatusFor(err)
		if !errors.Is(err, recitalservice.ErrSessionNotFound) {
			log.Errorw("live turn failed", "type", msg.Type, "error", err)
		}
		h.sendError(conn, status, text)
		return
	}
	h.send(conn, Outbound{Type: TypeReply, Data: env})
}

func (h *Handler) send(conn *Conn, msg Outbound) {
	msg.SessionID = conn.SessionID
	msg.Timestamp = time.Now().UnixMilli()
	if err := conn.Send(msg); err != nil {
		h.logger.Debugw("websocket write failed", "connId", conn.ID, "type", msg.Type, "error", err)
	}
}

func (h *Handler) sendError(conn *Conn, status int, message string) {
	h.send(conn, Outbound{Type: TypeError, Data: ErrorPayload{Status: status, Message: message}})
}

func (h *Handler) pingLoop(ctx context.Context, conn *Conn, log *zap.SugaredLogger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				log.Debugw("ping failed", "error", err)
				return
			}
		}
	}
}

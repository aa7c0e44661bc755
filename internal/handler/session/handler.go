package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
	recitalservice "github.com/zhouzirui/tilawa/backend/internal/service/recital"
	"github.com/zhouzirui/tilawa/backend/pkg/utils"
)

// Orchestrator is the turn API the handler drives.
type Orchestrator interface {
	StartSession(ctx context.Context, topic, language string) (recitalservice.StartResult, error)
	SubmitTranscript(ctx context.Context, sessionID, text string, source recital.Source) (recital.ReplyEnvelope, error)
	RequestFeedback(ctx context.Context, sessionID string) (recital.ReplyEnvelope, error)
	Rejoin(ctx context.Context, sessionID, transportRef string) error
}

// Remover ends sessions explicitly.
type Remover interface {
	Remove(id string) bool
}

// Handler 会话相关的HTTP处理器
type Handler struct {
	orch    Orchestrator
	remover Remover
	logger  *zap.SugaredLogger
}

// New 创建会话处理器
func New(orch Orchestrator, remover Remover, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{orch: orch, remover: remover, logger: logger}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/transcript", h.handleTranscript)
			r.Post("/feedback", h.handleFeedback)
			r.Post("/join", h.handleJoin)
			r.Delete("/", h.handleDelete)
		})
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Topic    string `json:"topic"`
		Language string `json:"language"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.orch.StartSession(r.Context(), payload.Topic, payload.Language)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text   string `json:"text"`
		Source string `json:"source"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	source, ok := parseSource(payload.Source)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "source must be speech or text")
		return
	}

	env, err := h.orch.SubmitTranscript(r.Context(), chi.URLParam(r, "sessionID"), payload.Text, source)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, env)
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	env, err := h.orch.RequestFeedback(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, env)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Rejoin(r.Context(), chi.URLParam(r, "sessionID"), ""); err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.remover.Remove(chi.URLParam(r, "sessionID")) {
		utils.RespondError(w, http.StatusNotFound, recitalservice.ErrSessionNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondServiceError maps orchestrator errors onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("request failed", "status", status, "error", err)
	}
	utils.RespondError(w, status, message)
}

// StatusFor returns the HTTP status and client-facing message for err.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, recitalservice.ErrSessionNotFound):
		return http.StatusNotFound, recitalservice.ErrSessionNotFound.Error()
	case errors.Is(err, recitalservice.ErrUnsupportedLanguage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, recitalservice.ErrGenerationFailed):
		return http.StatusBadGateway, recitalservice.ErrGenerationFailed.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func parseSource(s string) (recital.Source, bool) {
	switch recital.Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", recital.SourceSpeech:
		return recital.SourceSpeech, true
	case recital.SourceText:
		return recital.SourceText, true
	default:
		return "", false
	}
}

package language

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
	"github.com/zhouzirui/tilawa/backend/pkg/utils"
)

// Handler 语言目录的HTTP处理器
type Handler struct {
	catalog recital.Catalog
}

// New 创建语言处理器
func New(catalog recital.Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// RegisterRoutes 注册语言相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/languages", h.handleListLanguages)
	r.Get("/languages/{code}", h.handleGetLanguage)
}

func (h *Handler) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.catalog.List())
}

func (h *Handler) handleGetLanguage(w http.ResponseWriter, r *http.Request) {
	lang, ok := h.catalog.Find(chi.URLParam(r, "code"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "language not supported")
		return
	}
	utils.RespondJSON(w, http.StatusOK, lang)
}

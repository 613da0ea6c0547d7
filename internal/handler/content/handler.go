package content

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/consult/backend/internal/model/content"
	"github.com/zhouzirui/consult/backend/internal/service/vector"
	"github.com/zhouzirui/consult/backend/pkg/utils"
)

// Service 为内容检索门面需要暴露给HTTP层的能力
type Service interface {
	Search(ctx context.Context, query string, opts content.SearchOptions) []content.SearchResult
	StoreContent(ctx context.Context, text string, meta content.Metadata) (string, error)
	DeleteContent(ctx context.Context, id string) error
	FindSimilar(ctx context.Context, id string, limit int) ([]content.SearchResult, error)
	Stats() vector.Stats
}

// Handler 内容与搜索的HTTP处理器
type Handler struct {
	svc Service
}

// New 创建内容处理器
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册搜索与内容相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/search", h.handleSearch)
	r.Get("/search/stats", h.handleStats)
	r.Post("/content", h.handleStore)
	r.Delete("/content/{contentID}", h.handleDelete)
	r.Get("/content/{contentID}/similar", h.handleSimilar)
}

// handleSearch 搜索内容，结果永不为空时由兜底语料提供
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := content.SearchOptions{Category: q.Get("category"), Type: q.Get("type")}

	var err error
	if opts.Limit, err = parseInt(q.Get("limit")); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if raw := q.Get("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		opts = opts.WithThreshold(threshold)
	}

	results := h.svc.Search(r.Context(), q.Get("q"), opts)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"query":   q.Get("q"),
		"results": results,
	})
}

// handleStats 返回检索门面的运行模式
func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.svc.Stats())
}

// handleStore 写入内容
func (h *Handler) handleStore(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content  string           `json:"content"`
		Metadata content.Metadata `json:"metadata"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.svc.StoreContent(r.Context(), payload.Content, payload.Metadata)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleDelete 删除内容
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteContent(r.Context(), chi.URLParam(r, "contentID")); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSimilar 查找相似内容
func (h *Handler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	limit, err := parseInt(r.URL.Query().Get("limit"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	results, err := h.svc.FindSimilar(r.Context(), chi.URLParam(r, "contentID"), limit)
	if err != nil {
		utils.RespondAppError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

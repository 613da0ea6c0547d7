package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/consult/backend/internal/model/catalog"
	"github.com/zhouzirui/consult/backend/internal/model/chat"
	"github.com/zhouzirui/consult/backend/internal/service/recommend"
	"github.com/zhouzirui/consult/backend/pkg/utils"
)

// Recommender 根据查询与访客画像给出服务推荐
type Recommender interface {
	Recommend(query string, profile *chat.Profile) []recommend.Recommendation
}

// Handler 服务目录与推荐的HTTP处理器
type Handler struct {
	services catalog.Store
	recs     Recommender
}

// New 创建服务目录处理器
func New(services catalog.Store, recs Recommender) *Handler {
	return &Handler{
		services: services,
		recs:     recs,
	}
}

// RegisterRoutes 注册服务目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/services", h.handleListServices)
	r.Post("/recommendations", h.handleRecommend)
}

// handleListServices 列出所有服务
func (h *Handler) handleListServices(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.services.List())
}

// handleRecommend 计算推荐列表
func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query   string        `json:"query"`
		Profile *chat.Profile `json:"profile"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Query) == "" && payload.Profile == nil {
		utils.RespondError(w, http.StatusBadRequest, "query or profile is required")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"recommendations": h.recs.Recommend(payload.Query, payload.Profile),
	})
}

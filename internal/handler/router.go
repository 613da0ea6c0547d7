package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	catalogHandler "github.com/zhouzirui/consult/backend/internal/handler/catalog"
	"github.com/zhouzirui/consult/backend/internal/handler/chat"
	contentHandler "github.com/zhouzirui/consult/backend/internal/handler/content"
	middlewarePkg "github.com/zhouzirui/consult/backend/internal/middleware"
	"github.com/zhouzirui/consult/backend/internal/model/catalog"
	"github.com/zhouzirui/consult/backend/internal/resilience"
	chatService "github.com/zhouzirui/consult/backend/internal/service/chat"
	"github.com/zhouzirui/consult/backend/pkg/utils"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Catalog        catalog.Store
	Chat           *chatService.Service
	Content        contentHandler.Service
	APILimiter     *resilience.RateLimiter
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"chat":   deps.Chat.Stats(),
			"search": deps.Content.Stats(),
		})
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		chat.New(deps.Chat, deps.Logger).RegisterRoutes(api)

		// 推荐与检索按客户端IP限流，聊天消息由会话服务自行限流
		api.Group(func(limited chi.Router) {
			if deps.APILimiter != nil {
				limited.Use(middlewarePkg.RateLimit(deps.APILimiter))
			}
			catalogHandler.New(deps.Catalog, deps.Chat).RegisterRoutes(limited)
			contentHandler.New(deps.Content).RegisterRoutes(limited)
		})
	})

	return r
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/zhouzirui/consult/backend/internal/analytics"
	"github.com/zhouzirui/consult/backend/internal/config"
	"github.com/zhouzirui/consult/backend/internal/handler"
	"github.com/zhouzirui/consult/backend/internal/model/catalog"
	"github.com/zhouzirui/consult/backend/internal/resilience"
	"github.com/zhouzirui/consult/backend/internal/service/ai"
	"github.com/zhouzirui/consult/backend/internal/service/chat"
	"github.com/zhouzirui/consult/backend/internal/service/embedding"
	"github.com/zhouzirui/consult/backend/internal/service/recommend"
	"github.com/zhouzirui/consult/backend/internal/service/response"
	"github.com/zhouzirui/consult/backend/internal/service/vector"
	"github.com/zhouzirui/consult/backend/internal/store/document"
	"github.com/zhouzirui/consult/backend/internal/store/index"
	"github.com/zhouzirui/consult/backend/internal/store/session"
	"github.com/zhouzirui/consult/backend/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 配置加载前先用默认的生产日志
	bootstrap := zap.Must(zap.NewProduction())
	zap.ReplaceGlobals(bootstrap)

	// .env 缺失时仅使用系统环境变量
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatal("failed to load configuration", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		bootstrap.Fatal("failed to build logger", zap.String("level", cfg.LogLevel), zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	if envErr != nil {
		logger.Info("no .env file loaded, using system environment", zap.Error(envErr))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	monitor := resilience.NewMonitor(logger.Named("monitor"), reg)

	services := catalog.NewMemoryStore(catalog.Seed())
	facade, closeDocs := newFacade(ctx, cfg, logger, monitor)
	defer closeDocs()

	synth := response.NewSynthesizer(response.Config{
		CompletionEnabled: cfg.AI.CompletionEnabled,
		Timeout:           cfg.Server.RequestTimeout,
		Retry:             resilience.DefaultRetryConfig(),
	}, newCompleter(ctx, cfg.AI, logger), logger, monitor)

	sessions := session.NewMemoryStore(cfg.Chat.SessionTTL, logger)
	sessions.Start(ctx, cfg.Chat.SweepInterval)
	defer func() { _ = sessions.Close() }()

	chatLimiter := resilience.NewRateLimiter(resilience.LimiterConfig{
		Limit:         cfg.Chat.RateLimit,
		Window:        cfg.Chat.RateWindow,
		BlockDuration: cfg.Chat.RateBlock,
	})
	apiLimiter := resilience.NewRateLimiter(resilience.DefaultLimiterConfig())
	limiterDone := []<-chan struct{}{
		resilience.StartSweeper(ctx, "chat-limiter", cfg.Chat.SweepInterval, logger, chatLimiter.Sweep),
		resilience.StartSweeper(ctx, "api-limiter", cfg.Chat.SweepInterval, logger, apiLimiter.Sweep),
	}

	events := analytics.NewLogSink(logger, 256)
	defer func() { _ = events.Close() }()

	chatSvc, err := chat.NewService(chat.Config{MaxMessageLength: cfg.Chat.MaxMessageLength}, chat.Deps{
		Store:       sessions,
		Synthesizer: synth,
		Sanitizer:   utils.TextSanitizer{},
		Limiter:     chatLimiter,
		Recommender: recommend.NewScorer(services),
		Searcher:    facade,
		Analytics:   events,
		Logger:      logger,
		Monitor:     monitor,
	})
	if err != nil {
		logger.Fatal("failed to build chat service", zap.Error(err))
	}

	router := handler.NewRouter(handler.Deps{
		Catalog:        services,
		Chat:           chatSvc,
		Content:        facade,
		APILimiter:     apiLimiter,
		Gatherer:       reg,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	if err := startServer(ctx, cfg.Server, router, logger); err != nil {
		logger.Error("server error", zap.Error(err))
	}
	stop()
	for _, done := range limiterDone {
		<-done
	}
	logger.Info("shutdown complete")
}

func newLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = lvl
	return zapCfg.Build()
}

// newCompleter 在凭证齐全且开启补全时创建 Ark 补全服务，否则返回 nil 走模板回复
func newCompleter(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) response.Completer {
	if !cfg.CompletionEnabled {
		logger.Info("completion disabled, replies use templates")
		return nil
	}
	if !cfg.Enabled() {
		logger.Warn("AI_COMPLETION_ENABLED set but Ark credentials are missing, replies use templates")
		return nil
	}

	svc, err := ai.NewService(ctx, cfg, logger)
	if err != nil {
		logger.Warn("failed to initialize completion service, replies use templates", zap.Error(err))
		return nil
	}
	logger.Info("completion service initialized", zap.String("model", svc.Model()))
	return svc
}

// newFacade 按配置装配向量检索门面，返回的函数负责关闭文档存储
func newFacade(ctx context.Context, cfg *config.Config, logger *zap.Logger, monitor *resilience.Monitor) (*vector.Facade, func()) {
	opts := vector.Options{
		Dimensions: cfg.Embedding.Dimensions,
		CacheTTL:   cfg.Search.CacheTTL,
		Timeout:    cfg.Server.RequestTimeout,
		Logger:     logger,
		Monitor:    monitor,
	}
	closeDocs := func() {}

	if cfg.Embedding.Enabled() {
		client, err := embedding.NewClient(cfg.Embedding, logger)
		if err != nil {
			logger.Warn("embedding provider unavailable, using local embeddings", zap.Error(err))
		} else {
			opts.Embedder = client
		}
	}
	if cfg.Search.IndexEnabled {
		opts.Index = index.NewMemoryIndex()
	}
	if cfg.Search.DBPath != "" {
		docs, err := document.NewSQLite(cfg.Search.DBPath)
		if err != nil {
			logger.Warn("document store unavailable", zap.String("path", cfg.Search.DBPath), zap.Error(err))
		} else {
			opts.Documents = docs
			closeDocs = func() {
				if err := docs.Close(); err != nil {
					logger.Warn("failed to close document store", zap.Error(err))
				}
			}
		}
	}

	return vector.NewFacade(ctx, opts), closeDocs
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("consult backend listening", zap.String("addr", serverCfg.Addr))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

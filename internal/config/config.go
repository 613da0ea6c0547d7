package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Embedding EmbeddingConfig
	Chat      ChatConfig
	Search    SearchConfig
	LogLevel  string
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	embedding, err := loadEmbeddingConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	search, err := loadSearchConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Embedding: embedding,
		Chat:      chat,
		Search:    search,
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址与请求超时。
func loadServerConfig() (ServerConfig, error) {
	timeout, err := parseSecondsEnv("REQUEST_TIMEOUT_SECONDS", 30)
	if err != nil {
		return ServerConfig{}, err
	}
	origins := splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, RequestTimeout: timeout, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, RequestTimeout: timeout, AllowedOrigins: origins}, nil
}

// AIConfig 描述补全模型（Ark）相关配置。
type AIConfig struct {
	APIKey            string
	AccessKey         string
	SecretKey         string
	Model             string
	BaseURL           string
	Region            string
	Temperature       *float64
	TopP              *float64
	MaxTokens         *int
	CompletionEnabled bool
	HistoryLimit      int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	completion, err := parseBoolEnv("AI_COMPLETION_ENABLED", false)
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 10
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		historyLimit = max(*override, 1)
	}

	return AIConfig{
		APIKey:            strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:         strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:         strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:             strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:           getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:            getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:       temperature,
		TopP:              topP,
		MaxTokens:         maxTokens,
		CompletionEnabled: completion,
		HistoryLimit:      historyLimit,
	}, nil
}

// EmbeddingConfig 描述 OpenAI 兼容的向量化服务。
type EmbeddingConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	MaxRetries int
}

// Enabled 表示是否配置了向量化服务。
func (c EmbeddingConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

func loadEmbeddingConfig() (EmbeddingConfig, error) {
	dims := 1536
	if override, err := parseOptionalIntEnv("EMBEDDING_DIMENSIONS"); err != nil {
		return EmbeddingConfig{}, err
	} else if override != nil {
		if *override < 8 {
			return EmbeddingConfig{}, fmt.Errorf("invalid EMBEDDING_DIMENSIONS value %d: must be at least 8", *override)
		}
		dims = *override
	}

	retries := 2
	if override, err := parseOptionalIntEnv("EMBEDDING_MAX_RETRIES"); err != nil {
		return EmbeddingConfig{}, err
	} else if override != nil {
		retries = max(*override, 0)
	}

	return EmbeddingConfig{
		APIKey:     strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY")),
		BaseURL:    getEnvOrDefault("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		Model:      getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		Dimensions: dims,
		MaxRetries: retries,
	}, nil
}

// ChatConfig 描述会话生命周期与限流配置。
type ChatConfig struct {
	SessionTTL       time.Duration
	SweepInterval    time.Duration
	RateLimit        int
	RateWindow       time.Duration
	RateBlock        time.Duration
	MaxMessageLength int
}

func loadChatConfig() (ChatConfig, error) {
	ttl, err := parseSecondsEnv("CHAT_SESSION_TTL_SECONDS", 30*60)
	if err != nil {
		return ChatConfig{}, err
	}
	sweep, err := parseSecondsEnv("CHAT_SWEEP_INTERVAL_SECONDS", 60)
	if err != nil {
		return ChatConfig{}, err
	}
	window, err := parseSecondsEnv("CHAT_RATE_WINDOW_SECONDS", 60*60)
	if err != nil {
		return ChatConfig{}, err
	}
	block, err := parseSecondsEnv("CHAT_RATE_BLOCK_SECONDS", 60*60)
	if err != nil {
		return ChatConfig{}, err
	}

	limit := 20
	if override, err := parseOptionalIntEnv("CHAT_RATE_LIMIT"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		limit = max(*override, 1)
	}

	maxLen := 1000
	if override, err := parseOptionalIntEnv("CHAT_MAX_MESSAGE_LENGTH"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		maxLen = max(*override, 1)
	}

	return ChatConfig{
		SessionTTL:       ttl,
		SweepInterval:    sweep,
		RateLimit:        limit,
		RateWindow:       window,
		RateBlock:        block,
		MaxMessageLength: maxLen,
	}, nil
}

// SearchConfig 描述向量检索的后端配置。
type SearchConfig struct {
	DBPath       string
	IndexEnabled bool
	CacheTTL     time.Duration
}

func loadSearchConfig() (SearchConfig, error) {
	indexEnabled, err := parseBoolEnv("SEARCH_INDEX_ENABLED", true)
	if err != nil {
		return SearchConfig{}, err
	}
	cacheTTL, err := parseSecondsEnv("SEARCH_CACHE_TTL_SECONDS", 5*60)
	if err != nil {
		return SearchConfig{}, err
	}

	return SearchConfig{
		// 留空表示不启用文档存储。
		DBPath:       strings.TrimSpace(os.Getenv("SEARCH_DB_PATH")),
		IndexEnabled: indexEnabled,
		CacheTTL:     cacheTTL,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseSecondsEnv 读取以秒为单位的正整数，缺省时使用 defaultSeconds。
func parseSecondsEnv(key string, defaultSeconds int) (time.Duration, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return time.Duration(defaultSeconds) * time.Second, nil
	}
	if *val <= 0 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *val)
	}
	return time.Duration(*val) * time.Second, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

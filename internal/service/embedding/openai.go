// Package embedding turns text into vectors, either through an
// OpenAI-compatible API or a deterministic local hash.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/zhouzirui/consult/backend/internal/apperr"
	"github.com/zhouzirui/consult/backend/internal/config"
	"github.com/zhouzirui/consult/backend/internal/resilience"
)

const cacheTTL = 24 * time.Hour

// Client calls the embeddings endpoint of an OpenAI-compatible provider.
type Client struct {
	client     openai.Client
	modelName  string
	dimensions int
	retry      resilience.RetryConfig
	cache      *resilience.Cache[string, []float32]
	logger     *zap.Logger
}

// NewClient builds a client from cfg. It fails when cfg is not enabled.
func NewClient(cfg config.EmbeddingConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("embedding provider not configured: EMBEDDING_API_KEY and EMBEDDING_MODEL are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are handled by resilience.Retry so errors get classified once
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	return &Client{
		client:     openai.NewClient(opts...),
		modelName:  cfg.Model,
		dimensions: cfg.Dimensions,
		retry:      retry,
		cache:      resilience.NewCache[string, []float32](cacheTTL),
		logger:     logger.Named("embedding"),
	}, nil
}

// Dimensions returns the configured vector size.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Embed returns the embedding for text, served from cache when possible.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("cannot embed empty text")
	}
	if cached, ok := c.cache.Get(text); ok {
		return cached, nil
	}

	vector, err := resilience.Retry(ctx, c.retry, c.embedOnce(text))
	if err != nil {
		return nil, apperr.Classify(err)
	}

	c.cache.Set(text, vector)
	return vector, nil
}

func (c *Client) embedOnce(text string) func(ctx context.Context) ([]float32, error) {
	return func(ctx context.Context) ([]float32, error) {
		params := openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(c.modelName),
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		}
		if c.dimensions > 0 && strings.HasPrefix(c.modelName, "text-embedding-3") {
			params.Dimensions = openai.Int(int64(c.dimensions))
		}

		resp, err := c.client.Embeddings.New(ctx, params)
		if err != nil {
			c.logger.Warn("embedding request failed", zap.String("model", c.modelName), zap.Error(err))
			return nil, apperr.Classify(err)
		}
		if len(resp.Data) == 0 {
			return nil, apperr.Unknown(nil, "no embedding returned")
		}

		raw := resp.Data[0].Embedding
		vector := make([]float32, len(raw))
		for i, v := range raw {
			vector[i] = float32(v)
		}
		return vector, nil
	}
}

// Package vector hides the embedding provider, vector index and document
// store behind one search facade that keeps answering when any of them is
// missing.
package vector

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/consult/backend/internal/apperr"
	"github.com/zhouzirui/consult/backend/internal/model/content"
	"github.com/zhouzirui/consult/backend/internal/resilience"
	"github.com/zhouzirui/consult/backend/internal/service/embedding"
)

// Mode describes which backends the facade can use.
type Mode string

const (
	ModeFull     Mode = "full"
	ModeDegraded Mode = "degraded"
	ModeOffline  Mode = "offline"
)

const component = "vector"

// Embedder converts text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index stores vectors and answers nearest-neighbour queries.
type Index interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error
	Query(ctx context.Context, vector []float32, topK int, filter content.Filter) ([]content.Match, error)
	Delete(ctx context.Context, id string) error
}

// Documents stores full content records. Get returns nil for unknown ids.
type Documents interface {
	Upsert(ctx context.Context, rec content.Record) error
	Get(ctx context.Context, id string) (*content.Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]content.Record, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the facade's collaborators. Every collaborator is optional.
// Timeout bounds each individual backend call.
type Options struct {
	Embedder   Embedder
	Index      Index
	Documents  Documents
	Dimensions int
	CacheTTL   time.Duration
	Timeout    time.Duration
	Logger     *zap.Logger
	Monitor    *resilience.Monitor
}

const (
	defaultTimeout = 30 * time.Second

	// keyword rescoring needs a wider candidate pool than the result limit
	pseudoPoolFactor = 4
	minPseudoPool    = 50
)

// Stats summarizes the facade state.
type Stats struct {
	Mode         Mode `json:"mode"`
	CachedQuery  int  `json:"cachedQueries"`
	FallbackDocs int  `json:"fallbackDocuments"`
	HasIndex     bool `json:"hasIndex"`
	HasDocuments bool `json:"hasDocuments"`
	HasEmbedder  bool `json:"hasEmbedder"`
}

// Facade is the single entry point for content storage and search.
type Facade struct {
	mode      Mode
	embedder  Embedder
	pseudo    *embedding.Pseudo
	index     Index
	documents Documents
	cache     *resilience.Cache[string, []content.SearchResult]
	timeout   time.Duration
	logger    *zap.Logger
	monitor   *resilience.Monitor
}

// NewFacade probes the collaborators that support Ping and fixes the mode.
func NewFacade(ctx context.Context, opts Options) *Facade {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("vector")
	monitor := opts.Monitor
	if monitor == nil {
		monitor = resilience.NewMonitor(logger, nil)
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	f := &Facade{
		embedder:  opts.Embedder,
		pseudo:    embedding.NewPseudo(opts.Dimensions),
		index:     opts.Index,
		documents: opts.Documents,
		cache:     resilience.NewCache[string, []content.SearchResult](cacheTTL),
		timeout:   timeout,
		logger:    logger,
		monitor:   monitor,
	}

	if f.index != nil && !reachable(ctx, f.index) {
		logger.Warn("vector index unreachable, disabling", zap.Bool("degraded", true))
		f.index = nil
	}
	if f.documents != nil && !reachable(ctx, f.documents) {
		logger.Warn("document store unreachable, disabling", zap.Bool("degraded", true))
		f.documents = nil
	}

	switch {
	case f.index != nil && f.documents != nil:
		f.mode = ModeFull
		f.reindex(ctx)
	case f.index != nil || f.documents != nil:
		f.mode = ModeDegraded
	default:
		f.mode = ModeOffline
	}
	logger.Info("vector facade ready",
		zap.String("mode", string(f.mode)),
		zap.Bool("embedder", f.embedder != nil))
	return f
}

// reindex loads the persisted records into the index, which does not
// survive a restart on its own.
func (f *Facade) reindex(ctx context.Context) {
	lctx, cancel := f.bounded(ctx)
	records, err := f.documents.List(lctx)
	cancel()
	if err != nil {
		f.monitor.Degraded(component, "reindex", zap.Error(err))
		return
	}

	restored := 0
	for _, rec := range records {
		if len(rec.Vector) == 0 {
			continue
		}
		uctx, cancel := f.bounded(ctx)
		err := f.index.Upsert(uctx, rec.ID, rec.Vector, indexMetadata(rec))
		cancel()
		if err != nil {
			f.logger.Warn("skipping record during reindex", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		restored++
	}
	if len(records) > 0 {
		f.logger.Info("index rebuilt from document store", zap.Int("records", len(records)), zap.Int("indexed", restored))
	}
}

func (f *Facade) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, f.timeout)
}

func reachable(ctx context.Context, backend any) bool {
	p, ok := backend.(pinger)
	if !ok {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.Ping(ctx) == nil
}

// Mode returns the mode computed at construction.
func (f *Facade) Mode() Mode {
	return f.mode
}

// Stats reports the facade state.
func (f *Facade) Stats() Stats {
	return Stats{
		Mode:         f.mode,
		CachedQuery:  f.cache.Len(),
		FallbackDocs: len(fallbackCorpus),
		HasIndex:     f.index != nil,
		HasDocuments: f.documents != nil,
		HasEmbedder:  f.embedder != nil,
	}
}

// StoreContent embeds and persists text. A failing write to an available
// backend is returned as an error; a missing backend is only logged.
func (f *Facade) StoreContent(ctx context.Context, text string, meta content.Metadata) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Validation("content must not be empty")
	}
	if f.mode == ModeOffline {
		return "", apperr.Network(nil, "no content backend is available")
	}

	defer f.monitor.Time("vector.store")()

	vector, _ := f.embed(ctx, text, "store")
	rec := content.Record{
		ID:        uuid.NewString(),
		Type:      meta.Type,
		Source:    meta.Source,
		Title:     meta.Title,
		Category:  meta.Category,
		Vector:    vector,
		Content:   text,
		Metadata:  maps.Clone(meta.Extra),
		CreatedAt: time.Now(),
	}

	wctx, cancel := f.bounded(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(wctx)
	if f.index != nil {
		g.Go(func() error {
			if err := f.index.Upsert(gctx, rec.ID, rec.Vector, indexMetadata(rec)); err != nil {
				return fmt.Errorf("index upsert: %w", err)
			}
			return nil
		})
	}
	if f.documents != nil {
		g.Go(func() error {
			if err := f.documents.Upsert(gctx, rec); err != nil {
				return fmt.Errorf("document upsert: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		f.rollback(rec.ID)
		return "", apperr.Classify(err).With("id", rec.ID)
	}

	if f.mode == ModeDegraded {
		f.monitor.Degraded(component, "store", zap.String("id", rec.ID), zap.String("missing", f.missing()))
	}
	f.cache.Clear()
	f.logger.Info("content stored", zap.String("id", rec.ID), zap.String("type", rec.Type), zap.String("category", rec.Category))
	return rec.ID, nil
}

// rollback removes a partially written record from both stores.
func (f *Facade) rollback(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if f.index != nil {
		_ = f.index.Delete(ctx, id)
	}
	if f.documents != nil {
		_ = f.documents.Delete(ctx, id)
	}
}

// DeleteContent removes id from every available backend. It only fails when
// no backend could delete it.
func (f *Facade) DeleteContent(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("id must not be empty")
	}

	ctx, cancel := f.bounded(ctx)
	defer cancel()

	var failures []error
	attempted := 0
	if f.index != nil {
		attempted++
		if err := f.index.Delete(ctx, id); err != nil {
			failures = append(failures, fmt.Errorf("index delete: %w", err))
		}
	}
	if f.documents != nil {
		attempted++
		if err := f.documents.Delete(ctx, id); err != nil {
			failures = append(failures, fmt.Errorf("document delete: %w", err))
		}
	}
	f.cache.Clear()

	switch {
	case attempted > 0 && len(failures) == attempted:
		return apperr.Classify(failures[0]).With("id", id)
	case len(failures) > 0:
		f.monitor.Degraded(component, "delete", zap.String("id", id), zap.Errors("errors", failures))
	case f.mode != ModeFull:
		f.monitor.Degraded(component, "delete", zap.String("id", id), zap.String("missing", f.missing()))
	}
	return nil
}

// Search ranks stored content against query. It never fails: when the live
// path yields nothing the fallback corpus is searched instead.
func (f *Facade) Search(ctx context.Context, query string, opts content.SearchOptions) []content.SearchResult {
	opts = opts.Normalize()
	key := cacheKey(query, opts)
	if cached, ok := f.cache.Get(key); ok {
		return cloneResults(cached)
	}

	stop := f.monitor.Time("vector.search")
	defer stop()

	results := f.searchLive(ctx, query, opts)
	if len(results) == 0 {
		results = searchFallback(query, opts)
	}

	f.cache.Set(key, results)
	return cloneResults(results)
}

func (f *Facade) searchLive(ctx context.Context, query string, opts content.SearchOptions) []content.SearchResult {
	if f.index == nil || strings.TrimSpace(query) == "" {
		if f.mode != ModeFull {
			f.monitor.Degraded(component, "search", zap.String("mode", string(f.mode)))
		}
		return nil
	}

	vector, pseudo := f.embed(ctx, query, "search")
	topK := opts.Limit
	if pseudo {
		topK = max(opts.Limit*pseudoPoolFactor, minPseudoPool)
	}

	qctx, cancel := f.bounded(ctx)
	matches, err := f.index.Query(qctx, vector, topK, content.Filter{Category: opts.Category, Type: opts.Type})
	cancel()
	if err != nil {
		f.monitor.Degraded(component, "search", zap.Error(err))
		return nil
	}

	threshold := opts.MinSimilarity()
	results := make([]content.SearchResult, 0, len(matches))
	for _, m := range matches {
		similarity := clamp01(m.Score)
		if pseudo {
			// hashed vectors only capture word overlap, so score by it directly
			similarity = max(similarity, keywordOverlap(query, matchText(m)))
		}
		if similarity < threshold {
			continue
		}
		results = append(results, f.hydrate(ctx, m, similarity))
	}
	sortResults(results)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

// hydrate fills a result from the document store when available, else from
// the index metadata.
func (f *Facade) hydrate(ctx context.Context, m content.Match, similarity float64) content.SearchResult {
	result := content.SearchResult{ID: m.ID, Similarity: similarity, Metadata: maps.Clone(m.Metadata)}
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	if text, ok := result.Metadata["content"].(string); ok {
		result.Content = text
		delete(result.Metadata, "content")
	}

	if f.documents != nil {
		gctx, cancel := f.bounded(ctx)
		rec, err := f.documents.Get(gctx, m.ID)
		cancel()
		if err != nil {
			f.monitor.Degraded(component, "hydrate", zap.String("id", m.ID), zap.Error(err))
		} else if rec != nil {
			result.Content = rec.Content
			maps.Copy(result.Metadata, rec.Metadata)
		}
	}
	return result
}

// FindSimilar returns content similar to the stored record id.
func (f *Facade) FindSimilar(ctx context.Context, id string, limit int) ([]content.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	if f.documents == nil {
		f.monitor.Degraded(component, "find_similar", zap.String("id", id), zap.String("missing", f.missing()))
		return []content.SearchResult{}, nil
	}

	gctx, cancel := f.bounded(ctx)
	rec, err := f.documents.Get(gctx, id)
	cancel()
	if err != nil {
		f.monitor.Degraded(component, "find_similar", zap.String("id", id), zap.Error(err))
		return []content.SearchResult{}, nil
	}
	if rec == nil {
		return nil, apperr.NotFound("content %s not found", id)
	}
	if len(rec.Vector) == 0 {
		return nil, apperr.NotFound("content %s has no stored embedding", id)
	}
	if f.index == nil {
		f.monitor.Degraded(component, "find_similar", zap.String("id", id), zap.String("missing", f.missing()))
		return []content.SearchResult{}, nil
	}

	qctx, cancel := f.bounded(ctx)
	matches, err := f.index.Query(qctx, rec.Vector, limit+1, content.Filter{})
	cancel()
	if err != nil {
		f.monitor.Degraded(component, "find_similar", zap.String("id", id), zap.Error(err))
		return []content.SearchResult{}, nil
	}

	results := make([]content.SearchResult, 0, limit)
	for _, m := range matches {
		if m.ID == id {
			continue
		}
		results = append(results, f.hydrate(ctx, m, clamp01(m.Score)))
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// embed prefers the provider and falls back to the local pseudo-embedding.
// The flag reports whether the fallback was used.
func (f *Facade) embed(ctx context.Context, text, op string) ([]float32, bool) {
	if f.embedder != nil {
		ctx, cancel := f.bounded(ctx)
		vector, err := f.embedder.Embed(ctx, text)
		cancel()
		if err == nil && len(vector) > 0 {
			return vector, false
		}
		f.monitor.Degraded(component, "embed", zap.String("during", op), zap.Error(err))
	}
	return f.pseudo.Vector(text), true
}

func (f *Facade) missing() string {
	var parts []string
	if f.index == nil {
		parts = append(parts, "index")
	}
	if f.documents == nil {
		parts = append(parts, "documents")
	}
	return strings.Join(parts, ",")
}

func indexMetadata(rec content.Record) map[string]any {
	return map[string]any{
		"title":    rec.Title,
		"type":     rec.Type,
		"source":   rec.Source,
		"category": rec.Category,
		"content":  rec.Content,
	}
}

// matchText is the searchable text the index keeps for a match.
func matchText(m content.Match) string {
	title, _ := m.Metadata["title"].(string)
	text, _ := m.Metadata["content"].(string)
	return title + " " + text
}

// keywordOverlap is the share of distinct query terms found in text. Terms
// shorter than three runes are ignored unless nothing else is left.
func keywordOverlap(query, text string) float64 {
	terms := embedding.Terms(query)
	seen := make(map[string]struct{}, len(terms))
	var significant []string
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if utf8.RuneCountInString(t) >= 3 {
			significant = append(significant, t)
		}
	}
	if len(significant) == 0 {
		significant = make([]string, 0, len(seen))
		for t := range seen {
			significant = append(significant, t)
		}
	}
	if len(significant) == 0 {
		return 0
	}

	haystack := strings.ToLower(text)
	hits := 0
	for _, t := range significant {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(significant))
}

func cacheKey(query string, opts content.SearchOptions) string {
	return fmt.Sprintf("%s|%d|%.3f|%s|%s",
		strings.ToLower(strings.TrimSpace(query)), opts.Limit, opts.MinSimilarity(), opts.Category, opts.Type)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

func sortResults(results []content.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
}

func cloneResults(in []content.SearchResult) []content.SearchResult {
	out := make([]content.SearchResult, len(in))
	for i, r := range in {
		r.Metadata = maps.Clone(r.Metadata)
		out[i] = r
	}
	return out
}

package vector

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consult/backend/internal/apperr"
	"github.com/zhouzirui/consult/backend/internal/model/content"
	"github.com/zhouzirui/consult/backend/internal/resilience"
	"github.com/zhouzirui/consult/backend/internal/store/document"
	"github.com/zhouzirui/consult/backend/internal/store/index"
)

type memDocs struct {
	mu        sync.Mutex
	records   map[string]content.Record
	upsertErr error
	deleteErr error
	pingErr   error
}

func newMemDocs() *memDocs {
	return &memDocs{records: make(map[string]content.Record)}
}

func (m *memDocs) Ping(context.Context) error { return m.pingErr }

func (m *memDocs) Upsert(_ context.Context, rec content.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *memDocs) Get(_ context.Context, id string) (*content.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memDocs) List(context.Context) ([]content.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]content.Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (m *memDocs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.records, id)
	return nil
}

type countingIndex struct {
	*index.MemoryIndex
	queries   int
	upsertErr error
	deleteErr error
}

func (c *countingIndex) Upsert(ctx context.Context, id string, v []float32, meta map[string]any) error {
	if c.upsertErr != nil {
		return c.upsertErr
	}
	return c.MemoryIndex.Upsert(ctx, id, v, meta)
}

func (c *countingIndex) Query(ctx context.Context, v []float32, topK int, f content.Filter) ([]content.Match, error) {
	c.queries++
	return c.MemoryIndex.Query(ctx, v, topK, f)
}

func (c *countingIndex) Delete(ctx context.Context, id string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	return c.MemoryIndex.Delete(ctx, id)
}

type blockingIndex struct {
	*index.MemoryIndex
}

func (b blockingIndex) Query(ctx context.Context, _ []float32, _ int, _ content.Filter) ([]content.Match, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type blockingEmbedder struct{}

func (blockingEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, apperr.Network(nil, "embedding provider down")
}

func newMonitor() *resilience.Monitor {
	return resilience.NewMonitor(nil, prometheus.NewRegistry())
}

func TestOfflineSearchUsesFallbackCorpus(t *testing.T) {
	f := NewFacade(context.Background(), Options{Monitor: newMonitor()})
	require.Equal(t, ModeOffline, f.Mode())

	results := f.Search(context.Background(), "cloud", content.SearchOptions{})
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 5)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.0)
		assert.LessOrEqual(t, r.Similarity, 1.0)
		assert.Equal(t, true, r.Metadata["fallback"])
	}
}

func TestOfflineSearchFiltersAndTruncates(t *testing.T) {
	f := NewFacade(context.Background(), Options{})

	results := f.Search(context.Background(), "cloud", content.SearchOptions{Limit: 1, Category: "cloud"})
	require.Len(t, results, 1)
	assert.Equal(t, "cloud", results[0].Metadata["category"])

	results = f.Search(context.Background(), "something unrelated", content.SearchOptions{Type: "service"})
	require.NotEmpty(t, results, "fallback always returns something to browse")
	for _, r := range results {
		assert.Equal(t, "service", r.Metadata["type"])
		assert.Equal(t, browseSimilarity, r.Similarity)
	}
}

func TestOfflineStoreFails(t *testing.T) {
	f := NewFacade(context.Background(), Options{})
	_, err := f.StoreContent(context.Background(), "text", content.Metadata{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
}

func TestFullModeStoreSearchAndFindSimilar(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocs()
	f := NewFacade(ctx, Options{Index: index.NewMemoryIndex(), Documents: docs, Dimensions: 128, Monitor: newMonitor()})
	require.Equal(t, ModeFull, f.Mode())

	id1, err := f.StoreContent(ctx, "Kubernetes migration for a logistics company", content.Metadata{Type: "case-study", Category: "cloud", Title: "K8s"})
	require.NoError(t, err)
	id2, err := f.StoreContent(ctx, "Kubernetes migration for a retail company", content.Metadata{Type: "case-study", Category: "cloud"})
	require.NoError(t, err)
	_, err = f.StoreContent(ctx, "   ", content.Metadata{})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	results := f.Search(ctx, "Kubernetes migration for a logistics company", content.SearchOptions{}.WithThreshold(0.5))
	require.NotEmpty(t, results)
	assert.Equal(t, id1, results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "Kubernetes migration for a logistics company", results[0].Content)
	assert.Nil(t, results[0].Metadata["fallback"])

	similar, err := f.FindSimilar(ctx, id1, 3)
	require.NoError(t, err)
	require.NotEmpty(t, similar)
	assert.Equal(t, id2, similar[0].ID)
	for _, r := range similar {
		assert.NotEqual(t, id1, r.ID)
	}

	_, err = f.FindSimilar(ctx, "missing", 3)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestFindSimilarWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	docs := newMemDocs()
	require.NoError(t, docs.Upsert(ctx, content.Record{ID: "bare", Content: "no vector"}))
	f := NewFacade(ctx, Options{Index: index.NewMemoryIndex(), Documents: docs})

	_, err := f.FindSimilar(ctx, "bare", 3)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSearchResultsAreCached(t *testing.T) {
	ctx := context.Background()
	idx := &countingIndex{MemoryIndex: index.NewMemoryIndex()}
	f := NewFacade(ctx, Options{Index: idx, Documents: newMemDocs(), Dimensions: 64})

	f.Search(ctx, "cloud", content.SearchOptions{})
	f.Search(ctx, "CLOUD ", content.SearchOptions{})
	assert.Equal(t, 1, idx.queries)
	assert.Equal(t, 1, f.Stats().CachedQuery)

	f.Search(ctx, "cloud", content.SearchOptions{Limit: 2})
	assert.Equal(t, 2, idx.queries)
}

func TestDeleteWithOneBackendEmitsDegradation(t *testing.T) {
	ctx := context.Background()
	monitor := newMonitor()
	f := NewFacade(ctx, Options{Index: index.NewMemoryIndex(), Monitor: monitor})
	require.Equal(t, ModeDegraded, f.Mode())

	require.NoError(t, f.DeleteContent(ctx, "some-id"))
	assert.Equal(t, float64(1), monitor.DegradedCount(component, "delete"))
}

func TestUnreachableDocumentStoreDegrades(t *testing.T) {
	docs := newMemDocs()
	docs.pingErr = errors.New("disk gone")
	f := NewFacade(context.Background(), Options{Index: index.NewMemoryIndex(), Documents: docs})

	assert.Equal(t, ModeDegraded, f.Mode())
	assert.False(t, f.Stats().HasDocuments)

	similar, err := f.FindSimilar(context.Background(), "x", 3)
	require.NoError(t, err)
	assert.Empty(t, similar)
}

func TestDeletePartialFailureDoesNotRaise(t *testing.T) {
	ctx := context.Background()
	monitor := newMonitor()
	idx := &countingIndex{MemoryIndex: index.NewMemoryIndex(), deleteErr: apperr.Network(nil, "index down")}
	docs := newMemDocs()
	f := NewFacade(ctx, Options{Index: idx, Documents: docs, Monitor: monitor})

	require.NoError(t, f.DeleteContent(ctx, "id"))
	assert.Equal(t, float64(1), monitor.DegradedCount(component, "delete"))

	docs.deleteErr = errors.New("locked")
	assert.Error(t, f.DeleteContent(ctx, "id"))
}

func TestStoreFailureOnReachableBackendRaisesAndRollsBack(t *testing.T) {
	ctx := context.Background()
	idx := &countingIndex{MemoryIndex: index.NewMemoryIndex(), upsertErr: apperr.Network(nil, "index write failed")}
	docs := newMemDocs()
	f := NewFacade(ctx, Options{Index: idx, Documents: docs})

	_, err := f.StoreContent(ctx, "important text", content.Metadata{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
	assert.Empty(t, docs.records)
}

func TestEmbedderFailureFallsBackToPseudo(t *testing.T) {
	ctx := context.Background()
	monitor := newMonitor()
	f := NewFacade(ctx, Options{Embedder: failingEmbedder{}, Index: index.NewMemoryIndex(), Documents: newMemDocs(), Dimensions: 32, Monitor: monitor})

	id, err := f.StoreContent(ctx, "edge caching", content.Metadata{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, float64(1), monitor.DegradedCount(component, "embed"))
	assert.True(t, f.Stats().HasEmbedder)
}

const zebrafishText = "Zebrafish genomics pipeline for a marine biology lab"

func TestSearchWithoutEmbedderFindsStoredContent(t *testing.T) {
	ctx := context.Background()
	f := NewFacade(ctx, Options{Index: index.NewMemoryIndex(), Documents: newMemDocs(), Dimensions: 256})

	id, err := f.StoreContent(ctx, zebrafishText, content.Metadata{Type: "case-study", Category: "research"})
	require.NoError(t, err)
	_, err = f.StoreContent(ctx, "Payment gateway hardening for a bank", content.Metadata{Type: "case-study"})
	require.NoError(t, err)

	results := f.Search(ctx, "zebrafish genomics", content.SearchOptions{})
	require.NotEmpty(t, results)
	assert.Equal(t, id, results[0].ID)
	assert.Equal(t, zebrafishText, results[0].Content)
	assert.GreaterOrEqual(t, results[0].Similarity, content.DefaultThreshold)
	assert.Nil(t, results[0].Metadata["fallback"])
	for _, r := range results {
		assert.NotEqual(t, "Payment gateway hardening for a bank", r.Content)
	}
}

func TestExplicitZeroThresholdKeepsWeakMatches(t *testing.T) {
	ctx := context.Background()
	f := NewFacade(ctx, Options{Index: index.NewMemoryIndex(), Documents: newMemDocs(), Dimensions: 64})
	id, err := f.StoreContent(ctx, zebrafishText, content.Metadata{})
	require.NoError(t, err)

	strict := f.Search(ctx, "quantum chromodynamics", content.SearchOptions{})
	require.NotEmpty(t, strict)
	assert.Equal(t, true, strict[0].Metadata["fallback"])

	open := f.Search(ctx, "quantum chromodynamics", content.SearchOptions{}.WithThreshold(0))
	require.Len(t, open, 1)
	assert.Equal(t, id, open[0].ID)
}

func TestThresholdDefaultsAndClamps(t *testing.T) {
	assert.Equal(t, content.DefaultThreshold, content.SearchOptions{}.Normalize().MinSimilarity())
	assert.Equal(t, 0.0, content.SearchOptions{}.WithThreshold(0).Normalize().MinSimilarity())
	assert.Equal(t, 1.0, content.SearchOptions{}.WithThreshold(3).Normalize().MinSimilarity())
	assert.Equal(t, 0.0, content.SearchOptions{}.WithThreshold(-1).Normalize().MinSimilarity())
}

func TestBlockedEmbedderIsBoundedByTimeout(t *testing.T) {
	ctx := context.Background()
	monitor := newMonitor()
	f := NewFacade(ctx, Options{
		Embedder:   blockingEmbedder{},
		Index:      index.NewMemoryIndex(),
		Documents:  newMemDocs(),
		Dimensions: 64,
		Timeout:    50 * time.Millisecond,
		Monitor:    monitor,
	})

	start := time.Now()
	id, err := f.StoreContent(ctx, zebrafishText, content.Metadata{})
	require.NoError(t, err)
	results := f.Search(ctx, "zebrafish genomics", content.SearchOptions{})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second)
	require.NotEmpty(t, results)
	assert.Equal(t, id, results[0].ID)
	assert.Equal(t, float64(2), monitor.DegradedCount(component, "embed"))
}

func TestBlockedIndexQueryFallsBackToCorpus(t *testing.T) {
	ctx := context.Background()
	monitor := newMonitor()
	f := NewFacade(ctx, Options{
		Index:     blockingIndex{MemoryIndex: index.NewMemoryIndex()},
		Documents: newMemDocs(),
		Timeout:   50 * time.Millisecond,
		Monitor:   monitor,
	})

	start := time.Now()
	results := f.Search(ctx, "cloud", content.SearchOptions{})
	assert.Less(t, time.Since(start), 2*time.Second)
	require.NotEmpty(t, results)
	assert.Equal(t, true, results[0].Metadata["fallback"])
	assert.Equal(t, float64(1), monitor.DegradedCount(component, "search"))
}

func TestRestartRebuildsIndexFromDocuments(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "content.db")

	docs, err := document.NewSQLite(dbPath)
	require.NoError(t, err)
	f := NewFacade(ctx, Options{Index: index.NewMemoryIndex(), Documents: docs, Dimensions: 64})
	first, err := f.StoreContent(ctx, zebrafishText, content.Metadata{Title: "Zebrafish"})
	require.NoError(t, err)
	second, err := f.StoreContent(ctx, "Zebrafish imaging pipeline for a marine biology lab", content.Metadata{})
	require.NoError(t, err)
	require.NoError(t, docs.Close())

	reopened, err := document.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	idx := index.NewMemoryIndex()
	f = NewFacade(ctx, Options{Index: idx, Documents: reopened, Dimensions: 64})
	assert.Equal(t, 2, idx.Len())

	results := f.Search(ctx, "zebrafish genomics", content.SearchOptions{})
	require.NotEmpty(t, results)
	assert.Equal(t, first, results[0].ID)
	assert.Nil(t, results[0].Metadata["fallback"])

	similar, err := f.FindSimilar(ctx, first, 3)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, second, similar[0].ID)
}

func TestFindSimilarChecksDocumentsBeforeIndex(t *testing.T) {
	ctx := context.Background()
	monitor := newMonitor()
	docs := newMemDocs()
	require.NoError(t, docs.Upsert(ctx, content.Record{ID: "known", Vector: []float32{1, 0}, Content: "known"}))
	f := NewFacade(ctx, Options{Documents: docs, Monitor: monitor})
	require.Equal(t, ModeDegraded, f.Mode())

	_, err := f.FindSimilar(ctx, "missing", 3)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	similar, err := f.FindSimilar(ctx, "known", 3)
	require.NoError(t, err)
	assert.Empty(t, similar)
	assert.Equal(t, float64(1), monitor.DegradedCount(component, "find_similar"))
}

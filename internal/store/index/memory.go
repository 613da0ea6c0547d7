// Package index provides the in-process vector index used by the search
// facade.
package index

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/zhouzirui/consult/backend/internal/model/content"
)

type entry struct {
	vector   []float32
	metadata map[string]any
}

// MemoryIndex is a brute-force cosine similarity index.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]entry
	dims    int
}

// NewMemoryIndex creates an empty index. The first upsert fixes the
// dimensionality.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]entry)}
}

// Upsert stores or replaces the vector for id.
func (m *MemoryIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	if id == "" {
		return fmt.Errorf("index upsert: empty id")
	}
	if len(vector) == 0 {
		return fmt.Errorf("index upsert %s: empty vector", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dims == 0 {
		m.dims = len(vector)
	} else if len(vector) != m.dims {
		return fmt.Errorf("index upsert %s: dimension mismatch: got %d, want %d", id, len(vector), m.dims)
	}

	m.entries[id] = entry{
		vector:   append([]float32(nil), vector...),
		metadata: maps.Clone(metadata),
	}
	return nil
}

// Query returns the topK entries most similar to vector that satisfy filter.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, filter content.Filter) ([]content.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dims != 0 && len(vector) != m.dims {
		return nil, fmt.Errorf("index query: dimension mismatch: got %d, want %d", len(vector), m.dims)
	}

	results := make([]content.Match, 0, len(m.entries))
	for id, e := range m.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		results = append(results, content.Match{
			ID:       id,
			Score:    CosineSimilarity(vector, e.vector),
			Metadata: maps.Clone(e.metadata),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes id. Deleting a missing id is not an error.
func (m *MemoryIndex) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	if len(m.entries) == 0 {
		m.dims = 0
	}
	return nil
}

// Len returns the number of indexed vectors.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func matchesFilter(metadata map[string]any, filter content.Filter) bool {
	if filter.Category != "" && metadata["category"] != filter.Category {
		return false
	}
	if filter.Type != "" && metadata["type"] != filter.Type {
		return false
	}
	return true
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero or their lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

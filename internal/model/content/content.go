// Package content holds the records indexed by the vector search facade.
package content

import "time"

// Record is a piece of site content together with its embedding.
type Record struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Title     string         `json:"title"`
	Category  string         `json:"category"`
	Vector    []float32      `json:"vector,omitempty"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Metadata describes content at ingestion time.
type Metadata struct {
	Type     string         `json:"type"`
	Source   string         `json:"source"`
	Title    string         `json:"title"`
	Category string         `json:"category"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// SearchResult is a ranked hit. Similarity is always within [0,1].
type SearchResult struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata"`
}

// DefaultThreshold is the minimum similarity used when none is given.
const DefaultThreshold = 0.7

// SearchOptions narrows a search. A nil Threshold means DefaultThreshold;
// an explicit 0 accepts every hit.
type SearchOptions struct {
	Limit     int      `json:"limit"`
	Threshold *float64 `json:"threshold,omitempty"`
	Category  string   `json:"category,omitempty"`
	Type      string   `json:"type,omitempty"`
}

// WithThreshold returns a copy of o with the minimum similarity set to v.
func (o SearchOptions) WithThreshold(v float64) SearchOptions {
	o.Threshold = &v
	return o
}

// MinSimilarity returns the effective threshold.
func (o SearchOptions) MinSimilarity() float64 {
	if o.Threshold == nil {
		return DefaultThreshold
	}
	return min(max(*o.Threshold, 0), 1)
}

// Normalize fills defaults: 5 results, DefaultThreshold, and clamps the
// threshold into [0,1].
func (o SearchOptions) Normalize() SearchOptions {
	if o.Limit <= 0 {
		o.Limit = 5
	}
	if o.Limit > 50 {
		o.Limit = 50
	}
	return o.WithThreshold(o.MinSimilarity())
}

// Matches reports whether meta satisfies the category and type filters.
func (o SearchOptions) Matches(category, kind string) bool {
	if o.Category != "" && o.Category != category {
		return false
	}
	if o.Type != "" && o.Type != kind {
		return false
	}
	return true
}

// Filter restricts index queries to a category and/or type.
type Filter struct {
	Category string
	Type     string
}

// Match is a raw index hit. Score is the cosine similarity in [-1,1].
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

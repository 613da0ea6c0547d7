package content

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consult/backend/internal/model/content"
	"github.com/zhouzirui/consult/backend/internal/service/vector"
	"github.com/zhouzirui/consult/backend/internal/store/document"
	"github.com/zhouzirui/consult/backend/internal/store/index"
)

func setupRouter(t *testing.T, withBackends bool) *chi.Mux {
	t.Helper()

	opts := vector.Options{Dimensions: 64}
	if withBackends {
		docs, err := document.NewSQLite(filepath.Join(t.TempDir(), "content.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = docs.Close() })
		opts.Documents = docs
		opts.Index = index.NewMemoryIndex()
	}

	r := chi.NewRouter()
	New(vector.NewFacade(context.Background(), opts)).RegisterRoutes(r)
	return r
}

func send(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func storeDoc(t *testing.T, r http.Handler, text, title string) string {
	t.Helper()
	resp := send(t, r, http.MethodPost, "/content", map[string]any{
		"content":  text,
		"metadata": content.Metadata{Type: "case-study", Title: title, Category: "cloud"},
	})
	require.Equal(t, http.StatusCreated, resp.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["id"])
	return body["id"]
}

func TestSearchOfflineFallsBackToCorpus(t *testing.T) {
	r := setupRouter(t, false)

	resp := send(t, r, http.MethodGet, "/search?q=cloud+migration", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Results []content.SearchResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Results)
}

func TestSearchRejectsBadParams(t *testing.T) {
	r := setupRouter(t, false)

	assert.Equal(t, http.StatusBadRequest, send(t, r, http.MethodGet, "/search?q=x&limit=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, send(t, r, http.MethodGet, "/search?q=x&threshold=high", nil).Code)
}

func TestStoreContentOfflineIsBadGateway(t *testing.T) {
	r := setupRouter(t, false)

	resp := send(t, r, http.MethodPost, "/content", map[string]any{"content": "hello"})
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestStoreEmptyContentIsBadRequest(t *testing.T) {
	r := setupRouter(t, true)

	resp := send(t, r, http.MethodPost, "/content", map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStoreSearchSimilarDelete(t *testing.T) {
	r := setupRouter(t, true)

	first := storeDoc(t, r, "kubernetes migration for a retail platform", "Retail migration")
	second := storeDoc(t, r, "kubernetes migration for a logistics platform", "Logistics migration")

	resp := send(t, r, http.MethodGet, "/content/"+first+"/similar?limit=3", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var similar struct {
		Results []content.SearchResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&similar))
	require.Len(t, similar.Results, 1)
	assert.Equal(t, second, similar.Results[0].ID)

	assert.Equal(t, http.StatusNoContent, send(t, r, http.MethodDelete, "/content/"+first, nil).Code)
	assert.Equal(t, http.StatusNotFound, send(t, r, http.MethodGet, "/content/"+first+"/similar", nil).Code)
}

func TestStatsReportsMode(t *testing.T) {
	r := setupRouter(t, true)

	resp := send(t, r, http.MethodGet, "/search/stats", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var stats vector.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, vector.ModeFull, stats.Mode)
}

func TestSearchFindsStoredContentWithDefaultOptions(t *testing.T) {
	r := setupRouter(t, true)
	id := storeDoc(t, r, "zebrafish genomics pipeline for a marine biology lab", "Zebrafish")

	resp := send(t, r, http.MethodGet, "/search?q=zebrafish+genomics", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Results []content.SearchResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Results)
	assert.Equal(t, id, body.Results[0].ID)

	resp = send(t, r, http.MethodGet, "/search?q=unrelated+words&threshold=0", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, id, body.Results[0].ID)
}

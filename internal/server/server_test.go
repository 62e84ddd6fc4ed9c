package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/getAsterisk/blockoli/internal/config"
	"github.com/getAsterisk/blockoli/internal/embedder"
	"github.com/getAsterisk/blockoli/internal/index"
	"github.com/getAsterisk/blockoli/internal/indexer"
	"github.com/getAsterisk/blockoli/internal/searcher"
	"github.com/getAsterisk/blockoli/internal/storage"
)

func newTestServer(t *testing.T) (*Server, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	idx := indexer.New(store, emb, nil)
	srch := searcher.New(store, emb, index.NewCache(), nil)
	srv := New(store, idx, srch, config.Default(), zap.NewNop())
	return srv, store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestProjectEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/projects", map[string]string{"name": "demo"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/projects", map[string]string{"name": "demo"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/projects", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Len(t, body["projects"], 1)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/projects/demo/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	info := decode(t, rec)
	assert.Equal(t, "demo", info["name"])
	assert.EqualValues(t, 0, info["generation"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/projects/ghost/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/projects/demo/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/projects/demo/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "deleting a missing project fails")
}

func TestIndexAndSearchEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	doJSON(t, router, http.MethodPost, "/api/v1/projects", map[string]string{"name": "demo"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/projects/demo/index", map[string]interface{}{
		"files": []map[string]string{
			{"path": "a.go", "source": "package a\n\nfunc Hello() {}\n\nfunc World() {}\n"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode(t, rec)
	assert.EqualValues(t, 2, report["blocks_indexed"])
	assert.EqualValues(t, 2, report["blocks_embedded"])
	assert.NotEmpty(t, report["run_id"])

	rec = doJSON(t, router, http.MethodPost, "/api/v1/projects/demo/search", map[string]interface{}{
		"query": "greeting function",
		"k":     1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	search := decode(t, rec)
	require.Len(t, search["results"], 1)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/projects/demo/blocks", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	blocks := decode(t, rec)
	assert.Len(t, blocks["blocks"], 2)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/projects/demo/functions/Hello", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	found := decode(t, rec)
	require.Len(t, found["blocks"], 1)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/projects/demo/blocks/search", map[string]string{
		"query": "World",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	content := decode(t, rec)
	assert.Len(t, content["blocks"], 1)
}

func TestIndexEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	doJSON(t, router, http.MethodPost, "/api/v1/projects", map[string]string{"name": "demo"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/projects/demo/index", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/projects/demo/index", map[string]interface{}{
		"path":  "/tmp/somewhere",
		"files": []map[string]string{{"path": "a.go", "source": "package a"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "path and files are mutually exclusive")

	rec = doJSON(t, router, http.MethodPost, "/api/v1/projects/ghost/index", map[string]interface{}{
		"files": []map[string]string{{"path": "a.go", "source": "package a"}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchEndpointErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	doJSON(t, router, http.MethodPost, "/api/v1/projects", map[string]string{"name": "demo"})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/projects/demo/search", map[string]string{
		"query": "anything",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty index maps to a client error")

	rec = doJSON(t, router, http.MethodPost, "/api/v1/projects/ghost/search", map[string]string{
		"query": "anything",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

package router

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-entries-service/config"
	"blog-entries-service/handlers"
	"blog-entries-service/models"
	"blog-entries-service/services"
)

type memoryStore struct {
	mu    sync.Mutex
	blogs map[string]models.Blog
}

func newMemoryStore() *memoryStore {
	return &memoryStore{blogs: map[string]models.Blog{}}
}

func (m *memoryStore) Add(_ context.Context, blog models.Blog) (models.IndexAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := "created"
	if _, ok := m.blogs[blog.ID]; ok {
		result = "updated"
	}
	m.blogs[blog.ID] = blog
	return models.IndexAck{ID: blog.ID, Index: "blog", Result: result}, nil
}

func (m *memoryStore) FindByID(_ context.Context, id string) (*models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blog, ok := m.blogs[id]
	if !ok {
		return nil, nil
	}
	return &blog, nil
}

func (m *memoryStore) GetBlogs(_ context.Context, user string) ([]models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var blogs []models.Blog
	for _, b := range m.blogs {
		if b.User == user {
			blogs = append(blogs, b)
		}
	}
	return blogs, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateThenFetchRoundTrip(t *testing.T) {
	r := NewRouter(newMemoryStore())
	blog := models.Blog{ID: "1", User: "cmoulliard", Title: "Rest DSL", Body: "Camel & ES", PostDate: "2015-03-04T10:00:00"}
	payload, err := json.Marshal(blog)
	require.NoError(t, err)

	rec := do(t, r, http.MethodPut, "/entries/new/1", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = do(t, r, http.MethodGet, "/entries/searchid/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Blog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, blog, got)

	rec = do(t, r, http.MethodGet, "/entries/searchuser/cmoulliard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Blog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []models.Blog{blog}, list)
}

func TestUnknownUserAndID(t *testing.T) {
	r := NewRouter(newMemoryStore())

	rec := do(t, r, http.MethodGet, "/entries/searchuser/ghost", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())

	rec = do(t, r, http.MethodGet, "/entries/searchid/ghost", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", rec.Body.String())
}

func TestMethodsAreBound(t *testing.T) {
	r := NewRouter(newMemoryStore())

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, r, http.MethodGet, "/entries/new/1", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, r, http.MethodPost, "/entries/searchid/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/entries/search", "").Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := NewRouter(newMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewRouter(newMemoryStore())
	do(t, r, http.MethodGet, "/entries/searchuser/alice", "")

	rec := do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `blog_http_requests_total{method="GET",route="/entries/searchuser/{user}",status="200"}`)
}

func TestBackendUnreachable(t *testing.T) {
	// grab a free port and release it so nothing listens there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	store, err := services.NewElasticsearchClient(config.ElasticsearchConfig{
		Address:   "127.0.0.1",
		Port:      port,
		Scheme:    "http",
		IndexName: "blog",
		IndexType: "post",
	}, 10)
	require.NoError(t, err)
	r := NewRouter(store)

	rec := do(t, r, http.MethodGet, "/entries/searchid/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, handlers.UnavailableMessage, rec.Body.String())

	rec = do(t, r, http.MethodPut, "/entries/new/1", `{"user":"bob"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

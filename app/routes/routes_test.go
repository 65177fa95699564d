package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bridgeus/app/logging"
	"bridgeus/app/middleware"
	"bridgeus/app/repositories"
	"bridgeus/app/seed"
	"bridgeus/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T, loadBurst int) *mux.Router {
	t.Helper()

	// The badger backend in memory, as the service runs with store.backend = "badger".
	db, err := repositories.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	data := seed.MustLoad()
	store := repositories.NewBadgerPostStore(db)
	opts := services.DefaultFeedOptions()
	opts.LoadDelay = 0
	opts.Endless = true
	feed := services.NewFeedService(store, services.NewGenerator(data.Templates, len(data.Posts), nil), opts, logging.Discard())
	_, err = feed.Seed(context.Background(), data.Posts)
	require.NoError(t, err)

	sessions := services.NewSessionManager(feed, time.Hour, logging.Discard())
	t.Cleanup(sessions.CloseAll)

	return SetupRoutes(Dependencies{
		Feed:        feed,
		Replies:     services.NewReplyService(repositories.NewBadgerReplyRepository(db), store, nil),
		Sessions:    sessions,
		Logger:      logging.Discard(),
		LoadRate:    0.001,
		LoadBurst:   loadBurst,
		WaitTimeout: 5 * time.Second,
	})
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.RemoteAddr = "198.51.100.7:4000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIRoutes(t *testing.T) {
	router := setupTestRouter(t, 10)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{name: "categories", method: "GET", target: "/api/categories", status: http.StatusOK},
		{name: "list posts", method: "GET", target: "/api/posts?category=visa", status: http.StatusOK},
		{name: "show post", method: "GET", target: "/api/posts/post-3", status: http.StatusOK},
		{name: "missing post", method: "GET", target: "/api/posts/post-99", status: http.StatusNotFound},
		{name: "list replies", method: "GET", target: "/api/posts/post-3/replies", status: http.StatusOK},
		{name: "create reply", method: "POST", target: "/api/posts/post-3/replies", body: `{"author": "Ravi", "content": "Same experience here."}`, status: http.StatusCreated},
		{name: "open feed", method: "POST", target: "/api/feed/sessions", body: `{"sort": "helpful"}`, status: http.StatusCreated},
		{name: "unknown session", method: "GET", target: "/api/feed/sessions/nope", status: http.StatusNotFound},
		{name: "wrong method", method: "DELETE", target: "/api/posts", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status == http.StatusMethodNotAllowed {
				return
			}
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestInfiniteScrollOverHTTP(t *testing.T) {
	router := setupTestRouter(t, 10)

	w := serve(router, "POST", "/api/feed/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var snap services.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Len(t, snap.Posts, 8)

	for i := 0; i < 3; i++ {
		w = serve(router, "POST", "/api/feed/sessions/"+snap.ID+"/more?wait=true", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))

	// generate, extend, generate: the window shows the first generated page.
	assert.Len(t, snap.Posts, 16)
	assert.Equal(t, 24, snap.Total)
	ids := make(map[string]bool)
	for _, p := range snap.Posts {
		assert.False(t, ids[p.ID])
		ids[p.ID] = true
	}

	w = serve(router, "GET", "/api/posts?per_page=100", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page services.PostPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 24, page.Pagination.Total)
	assert.Equal(t, "post-24", page.Posts[23].ID)
}

func TestLoadMoreIsRateLimited(t *testing.T) {
	router := setupTestRouter(t, 2)

	w := serve(router, "POST", "/api/feed/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var snap services.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))

	target := "/api/feed/sessions/" + snap.ID + "/more?wait=true"
	assert.Equal(t, http.StatusOK, serve(router, "POST", target, "").Code)
	assert.Equal(t, http.StatusOK, serve(router, "POST", target, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, "POST", target, "").Code)

	// A fresh X-Forwarded-For on every request does not open a new bucket.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", target, nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	}
}

func TestOperationalRoutes(t *testing.T) {
	router := setupTestRouter(t, 10)

	w := serve(router, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	serve(router, "GET", "/api/posts", "")
	w = serve(router, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bridgeus_http_requests_total")
}

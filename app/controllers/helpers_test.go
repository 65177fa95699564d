package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bridgeus/app/logging"
	"bridgeus/app/repositories/memory"
	"bridgeus/app/seed"
	"bridgeus/app/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router   *mux.Router
	feed     *services.FeedService
	sessions *services.SessionManager
}

func setupTestEnv(t *testing.T, opts services.FeedOptions) *testEnv {
	t.Helper()

	data := seed.MustLoad()
	store := memory.NewPostStore()
	gen := services.NewGenerator(data.Templates, len(data.Posts), nil)
	feed := services.NewFeedService(store, gen, opts, logging.Discard())
	_, err := feed.Seed(context.Background(), data.Posts)
	require.NoError(t, err)

	sessions := services.NewSessionManager(feed, time.Hour, logging.Discard())
	t.Cleanup(sessions.CloseAll)
	replies := services.NewReplyService(memory.NewReplyRepository(), store, nil)

	pc := NewPostController(feed)
	rc := NewReplyController(replies)
	fc := NewFeedController(sessions, 5*time.Second)

	// Register routes manually to keep controller tests independent of the routes package
	router := mux.NewRouter()
	router.HandleFunc("/api/categories", pc.Categories).Methods("GET")
	router.HandleFunc("/api/posts", pc.Index).Methods("GET")
	router.HandleFunc("/api/posts", pc.Create).Methods("POST")
	router.HandleFunc("/api/posts/{id}", pc.Show).Methods("GET")
	router.HandleFunc("/api/posts/{id}/replies", rc.Index).Methods("GET")
	router.HandleFunc("/api/posts/{id}/replies", rc.Create).Methods("POST")
	router.HandleFunc("/api/feed/sessions", fc.Create).Methods("POST")
	router.HandleFunc("/api/feed/sessions/{id}", fc.Show).Methods("GET")
	router.HandleFunc("/api/feed/sessions/{id}", fc.Reset).Methods("PUT")
	router.HandleFunc("/api/feed/sessions/{id}", fc.Delete).Methods("DELETE")
	router.HandleFunc("/api/feed/sessions/{id}/more", fc.LoadMore).Methods("POST")

	return &testEnv{router: router, feed: feed, sessions: sessions}
}

func instantOptions(pageSize int, endless bool) services.FeedOptions {
	opts := services.DefaultFeedOptions()
	opts.PageSize = pageSize
	opts.LoadDelay = 0
	opts.Endless = endless
	return opts
}

func (e *testEnv) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}


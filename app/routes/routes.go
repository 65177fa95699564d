// Package routes wires the controllers and middleware into the HTTP router.
package routes

import (
	"log/slog"
	"net/http"
	"time"

	"bridgeus/app/controllers"
	"bridgeus/app/middleware"
	"bridgeus/app/services"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the router serves.
type Dependencies struct {
	Feed     *services.FeedService
	Replies  *services.ReplyService
	Sessions *services.SessionManager
	Logger   *slog.Logger

	// LoadLimiter throttles load-more requests per client. When nil one is
	// built from LoadRate, LoadBurst and TrustProxy.
	LoadLimiter *middleware.RateLimiter
	LoadRate    float64
	LoadBurst   int
	TrustProxy  bool
	// WaitTimeout bounds load-more requests made with wait=true.
	WaitTimeout time.Duration
}

// SetupRoutes defines the application's routes and returns a router.
func SetupRoutes(deps Dependencies) *mux.Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WaitTimeout <= 0 {
		deps.WaitTimeout = 30 * time.Second
	}

	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Metrics)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	postController := controllers.NewPostController(deps.Feed)
	replyController := controllers.NewReplyController(deps.Replies)
	feedController := controllers.NewFeedController(deps.Sessions, deps.WaitTimeout)

	// API routes
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)

	api.HandleFunc("/categories", postController.Categories).Methods("GET")

	// Posts API endpoints
	posts := api.PathPrefix("/posts").Subrouter()
	posts.HandleFunc("", postController.Index).Methods("GET")
	posts.HandleFunc("", postController.Create).Methods("POST")
	posts.HandleFunc("/{id}", postController.Show).Methods("GET")

	// Replies API endpoints
	posts.HandleFunc("/{id}/replies", replyController.Index).Methods("GET")
	posts.HandleFunc("/{id}/replies", replyController.Create).Methods("POST")

	// Infinite-scroll sessions
	feed := api.PathPrefix("/feed/sessions").Subrouter()
	feed.HandleFunc("", feedController.Create).Methods("POST")
	feed.HandleFunc("/{id}", feedController.Show).Methods("GET")
	feed.HandleFunc("/{id}", feedController.Reset).Methods("PUT")
	feed.HandleFunc("/{id}", feedController.Delete).Methods("DELETE")

	limiter := deps.LoadLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(deps.LoadRate, deps.LoadBurst, deps.TrustProxy)
	}
	feed.Handle("/{id}/more", limiter.Middleware(http.HandlerFunc(feedController.LoadMore))).Methods("POST")

	return router
}

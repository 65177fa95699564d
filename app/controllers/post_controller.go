package controllers

import (
	"net/http"
	"strconv"

	"bridgeus/app/models"
	"bridgeus/app/services"

	"github.com/gorilla/mux"
)

// PostController handles HTTP requests for feed posts
type PostController struct {
	feed *services.FeedService
}

// NewPostController creates a new PostController
func NewPostController(feed *services.FeedService) *PostController {
	return &PostController{feed: feed}
}

// Categories lists the category selector options.
func (pc *PostController) Categories(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{"categories": models.Categories()})
}

// Index handles listing posts with category, sort and offset pagination
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	perPage := queryInt(q.Get("per_page"), 0)

	result, err := pc.feed.ListPosts(r.Context(), categoryParam(q.Get("category")), models.ParseSortMode(q.Get("sort")), page, perPage)
	if err != nil {
		sendServiceError(w, r, "Failed to fetch posts", err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	post, err := pc.feed.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		sendServiceError(w, r, "Post not found", err)
		return
	}
	sendJSON(w, http.StatusOK, post)
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	var input models.PostInput
	if err := decodeJSON(w, r, &input); err != nil {
		sendError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	post, err := pc.feed.CreatePost(r.Context(), input)
	if err != nil {
		sendServiceError(w, r, "Failed to create post", err)
		return
	}
	w.Header().Set("Location", "/api/posts/"+post.ID)
	sendJSON(w, http.StatusCreated, post)
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func categoryParam(raw string) string {
	if raw == "" {
		return models.AllCategories
	}
	return raw
}

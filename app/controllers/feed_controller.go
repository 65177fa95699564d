package controllers

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"bridgeus/app/models"
	"bridgeus/app/services"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/sha3"
)

// FeedController exposes infinite-scroll sessions over HTTP.
type FeedController struct {
	sessions    *services.SessionManager
	waitTimeout time.Duration
}

// NewFeedController creates a FeedController. waitTimeout bounds how long a
// load-more request with wait=true blocks.
func NewFeedController(sessions *services.SessionManager, waitTimeout time.Duration) *FeedController {
	return &FeedController{sessions: sessions, waitTimeout: waitTimeout}
}

type feedRequest struct {
	Category string `json:"category"`
	Sort     string `json:"sort"`
}

func (fr feedRequest) selection() (string, models.SortMode) {
	return categoryParam(fr.Category), models.ParseSortMode(fr.Sort)
}

// decodeFeedRequest accepts an empty body as the default selection.
func decodeFeedRequest(w http.ResponseWriter, r *http.Request) (feedRequest, error) {
	var req feedRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

// Create opens a session and returns its first snapshot.
func (fc *FeedController) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFeedRequest(w, r)
	if err != nil {
		sendError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	category, mode := req.selection()
	session, err := fc.sessions.Create(r.Context(), category, mode)
	if err != nil {
		sendServiceError(w, r, "Failed to open feed", err)
		return
	}
	w.Header().Set("Location", "/api/feed/sessions/"+session.ID())
	fc.sendSnapshot(w, r, session, http.StatusCreated)
}

// Show returns the current window. It answers 304 when the snapshot matches
// If-None-Match.
func (fc *FeedController) Show(w http.ResponseWriter, r *http.Request) {
	session, ok := fc.session(w, r)
	if !ok {
		return
	}
	fc.sendSnapshot(w, r, session, http.StatusOK)
}

// Reset changes the category and sort selection of a session.
func (fc *FeedController) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := fc.session(w, r)
	if !ok {
		return
	}
	req, err := decodeFeedRequest(w, r)
	if err != nil {
		sendError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	category, mode := req.selection()
	if err := session.Reset(r.Context(), category, mode); err != nil {
		sendServiceError(w, r, "Failed to reset feed", err)
		return
	}
	fc.sendSnapshot(w, r, session, http.StatusOK)
}

// LoadMore starts loading the next page. It answers 202 with the loading
// snapshot, or 200 when nothing was started or when wait=true and the load
// has finished.
func (fc *FeedController) LoadMore(w http.ResponseWriter, r *http.Request) {
	session, ok := fc.session(w, r)
	if !ok {
		return
	}

	started := session.LoadMore()
	status := http.StatusOK
	if started {
		status = http.StatusAccepted
		if r.URL.Query().Get("wait") == "true" {
			ctx, cancel := context.WithTimeout(r.Context(), fc.waitTimeout)
			defer cancel()
			if err := session.Wait(ctx); err != nil {
				sendError(w, r, "Load did not finish: "+err.Error(), http.StatusGatewayTimeout)
				return
			}
			status = http.StatusOK
		}
	}
	fc.sendSnapshot(w, r, session, status)
}

// Delete closes a session.
func (fc *FeedController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := fc.sessions.Close(mux.Vars(r)["id"]); err != nil {
		sendServiceError(w, r, "Failed to close feed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (fc *FeedController) session(w http.ResponseWriter, r *http.Request) (*services.FeedSession, bool) {
	session, err := fc.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		sendServiceError(w, r, "Feed session not found", err)
		return nil, false
	}
	return session, true
}

func (fc *FeedController) sendSnapshot(w http.ResponseWriter, r *http.Request, session *services.FeedSession, status int) {
	snap, err := session.Snapshot(r.Context())
	if err != nil {
		sendServiceError(w, r, "Failed to read feed", err)
		return
	}

	body, err := json.Marshal(snap)
	if err != nil {
		sendError(w, r, "Failed to encode feed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	etag := snapshotETag(body)
	w.Header().Set("ETag", etag)
	if status == http.StatusOK && r.Method == http.MethodGet && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// snapshotETag is a strong validator over the encoded snapshot.
func snapshotETag(body []byte) string {
	sum := sha3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

package controllers

import (
	"net/http"

	"bridgeus/app/models"
	"bridgeus/app/services"

	"github.com/gorilla/mux"
)

// ReplyController handles HTTP requests for replies
type ReplyController struct {
	replies *services.ReplyService
}

// NewReplyController creates a new ReplyController
func NewReplyController(replies *services.ReplyService) *ReplyController {
	return &ReplyController{replies: replies}
}

// Index lists the replies of a post
func (rc *ReplyController) Index(w http.ResponseWriter, r *http.Request) {
	replies, err := rc.replies.ListReplies(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		sendServiceError(w, r, "Failed to fetch replies", err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"replies": replies})
}

// Create handles creating a new reply
func (rc *ReplyController) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Author  string `json:"author"`
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		sendError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	reply := &models.Reply{
		PostID:  mux.Vars(r)["id"],
		Author:  body.Author,
		Content: body.Content,
	}
	if err := rc.replies.CreateReply(r.Context(), reply); err != nil {
		sendServiceError(w, r, "Failed to create reply", err)
		return
	}
	sendJSON(w, http.StatusCreated, reply)
}

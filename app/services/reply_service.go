package services

import (
	"context"
	"fmt"
	"strings"

	"bridgeus/app/models"
	"bridgeus/app/repositories"
)

// ReplyService handles business logic for replies
type ReplyService struct {
	replyRepo repositories.ReplyRepository
	posts     repositories.PostStore
	clock     Clock
}

// NewReplyService creates a new ReplyService
func NewReplyService(replyRepo repositories.ReplyRepository, posts repositories.PostStore, clock Clock) *ReplyService {
	if clock == nil {
		clock = RealClock
	}
	return &ReplyService{
		replyRepo: replyRepo,
		posts:     posts,
		clock:     clock,
	}
}

// CreateReply creates a new reply with validation
func (s *ReplyService) CreateReply(ctx context.Context, reply *models.Reply) error {
	reply.Author = strings.TrimSpace(reply.Author)
	reply.CreatedAt = s.clock.Now()
	if err := reply.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}

	// Verify post exists
	if _, err := s.posts.Get(ctx, reply.PostID); err != nil {
		return fmt.Errorf("post %s: %w", reply.PostID, err)
	}

	return s.replyRepo.Create(ctx, reply)
}

// ListReplies retrieves all replies for a post
func (s *ReplyService) ListReplies(ctx context.Context, postID string) ([]*models.Reply, error) {
	// Verify post exists
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, fmt.Errorf("post %s: %w", postID, err)
	}

	replies, err := s.replyRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if replies == nil {
		replies = []*models.Reply{}
	}
	return replies, nil
}

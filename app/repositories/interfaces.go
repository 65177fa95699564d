package repositories

import (
	"context"
	"errors"

	"bridgeus/app/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("duplicate record id")
)

// PostStore is the append-only source of feed records. Implementations keep
// insertion order and hand out copies, so callers can never modify a stored
// post.
type PostStore interface {
	// Append adds posts atomically: if any id already exists (or repeats
	// within the batch) nothing is written and ErrDuplicateID is returned.
	Append(ctx context.Context, posts ...models.Post) error
	All(ctx context.Context) ([]models.Post, error)
	Get(ctx context.Context, id string) (models.Post, error)
	Len(ctx context.Context) (int, error)
	// Version changes after every successful Append.
	Version() uint64
}

// ReplyRepository defines the interface for reply data access
type ReplyRepository interface {
	Create(ctx context.Context, reply *models.Reply) error
	ListByPost(ctx context.Context, postID string) ([]*models.Reply, error)
}

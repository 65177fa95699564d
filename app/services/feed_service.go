package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bridgeus/app/metrics"
	"bridgeus/app/models"
	"bridgeus/app/repositories"
)

const maxPerPage = 100

// FeedOptions tunes the infinite-scroll behaviour.
type FeedOptions struct {
	PageSize  int
	LoadDelay time.Duration
	// Endless keeps hasMore true while the generator may still grow the
	// store, so a load-more at the end of the view manufactures posts.
	Endless bool
	// MaxPosts caps the store size reachable through Grow. 0 is unbounded.
	MaxPosts int
	Clock    Clock
}

// DefaultFeedOptions returns the page size and delay of the community feed.
func DefaultFeedOptions() FeedOptions {
	return FeedOptions{
		PageSize:  8,
		LoadDelay: 800 * time.Millisecond,
		Clock:     RealClock,
	}
}

// Pagination describes one page of an offset-paginated listing.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// PostPage is a page of query results.
type PostPage struct {
	Posts      []models.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// FeedService owns the source store and the generator that extends it.
type FeedService struct {
	store     repositories.PostStore
	generator *Generator
	opts      FeedOptions
	logger    *slog.Logger

	// growMu serialises "next index, build, append" so concurrent sessions
	// and writers never race for the same post-N id.
	growMu sync.Mutex
}

// NewFeedService creates a new FeedService
func NewFeedService(store repositories.PostStore, generator *Generator, opts FeedOptions, logger *slog.Logger) *FeedService {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultFeedOptions().PageSize
	}
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedService{
		store:     store,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Options returns the options the service runs with.
func (s *FeedService) Options() FeedOptions {
	return s.opts
}

// Seed appends posts to an empty store. A store that already holds records is
// left alone and Seed reports false.
func (s *FeedService) Seed(ctx context.Context, posts []models.Post) (bool, error) {
	s.growMu.Lock()
	defer s.growMu.Unlock()

	n, err := s.store.Len(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count posts: %w", err)
	}
	if n > 0 {
		metrics.StorePosts.Set(float64(n))
		return false, nil
	}

	now := s.opts.Clock.Now()
	batch := make([]models.Post, len(posts))
	for i, p := range posts {
		batch[i] = p.Clone()
		if batch[i].CreatedAt.IsZero() {
			batch[i].CreatedAt = now
		}
	}
	if err := s.store.Append(ctx, batch...); err != nil {
		return false, fmt.Errorf("failed to seed store: %w", err)
	}
	metrics.StorePosts.Set(float64(len(batch)))
	s.logger.Info("seeded post store", "posts", len(batch))
	return true, nil
}

// Version is the store's change counter.
func (s *FeedService) Version() uint64 {
	return s.store.Version()
}

// Query runs the filter and sort pipeline over the current store. The
// returned version is the store version the result was computed from.
func (s *FeedService) Query(ctx context.Context, category string, mode models.SortMode) ([]models.Post, uint64, error) {
	version := s.store.Version()
	posts, err := s.store.All(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read posts: %w", err)
	}
	return QueryPosts(posts, category, mode), version, nil
}

// CanGrow reports whether Grow would add at least one post.
func (s *FeedService) CanGrow(ctx context.Context) bool {
	if s.opts.MaxPosts == 0 {
		return true
	}
	n, err := s.store.Len(ctx)
	return err == nil && n < s.opts.MaxPosts
}

// Grow appends up to count generated posts and returns how many were added.
// It returns ErrStoreFull once the store holds MaxPosts records. A context
// cancelled before the append leaves the store untouched; an append already
// under way is not rolled back.
func (s *FeedService) Grow(ctx context.Context, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	s.growMu.Lock()
	defer s.growMu.Unlock()

	n, err := s.store.Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	if s.opts.MaxPosts > 0 {
		remaining := s.opts.MaxPosts - n
		if remaining <= 0 {
			return 0, ErrStoreFull
		}
		count = min(count, remaining)
	}

	posts := s.generator.Generate(n-s.generator.SeedCount(), count)
	if len(posts) == 0 {
		return 0, nil
	}
	now := s.opts.Clock.Now()
	for i := range posts {
		posts[i].CreatedAt = now
	}
	// A load cancelled while the batch was built must not append it.
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.store.Append(ctx, posts...); err != nil {
		return 0, fmt.Errorf("failed to append generated posts: %w", err)
	}

	metrics.RecordGenerated(len(posts), n+len(posts))
	s.logger.Debug("generated posts",
		"count", len(posts),
		"first_id", posts[0].ID,
		"store_size", n+len(posts))
	return len(posts), nil
}

// CreatePost validates a member's post and appends it with the next id.
func (s *FeedService) CreatePost(ctx context.Context, input models.PostInput) (models.Post, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := input.Validate(); err != nil {
		return models.Post{}, fmt.Errorf("%w: %v", ErrInvalidPost, err)
	}

	s.growMu.Lock()
	defer s.growMu.Unlock()

	n, err := s.store.Len(ctx)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to count posts: %w", err)
	}

	tags := append([]string{}, input.Tags...)
	post := models.Post{
		ID:        fmt.Sprintf("post-%d", n+1),
		Title:     input.Title,
		Preview:   models.BuildPreview(input.Content),
		Content:   input.Content,
		Tags:      tags,
		Author:    input.Author,
		Timestamp: "just now",
		CreatedAt: s.opts.Clock.Now(),
	}
	if err := s.store.Append(ctx, post); err != nil {
		return models.Post{}, fmt.Errorf("failed to create post: %w", err)
	}
	metrics.StorePosts.Set(float64(n + 1))
	s.logger.Info("post created", "id", post.ID, "author", post.Author.Name)
	return post, nil
}

// GetPost retrieves a post by id.
func (s *FeedService) GetPost(ctx context.Context, id string) (models.Post, error) {
	return s.store.Get(ctx, id)
}

// ListPosts returns one offset page of the query results.
func (s *FeedService) ListPosts(ctx context.Context, category string, mode models.SortMode, page, perPage int) (*PostPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = s.opts.PageSize
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	results, _, err := s.Query(ctx, category, mode)
	if err != nil {
		return nil, err
	}

	total := len(results)
	offset := min((page-1)*perPage, total)
	end := min(offset+perPage, total)

	return &PostPage{
		Posts: results[offset:end],
		Pagination: Pagination{
			Total:      total,
			Page:       page,
			Limit:      perPage,
			TotalPages: (total + perPage - 1) / perPage,
		},
	}, nil
}

// IsNotFound reports whether err means a missing post.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}

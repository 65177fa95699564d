package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bridgeus/app/metrics"
	"bridgeus/app/models"
)

// Snapshot is what the view binding renders: the visible window plus the
// loading indicator and the end-of-feed flag.
type Snapshot struct {
	ID       string          `json:"id"`
	Category string          `json:"category"`
	Sort     models.SortMode `json:"sort"`
	Posts    []models.Post   `json:"posts"`
	Loading  bool            `json:"loading"`
	HasMore  bool            `json:"hasMore"`
	// Total is the size of the filtered result the window is a prefix of.
	Total   int    `json:"total"`
	Version uint64 `json:"version"`
}

// FeedSession is the infinite-scroll controller of one reader. It keeps a
// growing window over the query results and grows the store through the feed
// service once the window covers all of them.
//
// At most one load is in flight per session. Reset and Close cancel it.
type FeedSession struct {
	id     string
	feed   *FeedService
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	category   string
	sort       models.SortMode
	results    []models.Post
	version    uint64
	windowSize int
	loading    bool
	hasMore    bool
	closed     bool
	lastActive time.Time

	// generation changes on every Reset so a load started before it can
	// tell its result is stale.
	generation uint64
	loadCancel context.CancelFunc
	done       chan struct{}
}

// NewFeedSession opens a session whose loads live no longer than parent and
// resets it to category and mode.
func NewFeedSession(parent context.Context, id string, feed *FeedService, category string, mode models.SortMode) (*FeedSession, error) {
	ctx, cancel := context.WithCancel(parent)
	s := &FeedSession{
		id:     id,
		feed:   feed,
		logger: feed.logger.With("session_id", id),
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.Reset(ctx, category, mode); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// ID returns the session id.
func (s *FeedSession) ID() string {
	return s.id
}

// Reset recomputes the results for a new category and sort selection and
// shows the first page. A load still in flight is cancelled and its result
// discarded.
func (s *FeedSession) Reset(ctx context.Context, category string, mode models.SortMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	results, version, err := s.feed.Query(ctx, category, mode)
	if err != nil {
		return err
	}

	s.cancelLoadLocked()
	s.category = category
	s.sort = mode
	s.results = results
	s.version = version
	s.windowSize = s.feed.opts.PageSize
	s.hasMore = s.computeHasMore(ctx)
	s.touchLocked()

	s.logger.Debug("feed reset",
		"category", category,
		"sort", mode,
		"results", len(results),
		"has_more", s.hasMore)
	return nil
}

// LoadMore starts loading the next page and reports whether it did. It is a
// no-op while a load is in flight or when there is nothing more to show.
func (s *FeedSession) LoadMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.loading {
		metrics.RecordLoad(metrics.LoadSkipped)
		return false
	}
	s.touchLocked()
	if err := s.refreshLocked(s.ctx); err != nil {
		s.logger.Warn("failed to refresh feed", "error", err)
	}
	if !s.hasMore {
		metrics.RecordLoad(metrics.LoadSkipped)
		return false
	}

	loadCtx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	s.loading = true
	s.loadCancel = cancel
	s.done = done

	// The timer is armed before the goroutine starts so a manual clock sees
	// it as soon as LoadMore returns.
	timer := s.feed.opts.Clock.After(s.feed.opts.LoadDelay)
	go s.runLoad(loadCtx, s.generation, timer, done)
	return true
}

func (s *FeedSession) runLoad(ctx context.Context, gen uint64, timer <-chan time.Time, done chan struct{}) {
	defer close(done)

	select {
	case <-ctx.Done():
		s.finishCancelled(gen)
		return
	case <-timer:
	}

	s.mu.Lock()
	if s.generation != gen || ctx.Err() != nil {
		s.mu.Unlock()
		s.finishCancelled(gen)
		return
	}
	if err := s.refreshLocked(ctx); err != nil {
		s.finishLocked(gen, metrics.LoadFailed)
		s.mu.Unlock()
		s.logger.Error("load more failed", "error", err)
		return
	}
	if s.windowSize < len(s.results) {
		s.windowSize += s.feed.opts.PageSize
		s.hasMore = s.computeHasMore(ctx)
		s.finishLocked(gen, metrics.LoadExtended)
		s.mu.Unlock()
		return
	}
	category, mode := s.category, s.sort
	s.mu.Unlock()

	// The window covers every result: grow the store instead of the window.
	added, err := s.feed.Grow(ctx, s.feed.opts.PageSize)
	outcome := metrics.LoadGenerated
	switch {
	case errors.Is(err, ErrStoreFull):
		outcome = metrics.LoadExhausted
	case ctx.Err() != nil:
		s.finishCancelled(gen)
		return
	case err != nil:
		s.logger.Error("failed to grow store", "error", err)
		outcome = metrics.LoadFailed
	}

	results, version, qerr := s.feed.Query(ctx, category, mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		metrics.RecordLoad(metrics.LoadCancelled)
		return
	}
	if qerr == nil {
		s.results = results
		s.version = version
	} else if outcome != metrics.LoadFailed {
		s.logger.Error("failed to query grown store", "error", qerr)
		outcome = metrics.LoadFailed
	}
	s.hasMore = s.computeHasMore(ctx)
	s.finishLocked(gen, outcome)
	s.logger.Debug("store grown by load more", "added", added, "results", len(s.results))
}

func (s *FeedSession) finishCancelled(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(gen, metrics.LoadCancelled)
}

// finishLocked clears the loading flag if the load still belongs to the
// current generation.
func (s *FeedSession) finishLocked(gen uint64, outcome string) {
	metrics.RecordLoad(outcome)
	if s.generation != gen {
		return
	}
	s.loading = false
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
}

func (s *FeedSession) cancelLoadLocked() {
	s.generation++
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	s.loading = false
}

// refreshLocked re-runs the query when the store changed since the results
// were computed. The window size is kept.
func (s *FeedSession) refreshLocked(ctx context.Context) error {
	if s.feed.Version() == s.version {
		return nil
	}
	results, version, err := s.feed.Query(ctx, s.category, s.sort)
	if err != nil {
		return err
	}
	s.results = results
	s.version = version
	s.hasMore = s.computeHasMore(ctx)
	return nil
}

func (s *FeedSession) computeHasMore(ctx context.Context) bool {
	if len(s.results) > s.windowSize {
		return true
	}
	return s.feed.opts.Endless && s.feed.CanGrow(ctx)
}

// Wait blocks until the load in flight, if any, has finished.
func (s *FeedSession) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for feed load: %w", ctx.Err())
	}
}

// Snapshot returns the visible window and flags. Results are recomputed
// first if the store changed and no load is in flight.
func (s *FeedSession) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Snapshot{}, ErrSessionClosed
	}
	s.touchLocked()
	if !s.loading {
		if err := s.refreshLocked(ctx); err != nil {
			return Snapshot{}, err
		}
	}

	visible := s.results[:min(s.windowSize, len(s.results))]
	posts := make([]models.Post, len(visible))
	for i := range visible {
		posts[i] = visible[i].Clone()
	}
	return Snapshot{
		ID:       s.id,
		Category: s.category,
		Sort:     s.sort,
		Posts:    posts,
		Loading:  s.loading,
		HasMore:  s.hasMore,
		Total:    len(s.results),
		Version:  s.version,
	}, nil
}

// Close cancels any load in flight. Further calls fail with ErrSessionClosed.
func (s *FeedSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelLoadLocked()
	s.cancel()
}

// LastActive is the time of the last reset, load or snapshot.
func (s *FeedSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *FeedSession) touchLocked() {
	s.lastActive = s.feed.opts.Clock.Now()
}

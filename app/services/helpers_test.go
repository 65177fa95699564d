package services

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"bridgeus/app/logging"
	"bridgeus/app/models"
	"bridgeus/app/repositories/memory"
	"bridgeus/app/seed"

	"github.com/stretchr/testify/require"
)

// manualClock fires After channels only when the test advances it.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.timers = append(c.timers, ch)
	return ch
}

// Advance moves the clock and fires every pending timer.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, ch := range c.timers {
		ch <- c.now
	}
	c.timers = nil
}

type testFeed struct {
	feed  *FeedService
	store *memory.PostStore
	clock *manualClock
	data  *seed.Data
}

func newTestFeed(t *testing.T, opts FeedOptions) *testFeed {
	t.Helper()

	data := seed.MustLoad()
	clock := newManualClock()
	opts.Clock = clock
	store := memory.NewPostStore()
	gen := NewGenerator(data.Templates, len(data.Posts), rand.New(rand.NewPCG(1, 2)))
	feed := NewFeedService(store, gen, opts, logging.Discard())

	seeded, err := feed.Seed(context.Background(), data.Posts)
	require.NoError(t, err)
	require.True(t, seeded)

	return &testFeed{feed: feed, store: store, clock: clock, data: data}
}

func (tf *testFeed) storeLen(t *testing.T) int {
	t.Helper()
	n, err := tf.store.Len(context.Background())
	require.NoError(t, err)
	return n
}

func postIDs(posts []models.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

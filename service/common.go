package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"bridgeus/app/config"
	"bridgeus/app/logging"
	"bridgeus/app/repositories"
	"bridgeus/app/repositories/memory"
	"bridgeus/app/seed"
	"bridgeus/app/services"

	"github.com/dgraph-io/badger/v4"
)

// Version is the CLI version, overridden at build time with -ldflags.
var Version = "1.0.0"

// stores holds the repositories of the configured backend.
type stores struct {
	posts   repositories.PostStore
	replies repositories.ReplyRepository
	db      *badger.DB
}

func openStores(cfg config.StoreConfig) (*stores, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		db, err := repositories.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &stores{
			posts:   repositories.NewBadgerPostStore(db),
			replies: repositories.NewBadgerReplyRepository(db),
			db:      db,
		}, nil
	case config.BackendMemory, "":
		return &stores{
			posts:   memory.NewPostStore(),
			replies: memory.NewReplyRepository(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func feedOptions(cfg config.FeedConfig) services.FeedOptions {
	opts := services.DefaultFeedOptions()
	opts.PageSize = cfg.PageSize
	opts.LoadDelay = cfg.LoadDelay
	opts.Endless = cfg.Endless
	opts.MaxPosts = cfg.MaxPosts
	return opts
}

// newFeed builds the feed service over posts and seeds it if the store is
// empty.
func newFeed(ctx context.Context, opts services.FeedOptions, posts repositories.PostStore, logger *slog.Logger) (*services.FeedService, error) {
	data, err := seed.Load()
	if err != nil {
		return nil, err
	}
	gen := services.NewGenerator(data.Templates, len(data.Posts), nil)
	feed := services.NewFeedService(posts, gen, opts, logger)
	if _, err := feed.Seed(ctx, data.Posts); err != nil {
		return nil, err
	}
	return feed, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	return logging.New(w, cfg.Level, cfg.Format)
}

package repositories

import (
	"context"
	"fmt"
	"sync/atomic"

	"bridgeus/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostStore implements PostStore using BadgerDB. Posts are stored under
// a zero-padded sequence key so a prefix scan returns them in insertion
// order; a second key maps each post id to its sequence key.
type BadgerPostStore struct {
	db      *badger.DB
	version atomic.Uint64
}

// NewBadgerPostStore creates a new BadgerPostStore
func NewBadgerPostStore(db *badger.DB) *BadgerPostStore {
	return &BadgerPostStore{db: db}
}

// Append stores posts in one transaction.
func (r *BadgerPostStore) Append(ctx context.Context, posts ...models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(posts) == 0 {
		return nil
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		batch := make(map[string]bool, len(posts))
		for i := range posts {
			post := posts[i].Clone()
			if batch[post.ID] {
				return fmt.Errorf("%w: %s", ErrDuplicateID, post.ID)
			}
			batch[post.ID] = true

			idKey := []byte(PostIDKeyPrefix + post.ID)
			_, err := txn.Get(idKey)
			if err == nil {
				return fmt.Errorf("%w: %s", ErrDuplicateID, post.ID)
			}
			if err != badger.ErrKeyNotFound {
				return err
			}

			seq, err := getNextID(txn, PostSeqKey)
			if err != nil {
				return err
			}
			data, err := marshalEntity(post)
			if err != nil {
				return err
			}
			key := sequenceKey(PostKeyPrefix, seq)
			if err := txn.Set(key, data); err != nil {
				return err
			}
			if err := txn.Set(idKey, key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.version.Add(1)
	return nil
}

// All returns every post in insertion order.
func (r *BadgerPostStore) All(ctx context.Context) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var posts []models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			posts = append(posts, post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Get retrieves a post by ID
func (r *BadgerPostStore) Get(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	if err := ctx.Err(); err != nil {
		return post, err
	}

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(PostIDKeyPrefix + id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err = txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return unmarshalEntity(val, &post)
		})
	})
	return post, err
}

// Len counts stored posts without decoding them.
func (r *BadgerPostStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Version returns the number of successful appends made through this store.
func (r *BadgerPostStore) Version() uint64 {
	return r.version.Load()
}

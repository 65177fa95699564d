package repositories

import (
	"context"
	"fmt"
	"testing"

	"bridgeus/app/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *badger.DB {
	db, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testPost(n int) models.Post {
	return models.Post{
		ID:     fmt.Sprintf("post-%d", n),
		Title:  fmt.Sprintf("Post number %d", n),
		Tags:   []string{"Visa"},
		Author: models.Author{Name: "Sarah Chen"},
	}
}

func TestBadgerPostStore(t *testing.T) {
	ctx := context.Background()
	store := NewBadgerPostStore(setupTestDB(t))

	t.Run("append keeps insertion order past ten records", func(t *testing.T) {
		var batch []models.Post
		for i := 1; i <= 12; i++ {
			batch = append(batch, testPost(i))
		}
		require.NoError(t, store.Append(ctx, batch...))

		all, err := store.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 12)
		for i, p := range all {
			assert.Equal(t, fmt.Sprintf("post-%d", i+1), p.ID)
		}
		assert.Equal(t, uint64(1), store.Version())
	})

	t.Run("get by id", func(t *testing.T) {
		post, err := store.Get(ctx, "post-10")
		require.NoError(t, err)
		assert.Equal(t, "Post number 10", post.Title)

		_, err = store.Get(ctx, "post-999")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate id rejects whole batch", func(t *testing.T) {
		err := store.Append(ctx, testPost(13), testPost(3))
		assert.ErrorIs(t, err, ErrDuplicateID)

		n, err := store.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 12, n)
		_, err = store.Get(ctx, "post-13")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, uint64(1), store.Version())
	})

	t.Run("duplicate within batch", func(t *testing.T) {
		err := store.Append(ctx, testPost(20), testPost(20))
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("returned posts are copies", func(t *testing.T) {
		all, err := store.All(ctx)
		require.NoError(t, err)
		all[0].Tags[0] = "mutated"

		again, err := store.Get(ctx, all[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Visa", again.Tags[0])
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, store.Append(cctx, testPost(30)), context.Canceled)
		_, err := store.All(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGetNextID(t *testing.T) {
	db := setupTestDB(t)

	t.Run("sequential IDs", func(t *testing.T) {
		err := db.Update(func(txn *badger.Txn) error {
			for i := uint64(1); i <= 5; i++ {
				id, err := getNextID(txn, PostSeqKey)
				assert.NoError(t, err)
				assert.Equal(t, i, id)
			}
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("different sequence keys", func(t *testing.T) {
		err := db.Update(func(txn *badger.Txn) error {
			id, err := getNextID(txn, ReplySeqKey)
			assert.NoError(t, err)
			assert.Equal(t, uint64(1), id, "Reply sequence should start from 1")
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("persistence", func(t *testing.T) {
		var got uint64
		err := db.Update(func(txn *badger.Txn) error {
			var err error
			got, err = getNextID(txn, PostSeqKey)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(6), got)
	})
}

func TestSequenceKeyOrdering(t *testing.T) {
	assert.Less(t, string(sequenceKey(PostKeyPrefix, 9)), string(sequenceKey(PostKeyPrefix, 10)))
	assert.Equal(t, "post:000000000042", string(sequenceKey(PostKeyPrefix, 42)))
}

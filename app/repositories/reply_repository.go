package repositories

import (
	"context"
	"fmt"

	"bridgeus/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerReplyRepository implements ReplyRepository using BadgerDB
type BadgerReplyRepository struct {
	db *badger.DB
}

// NewBadgerReplyRepository creates a new BadgerReplyRepository
func NewBadgerReplyRepository(db *badger.DB) *BadgerReplyRepository {
	return &BadgerReplyRepository{db: db}
}

func replyPostPrefix(postID string) string {
	return ReplyKeyPrefix + postID + ":"
}

// Create creates a new reply
func (r *BadgerReplyRepository) Create(ctx context.Context, reply *models.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		seq, err := getNextID(txn, ReplySeqKey)
		if err != nil {
			return err
		}
		reply.ID = int(seq)

		data, err := marshalEntity(reply)
		if err != nil {
			return err
		}

		// Post ID in key for efficient listing
		return txn.Set(sequenceKey(replyPostPrefix(reply.PostID), seq), data)
	})
}

// ListByPost retrieves all replies for a post, oldest first
func (r *BadgerReplyRepository) ListByPost(ctx context.Context, postID string) ([]*models.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var replies []*models.Reply
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(replyPostPrefix(postID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var reply models.Reply
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &reply)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal reply: %w", err)
			}
			replies = append(replies, &reply)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

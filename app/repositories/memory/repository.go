// Package memory provides in-process implementations of the repository
// interfaces. They are the default backend and the one tests use.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bridgeus/app/models"
	"bridgeus/app/repositories"
)

type PostStore struct {
	posts   []models.Post
	index   map[string]int
	version uint64
	mutex   sync.RWMutex
}

type ReplyRepository struct {
	replies []*models.Reply
	nextID  int
	mutex   sync.RWMutex
}

func NewPostStore() *PostStore {
	return &PostStore{
		index: make(map[string]int),
	}
}

func NewReplyRepository() *ReplyRepository {
	return &ReplyRepository{nextID: 1}
}

// PostStore implementation
func (m *PostStore) Append(ctx context.Context, posts ...models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(posts) == 0 {
		return nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	batch := make(map[string]bool, len(posts))
	for _, post := range posts {
		if _, exists := m.index[post.ID]; exists || batch[post.ID] {
			return fmt.Errorf("%w: %s", repositories.ErrDuplicateID, post.ID)
		}
		batch[post.ID] = true
	}

	for _, post := range posts {
		m.index[post.ID] = len(m.posts)
		m.posts = append(m.posts, post.Clone())
	}
	m.version++
	return nil
}

func (m *PostStore) All(ctx context.Context) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	posts := make([]models.Post, len(m.posts))
	for i, post := range m.posts {
		posts[i] = post.Clone()
	}
	return posts, nil
}

func (m *PostStore) Get(ctx context.Context, id string) (models.Post, error) {
	if err := ctx.Err(); err != nil {
		return models.Post{}, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	i, exists := m.index[id]
	if !exists {
		return models.Post{}, repositories.ErrNotFound
	}
	return m.posts[i].Clone(), nil
}

func (m *PostStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.posts), nil
}

func (m *PostStore) Version() uint64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.version
}

// ReplyRepository implementation
func (m *ReplyRepository) Create(ctx context.Context, reply *models.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	reply.ID = m.nextID
	m.nextID++
	stored := *reply
	m.replies = append(m.replies, &stored)
	return nil
}

func (m *ReplyRepository) ListByPost(ctx context.Context, postID string) ([]*models.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var replies []*models.Reply
	for _, reply := range m.replies {
		if reply.PostID == postID {
			r := *reply
			replies = append(replies, &r)
		}
	}
	return replies, nil
}

var (
	_ repositories.PostStore       = (*PostStore)(nil)
	_ repositories.ReplyRepository = (*ReplyRepository)(nil)
	_ repositories.PostStore       = (*repositories.BadgerPostStore)(nil)
	_ repositories.ReplyRepository = (*repositories.BadgerReplyRepository)(nil)
)

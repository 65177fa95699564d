package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bridgeus/app/metrics"
	"bridgeus/app/models"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// SessionManager keeps the open feed sessions of the HTTP binding by id.
type SessionManager struct {
	feed    *FeedService
	idleTTL time.Duration
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*FeedSession
}

// NewSessionManager creates a manager whose sessions are closed after idleTTL
// without activity, once Sweep runs.
func NewSessionManager(feed *FeedService, idleTTL time.Duration, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionManager{
		feed:     feed,
		idleTTL:  idleTTL,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*FeedSession),
	}
}

// Create opens a session reset to category and mode.
func (m *SessionManager) Create(ctx context.Context, category string, mode models.SortMode) (*FeedSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	session, err := NewFeedSession(m.ctx, id, m.feed, category, mode)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = session
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	m.logger.Info("feed session opened", "session_id", id, "category", category, "sort", mode)
	return session, nil
}

// Get returns the session with id or ErrSessionNotFound.
func (m *SessionManager) Get(id string) (*FeedSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close closes and forgets the session with id.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	metrics.ActiveSessions.Set(float64(n))
	m.logger.Info("feed session closed", "session_id", id)
	return nil
}

// Len returns the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes every session idle since before now minus the idle TTL and
// returns how many it closed.
func (m *SessionManager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*FeedSession
	for id, session := range m.sessions {
		if session.LastActive().Before(cutoff) {
			idle = append(idle, session)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, session := range idle {
		session.Close()
	}
	if len(idle) > 0 {
		metrics.SessionsSweptTotal.Add(float64(len(idle)))
		m.logger.Info("swept idle feed sessions", "closed", len(idle), "open", n)
	}
	metrics.ActiveSessions.Set(float64(n))
	return len(idle)
}

// StartSweeper schedules Sweep on a cron spec such as "@every 1m". Stop the
// returned cron to end it.
func (m *SessionManager) StartSweeper(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		m.Sweep(m.feed.opts.Clock.Now())
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// CloseAll closes every session and cancels their loads.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*FeedSession)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	m.cancel()
	metrics.ActiveSessions.Set(0)
}

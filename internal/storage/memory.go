package storage

import (
	"context"
	"sync"
	"time"

	"roast-backend/internal/model"
)

type MemoryStorage struct {
	sessions map[string]*model.Session
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*model.Session),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return cloneSession(session), nil
}

func (m *MemoryStorage) SaveSession(ctx context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.ID] = cloneSession(session)
	return nil
}

func (m *MemoryStorage) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return ErrSessionNotFound
	}

	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStorage) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if session.UpdatedAt.Before(before) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

package storage

import (
	"context"
	"fmt"
	"time"

	"roast-backend/internal/config"
	"roast-backend/internal/model"
)

// Storage keeps conversations for the server-side state mode.
type Storage interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	SaveSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	// PurgeExpired removes sessions not updated since before and reports
	// how many were removed.
	PurgeExpired(ctx context.Context, before time.Time) (int, error)

	Init() error
	Close() error
}

// New builds the store selected by cfg.Store and initializes it.
func New(cfg config.StateConfig) (Storage, error) {
	var store Storage
	switch cfg.Store {
	case config.StoreMemory:
		store = NewMemoryStorage()
	case config.StoreDisk:
		store = NewDiskStorage(cfg.DataDir)
	case config.StoreRedis:
		rs, err := NewRedisStorage(cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, err
		}
		store = rs
	default:
		return nil, fmt.Errorf("unsupported state store: %q", cfg.Store)
	}

	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}

func cloneSession(s *model.Session) *model.Session {
	out := *s
	out.Messages = s.Messages.Clone()
	return &out
}

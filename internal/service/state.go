package service

import (
	"context"
	"errors"
	"time"

	"roast-backend/internal/conversation"
	"roast-backend/internal/model"
	"roast-backend/internal/storage"
	"roast-backend/pkg/logger"

	"github.com/google/uuid"
)

// StateKeeper decides where a conversation comes from at the start of a
// turn and where it goes after a successful one.
type StateKeeper interface {
	// Load returns the conversation to continue and the session ID it
	// belongs to (empty in client mode).
	Load(ctx context.Context, sessionID, encoded string) (model.Conversation, string)
	Save(ctx context.Context, sessionID string, conv model.Conversation)
	Reset(ctx context.Context, sessionID string)
}

// ClientState trusts the conversation echoed back by the browser.
type ClientState struct{}

func (ClientState) Load(ctx context.Context, sessionID, encoded string) (model.Conversation, string) {
	conv, err := conversation.DecodeReport(encoded)
	if err != nil {
		logger.Warnf("discarding unreadable conversation field: %v", err)
	}
	return conv, ""
}

func (ClientState) Save(ctx context.Context, sessionID string, conv model.Conversation) {}

func (ClientState) Reset(ctx context.Context, sessionID string) {}

// ServerState keeps conversations in a Storage keyed by an opaque UUID and
// ignores any conversation the client sends.
type ServerState struct {
	store storage.Storage
	now   func() time.Time
}

func NewServerState(store storage.Storage) *ServerState {
	return &ServerState{store: store, now: time.Now}
}

func (s *ServerState) Load(ctx context.Context, sessionID, encoded string) (model.Conversation, string) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return model.Conversation{}, uuid.NewString()
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			logger.Errorf("failed to load session %s, starting fresh: %v", sessionID, err)
		}
		return model.Conversation{}, sessionID
	}
	return session.Messages.Clone(), sessionID
}

func (s *ServerState) Save(ctx context.Context, sessionID string, conv model.Conversation) {
	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		Messages:  conv,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.store.GetSession(ctx, sessionID); err == nil {
		session.CreatedAt = existing.CreatedAt
	}

	if err := s.store.SaveSession(ctx, session); err != nil {
		logger.Errorf("failed to save session %s: %v", sessionID, err)
	}
}

func (s *ServerState) Reset(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		logger.Errorf("failed to reset session %s: %v", sessionID, err)
	}
}

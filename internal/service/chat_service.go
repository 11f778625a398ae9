package service

import (
	"context"
	"sync"
	"time"

	"roast-backend/internal/config"
	"roast-backend/internal/model"
	"roast-backend/internal/storage"
	"roast-backend/pkg/logger"
)

// TurnInput is the raw form data of one turn.
type TurnInput struct {
	UserInput    string
	Conversation string
	SessionID    string
}

// ChatService ties the roast exchange to the configured state mode.
type ChatService struct {
	roast *RoastService
	state StateKeeper
	store storage.Storage
	cfg   config.StateConfig

	stopOnce sync.Once
	stop     chan struct{}
}

// NewChatService wires the exchange to client-echo state, or to store when
// cfg.Mode is server. store may be nil in client mode.
func NewChatService(roast *RoastService, cfg config.StateConfig, store storage.Storage) *ChatService {
	cs := &ChatService{
		roast: roast,
		state: ClientState{},
		cfg:   cfg,
		stop:  make(chan struct{}),
	}

	if cfg.Mode == config.StateModeServer && store != nil {
		cs.store = store
		cs.state = NewServerState(store)
		if cfg.CleanupInterval > 0 && cfg.TTL > 0 {
			go cs.cleanupOldSessions()
		}
	}

	return cs
}

// Turn runs one exchange. Only a successful turn is written back to state.
func (s *ChatService) Turn(ctx context.Context, in TurnInput) model.TurnResult {
	conv, sessionID := s.state.Load(ctx, in.SessionID, in.Conversation)

	result := s.roast.Exchange(ctx, model.TurnRequest{
		Conversation: conv,
		UserInput:    in.UserInput,
	})
	if !result.Failed() {
		s.state.Save(ctx, sessionID, result.Conversation)
	}

	result.SessionID = sessionID
	return result
}

// Reset starts a new conversation.
func (s *ChatService) Reset(ctx context.Context, sessionID string) model.ResetResponse {
	s.state.Reset(ctx, sessionID)
	return model.ResetResponse{Conversation: model.Conversation{}}
}

func (s *ChatService) Mode() string {
	if s.store != nil {
		return config.StateModeServer
	}
	return config.StateModeClient
}

func (s *ChatService) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *ChatService) cleanupOldSessions() {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.TTL)
			removed, err := s.store.PurgeExpired(context.Background(), cutoff)
			if err != nil {
				logger.Errorf("Failed to purge expired sessions: %v", err)
			}
			if removed > 0 {
				logger.Infof("Cleaned up %d expired sessions", removed)
			}
		case <-s.stop:
			return
		}
	}
}

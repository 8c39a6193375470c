package service

import (
	"context"
	"fmt"
	"time"

	"skhpc/internal/domain"
	"skhpc/internal/models"

	"github.com/rs/zerolog"
)

// ErrRateLimited is returned when a session exceeds its message budget.
var ErrRateLimited = fmt.Errorf("%w: too many messages, slow down", domain.ErrValidation)

// ChatService ties sessions to the agent: load state, run the turn, persist
// state. Session state is only saved after a successful turn, so an agent
// failure leaves the previous persisted state intact and the turn retryable.
type ChatService struct {
	sessions  domain.SessionRepository
	agent     domain.ConversationAgent
	rateLimit int
	rateWin   time.Duration
	logger    *zerolog.Logger
}

func NewChatService(sessions domain.SessionRepository, ag domain.ConversationAgent, rateLimit int, rateWindow time.Duration, logger *zerolog.Logger) *ChatService {
	if rateLimit <= 0 {
		rateLimit = models.RateLimitMessages
	}
	if rateWindow <= 0 {
		rateWindow = models.RateLimitWindow * time.Second
	}
	return &ChatService{
		sessions:  sessions,
		agent:     ag,
		rateLimit: rateLimit,
		rateWin:   rateWindow,
		logger:    logger,
	}
}

// HandleMessage processes one user message within a session.
func (s *ChatService) HandleMessage(ctx context.Context, sessionID, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%w: empty message", domain.ErrValidation)
	}

	allowed, err := s.sessions.CheckRateLimit(ctx, sessionID, s.rateLimit, s.rateWin)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("rate limit check failed, allowing")
	} else if !allowed {
		return "", ErrRateLimited
	}

	state, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if state == nil {
		state = &models.SessionState{ID: sessionID}
	}

	reply, err := s.agent.HandleMessage(ctx, state, text)
	if err != nil {
		return "", err
	}

	if reply.ResetConversation {
		state.ResetTranscript()
	}
	state.UpdatedAt = time.Now().UTC()

	if err := s.sessions.SaveSession(ctx, state); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to save session")
	}

	return reply.Text, nil
}

// Reset drops a session entirely.
func (s *ChatService) Reset(ctx context.Context, sessionID string) error {
	return s.sessions.ClearSession(ctx, sessionID)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"skhpc/internal/domain"
	"skhpc/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	states    map[string]*models.SessionState
	saved     []*models.SessionState
	getErr    error
	saveErr   error
	rateErr   error
	rateAllow bool
	cleared   []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{states: map[string]*models.SessionState{}, rateAllow: true}
}

func (f *fakeSessions) GetSession(ctx context.Context, sessionID string) (*models.SessionState, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.states[sessionID], nil
}

func (f *fakeSessions) SaveSession(ctx context.Context, state *models.SessionState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.states[state.ID] = state
	f.saved = append(f.saved, state)
	return nil
}

func (f *fakeSessions) ClearSession(ctx context.Context, sessionID string) error {
	delete(f.states, sessionID)
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func (f *fakeSessions) CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error) {
	if f.rateErr != nil {
		return false, f.rateErr
	}
	return f.rateAllow, nil
}

type fakeAgent struct {
	reply    *domain.AgentReply
	err      error
	gotState *models.SessionState
	gotText  string
}

func (f *fakeAgent) HandleMessage(ctx context.Context, state *models.SessionState, text string) (*domain.AgentReply, error) {
	f.gotState = state
	f.gotText = text
	if f.err != nil {
		return nil, f.err
	}
	state.Append(models.ChatMessage{Role: models.RoleUser, Text: text})
	return f.reply, nil
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyMessage", func(t *testing.T) {
		svc := NewChatService(newFakeSessions(), &fakeAgent{}, 0, 0, discardLogger())
		_, err := svc.HandleMessage(ctx, "s1", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("FreshSessionIsCreatedAndSaved", func(t *testing.T) {
		sessions := newFakeSessions()
		ag := &fakeAgent{reply: &domain.AgentReply{Text: "hello"}}
		svc := NewChatService(sessions, ag, 0, 0, discardLogger())

		text, err := svc.HandleMessage(ctx, "s1", "hi")
		require.NoError(t, err)
		assert.Equal(t, "hello", text)

		require.Len(t, sessions.saved, 1)
		saved := sessions.saved[0]
		assert.Equal(t, "s1", saved.ID)
		assert.False(t, saved.UpdatedAt.IsZero())
		assert.Equal(t, "hi", ag.gotText)
	})

	t.Run("ExistingStateIsReused", func(t *testing.T) {
		sessions := newFakeSessions()
		prior := &models.SessionState{ID: "s1"}
		prior.Append(models.ChatMessage{Role: models.RoleUser, Text: "earlier"})
		sessions.states["s1"] = prior

		ag := &fakeAgent{reply: &domain.AgentReply{Text: "ok"}}
		svc := NewChatService(sessions, ag, 0, 0, discardLogger())

		_, err := svc.HandleMessage(ctx, "s1", "again")
		require.NoError(t, err)
		assert.Same(t, prior, ag.gotState)
	})

	t.Run("AgentErrorSkipsSave", func(t *testing.T) {
		sessions := newFakeSessions()
		ag := &fakeAgent{err: domain.ErrAgentUnavailable}
		svc := NewChatService(sessions, ag, 0, 0, discardLogger())

		_, err := svc.HandleMessage(ctx, "s1", "hi")
		assert.ErrorIs(t, err, domain.ErrAgentUnavailable)
		assert.Empty(t, sessions.saved)
	})

	t.Run("ResetConversationDropsTranscript", func(t *testing.T) {
		sessions := newFakeSessions()
		ag := &fakeAgent{reply: &domain.AgentReply{Text: "booked", ResetConversation: true}}
		svc := NewChatService(sessions, ag, 0, 0, discardLogger())

		_, err := svc.HandleMessage(ctx, "s1", "yes")
		require.NoError(t, err)
		require.Len(t, sessions.saved, 1)
		assert.Empty(t, sessions.saved[0].Transcript)
	})

	t.Run("RateLimited", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.rateAllow = false
		svc := NewChatService(sessions, &fakeAgent{}, 0, 0, discardLogger())

		_, err := svc.HandleMessage(ctx, "s1", "hi")
		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("RateLimitErrorAllowsTurn", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.rateErr = errors.New("redis down")
		ag := &fakeAgent{reply: &domain.AgentReply{Text: "ok"}}
		svc := NewChatService(sessions, ag, 0, 0, discardLogger())

		text, err := svc.HandleMessage(ctx, "s1", "hi")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	})

	t.Run("SaveFailureDoesNotFailTurn", func(t *testing.T) {
		sessions := newFakeSessions()
		sessions.saveErr = errors.New("redis down")
		ag := &fakeAgent{reply: &domain.AgentReply{Text: "ok"}}
		svc := NewChatService(sessions, ag, 0, 0, discardLogger())

		text, err := svc.HandleMessage(ctx, "s1", "hi")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	})
}

func TestReset(t *testing.T) {
	sessions := newFakeSessions()
	sessions.states["s1"] = &models.SessionState{ID: "s1"}
	svc := NewChatService(sessions, &fakeAgent{}, 0, 0, discardLogger())

	require.NoError(t, svc.Reset(context.Background(), "s1"))
	assert.Equal(t, []string{"s1"}, sessions.cleared)
}

package agent

import (
	"context"
	"fmt"
	"time"

	"skhpc/internal/domain"
	"skhpc/internal/metrics"
	"skhpc/internal/models"
	"skhpc/internal/tools"

	"github.com/rs/zerolog"
)

// Agent runs the tool-calling loop for one user turn: send the message, let
// the model request tools, execute them, feed results back, repeat until the
// model answers in text or the round cap is hit. Model failures surface as
// ErrAgentUnavailable; tool failures never do, they go back to the model as
// payloads.
type Agent struct {
	client     ModelClient
	dispatcher *tools.Dispatcher
	timeout    time.Duration
	maxRounds  int
	logger     *zerolog.Logger
}

func New(client ModelClient, dispatcher *tools.Dispatcher, timeout time.Duration, maxRounds int, logger *zerolog.Logger) *Agent {
	if maxRounds <= 0 {
		maxRounds = models.AgentMaxToolRounds
	}
	return &Agent{
		client:     client,
		dispatcher: dispatcher,
		timeout:    timeout,
		maxRounds:  maxRounds,
		logger:     logger,
	}
}

// HandleMessage runs one full user turn and appends every exchange to the
// session transcript. The transcript is only extended, never rewritten, so a
// failed turn leaves the persisted state usable.
func (a *Agent) HandleMessage(ctx context.Context, state *models.SessionState, userText string) (*domain.AgentReply, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	conv := a.client.Start(state.Transcript)
	started := time.Now()

	completion, err := conv.SendText(ctx, userText)
	if err != nil {
		metrics.IncAgentRequest("error")
		return nil, fmt.Errorf("%w: %v", domain.ErrAgentUnavailable, err)
	}

	state.Append(models.ChatMessage{Role: models.RoleUser, Text: userText})

	reply := &domain.AgentReply{}
	for round := 0; len(completion.ToolCalls) > 0; round++ {
		state.Append(models.ChatMessage{
			Role:      models.RoleModel,
			Text:      completion.Text,
			ToolCalls: completion.ToolCalls,
		})

		if round >= a.maxRounds {
			a.logger.Warn().Str("session_id", state.ID).Int("rounds", round).Msg("tool round cap reached")
			metrics.IncAgentRequest("round_cap")
			return nil, fmt.Errorf("%w: tool round limit exceeded", domain.ErrAgentUnavailable)
		}

		results := make([]models.ToolResult, 0, len(completion.ToolCalls))
		for _, call := range completion.ToolCalls {
			resp := a.dispatcher.Dispatch(ctx, state, call)
			if reset, ok := resp["conversation_reset"].(bool); ok && reset {
				reply.ResetConversation = true
			}
			results = append(results, models.ToolResult{Name: call.Name, Response: resp})
		}
		state.Append(models.ChatMessage{Role: models.RoleFunction, ToolResults: results})

		completion, err = conv.SendToolResults(ctx, results)
		if err != nil {
			metrics.IncAgentRequest("error")
			return nil, fmt.Errorf("%w: %v", domain.ErrAgentUnavailable, err)
		}
	}

	state.Append(models.ChatMessage{Role: models.RoleModel, Text: completion.Text})

	metrics.IncAgentRequest("ok")
	metrics.ObserveAgentLatency(time.Since(started).Seconds())

	reply.Text = completion.Text
	return reply, nil
}

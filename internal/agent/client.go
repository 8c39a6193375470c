package agent

import (
	"context"

	"skhpc/internal/models"
)

// Completion is one model turn: free text, tool invocation requests, or both.
type Completion struct {
	Text      string
	ToolCalls []models.ToolCall
}

// Conversation is a stateful exchange with the model. Tool results must be
// sent on the same conversation that requested them.
type Conversation interface {
	SendText(ctx context.Context, text string) (*Completion, error)
	SendToolResults(ctx context.Context, results []models.ToolResult) (*Completion, error)
}

// ModelClient opens conversations against a language model, replaying the
// persisted transcript as history.
type ModelClient interface {
	Start(history []models.ChatMessage) Conversation
	Close() error
}

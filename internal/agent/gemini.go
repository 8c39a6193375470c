package agent

import (
	"context"
	"fmt"
	"strings"

	"skhpc/internal/models"
	"skhpc/internal/tools"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient adapts the Gemini API to the ModelClient interface, with the
// tool menu and system prompt attached to every conversation.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiClient builds a client against the given model name, for example
// "models/gemini-1.5-pro".
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.Tools = tools.Menu()
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) Start(history []models.ChatMessage) Conversation {
	chat := g.model.StartChat()
	chat.History = toGenaiHistory(history)
	return &geminiConversation{chat: chat}
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

type geminiConversation struct {
	chat *genai.ChatSession
}

func (c *geminiConversation) SendText(ctx context.Context, text string) (*Completion, error) {
	resp, err := c.chat.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini send error: %w", err)
	}
	return parseResponse(resp)
}

func (c *geminiConversation) SendToolResults(ctx context.Context, results []models.ToolResult) (*Completion, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{Name: r.Name, Response: r.Response})
	}

	resp, err := c.chat.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini send error: %w", err)
	}
	return parseResponse(resp)
}

func parseResponse(resp *genai.GenerateContentResponse) (*Completion, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	completion := &Completion{}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			sb.WriteString(string(p))
		case genai.FunctionCall:
			completion.ToolCalls = append(completion.ToolCalls, models.ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	completion.Text = sb.String()
	return completion, nil
}

// toGenaiHistory replays the persisted transcript in wire form. Function
// results follow the model turn that requested them, matching what the API
// saw during the original exchange.
func toGenaiHistory(history []models.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case models.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Text)},
			})

		case models.RoleModel:
			parts := make([]genai.Part, 0, 1+len(msg.ToolCalls))
			if msg.Text != "" {
				parts = append(parts, genai.Text(msg.Text))
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Args})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})

		case models.RoleFunction:
			parts := make([]genai.Part, 0, len(msg.ToolResults))
			for _, r := range msg.ToolResults {
				parts = append(parts, genai.FunctionResponse{Name: r.Name, Response: r.Response})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: "function", Parts: parts})
		}
	}
	return contents
}

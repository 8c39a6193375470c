package agent

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"skhpc/internal/catalog"
	"skhpc/internal/domain"
	"skhpc/internal/ledger"
	"skhpc/internal/models"
	"skhpc/internal/service"
	"skhpc/internal/tools"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedConversation plays back a fixed sequence of completions, one per
// SendText/SendToolResults call.
type scriptedConversation struct {
	script     []*Completion
	errs       []error
	calls      int
	gotText    string
	gotResults [][]models.ToolResult
}

func (c *scriptedConversation) next() (*Completion, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.script) {
		return &Completion{Text: "done"}, nil
	}
	return c.script[i], nil
}

func (c *scriptedConversation) SendText(ctx context.Context, text string) (*Completion, error) {
	c.gotText = text
	return c.next()
}

func (c *scriptedConversation) SendToolResults(ctx context.Context, results []models.ToolResult) (*Completion, error) {
	c.gotResults = append(c.gotResults, results)
	return c.next()
}

type scriptedClient struct {
	conv       *scriptedConversation
	gotHistory []models.ChatMessage
}

func (c *scriptedClient) Start(history []models.ChatMessage) Conversation {
	c.gotHistory = history
	return c.conv
}

func (c *scriptedClient) Close() error { return nil }

type memStore struct {
	mu       sync.Mutex
	snapshot []models.Booking
}

func (s *memStore) LoadAll(ctx context.Context) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Booking, len(s.snapshot))
	copy(out, s.snapshot)
	return out, nil
}

func (s *memStore) ReplaceAll(ctx context.Context, bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = make([]models.Booking, len(bookings))
	copy(s.snapshot, bookings)
	return nil
}

func testDispatcher(t *testing.T) (*tools.Dispatcher, *ledger.Ledger) {
	t.Helper()

	cat, err := catalog.New([]models.GpuModel{{
		ID:          "RTX-4090",
		Name:        "NVIDIA GeForce RTX 4090",
		Memory:      "24GB",
		PricePer30m: 7.5,
		CudaCores:   16384,
		InstanceIDs: []string{"RTX-4090-01"},
	}})
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)
	led := ledger.New(&memStore{}, &logger)
	require.NoError(t, led.Load(context.Background()))

	avail := service.NewAvailabilityService(cat, led, &logger)
	tx := service.NewTransactionService(cat, avail, led, nil, &logger)
	return tools.NewDispatcher(avail, service.NewRecommendationService(cat, led), tx, service.NewBillingService(led), &logger), led
}

func testAgent(t *testing.T, client ModelClient, maxRounds int) *Agent {
	t.Helper()
	dispatcher, _ := testDispatcher(t)
	logger := zerolog.New(io.Discard)
	return New(client, dispatcher, 0, maxRounds, &logger)
}

func TestHandleMessageTextOnly(t *testing.T) {
	client := &scriptedClient{conv: &scriptedConversation{
		script: []*Completion{{Text: "Hello! How can I help?"}},
	}}
	ag := testAgent(t, client, 0)

	state := &models.SessionState{ID: "s1"}
	state.Append(models.ChatMessage{Role: models.RoleUser, Text: "earlier"})

	reply, err := ag.HandleMessage(context.Background(), state, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply.Text)
	assert.False(t, reply.ResetConversation)

	// Prior transcript seeds the conversation; the turn appends user then model.
	require.Len(t, client.gotHistory, 1)
	assert.Equal(t, "hi", client.conv.gotText)
	require.Len(t, state.Transcript, 3)
	assert.Equal(t, models.RoleUser, state.Transcript[1].Role)
	assert.Equal(t, models.RoleModel, state.Transcript[2].Role)
}

func TestHandleMessageModelError(t *testing.T) {
	client := &scriptedClient{conv: &scriptedConversation{
		errs: []error{errors.New("quota exceeded")},
	}}
	ag := testAgent(t, client, 0)

	state := &models.SessionState{ID: "s1"}
	_, err := ag.HandleMessage(context.Background(), state, "hi")
	assert.ErrorIs(t, err, domain.ErrAgentUnavailable)
	assert.Empty(t, state.Transcript, "failed turn leaves the transcript untouched")
}

func TestHandleMessageToolRound(t *testing.T) {
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	client := &scriptedClient{conv: &scriptedConversation{
		script: []*Completion{
			{ToolCalls: []models.ToolCall{{
				Name: tools.ToolSearchGpus,
				Args: map[string]any{"model": "RTX-4090"},
			}}},
			{Text: "One RTX 4090 is free."},
		},
	}}
	ag := testAgent(t, client, 0)

	state := &models.SessionState{ID: "s1"}
	reply, err := ag.HandleMessage(context.Background(), state, "anything free at "+start.Format(time.RFC3339)+"?")
	require.NoError(t, err)
	assert.Equal(t, "One RTX 4090 is free.", reply.Text)

	require.Len(t, client.conv.gotResults, 1)
	results := client.conv.gotResults[0]
	require.Len(t, results, 1)
	assert.Equal(t, tools.ToolSearchGpus, results[0].Name)
	assert.Equal(t, 1, results[0].Response["count"])

	// user, model(tool call), function(results), model(text)
	require.Len(t, state.Transcript, 4)
	assert.Equal(t, models.RoleFunction, state.Transcript[2].Role)
}

func TestHandleMessageConversationReset(t *testing.T) {
	dispatcher, _ := testDispatcher(t)
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	client := &scriptedClient{conv: &scriptedConversation{
		script: []*Completion{
			{ToolCalls: []models.ToolCall{{
				Name: tools.ToolCreateBooking,
				Args: map[string]any{
					"gpu_model":  "RTX-4090",
					"user_name":  "Alice Smith",
					"user_email": "alice@example.com",
					"start_time": start.Format(time.RFC3339),
					"end_time":   start.Add(2 * time.Hour).Format(time.RFC3339),
				},
			}}},
			{ToolCalls: []models.ToolCall{{
				Name: tools.ToolConfirm,
				Args: map[string]any{"confirmed": true},
			}}},
			{Text: "Booked! Your id is book_001."},
		},
	}}
	logger := zerolog.New(io.Discard)
	ag := New(client, dispatcher, 0, 0, &logger)

	state := &models.SessionState{ID: "s1"}
	reply, err := ag.HandleMessage(context.Background(), state, "yes, book it")
	require.NoError(t, err)
	assert.True(t, reply.ResetConversation)
	assert.Equal(t, "Booked! Your id is book_001.", reply.Text)
}

func TestHandleMessageRoundCap(t *testing.T) {
	loop := &Completion{ToolCalls: []models.ToolCall{{
		Name: tools.ToolSearchGpus,
		Args: map[string]any{},
	}}}
	client := &scriptedClient{conv: &scriptedConversation{
		script: []*Completion{loop, loop, loop, loop},
	}}
	ag := testAgent(t, client, 2)

	_, err := ag.HandleMessage(context.Background(), &models.SessionState{ID: "s1"}, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAgentUnavailable)
	assert.Contains(t, err.Error(), "tool round limit")
}

package models

import "time"

const (
	PendingKindBooking      = "booking"
	PendingKindCancellation = "cancellation"
)

// BookingDraft holds a fully validated, priced, instance-assigned booking
// awaiting user confirmation. It never touches the ledger until confirmed.
type BookingDraft struct {
	GpuModel  string    `json:"gpu_model"`
	GpuID     string    `json:"gpu_id"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	StorageGB int       `json:"storage_gb"`
	MemoryGB  int       `json:"memory_gb"`
	CPUCores  int       `json:"cpu_cores"`
	TotalCost float64   `json:"total_cost"`
}

// CancellationDraft holds a resolved cancellation request awaiting confirmation.
type CancellationDraft struct {
	BookingID   string `json:"booking_id"`
	BookingHash string `json:"booking_hash"`
	UserEmail   string `json:"user_email"`
}

// PendingOperation is the single staged operation of a session. A new prepare
// call overwrites it; confirm consumes it exactly once.
type PendingOperation struct {
	Kind         string             `json:"kind"`
	Booking      *BookingDraft      `json:"booking,omitempty"`
	Cancellation *CancellationDraft `json:"cancellation,omitempty"`
	StagedAt     time.Time          `json:"staged_at"`
}

// ToolCall is a tool invocation requested by the language model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the structured payload returned to the model for one call.
type ToolResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ChatMessage is one transcript entry. Roles follow the agent API: user,
// model, function.
type ChatMessage struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// SessionState is the externalized per-conversation state: the transcript and
// at most one pending operation. It is persisted by id through the session
// repository; the services operating on it are stateless.
type SessionState struct {
	ID         string            `json:"id"`
	Transcript []ChatMessage     `json:"transcript,omitempty"`
	Pending    *PendingOperation `json:"pending,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// AwaitingConfirmation reports whether an operation is staged.
func (s *SessionState) AwaitingConfirmation() bool {
	return s.Pending != nil
}

// Stage replaces any prior uncommitted draft (last writer wins).
func (s *SessionState) Stage(op *PendingOperation) {
	s.Pending = op
}

// TakePending consumes the staged operation, returning nil when idle.
func (s *SessionState) TakePending() *PendingOperation {
	op := s.Pending
	s.Pending = nil
	return op
}

// Append adds a transcript entry.
func (s *SessionState) Append(msg ChatMessage) {
	s.Transcript = append(s.Transcript, msg)
}

// ResetTranscript drops conversation history, keeping the session id.
func (s *SessionState) ResetTranscript() {
	s.Transcript = nil
}

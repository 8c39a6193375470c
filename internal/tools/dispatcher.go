package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skhpc/internal/domain"
	"skhpc/internal/metrics"
	"skhpc/internal/models"
	"skhpc/internal/service"

	"github.com/rs/zerolog"
)

// Dispatcher executes tool calls requested by the language model against the
// booking services. Every call returns a JSON-able map; tool execution never
// surfaces a Go error to the agent loop, business failures travel inside the
// payload so the model can explain them to the user.
type Dispatcher struct {
	availability *service.AvailabilityService
	recommender  *service.RecommendationService
	transactions *service.TransactionService
	billing      *service.BillingService
	logger       *zerolog.Logger
}

func NewDispatcher(
	availability *service.AvailabilityService,
	recommender *service.RecommendationService,
	transactions *service.TransactionService,
	billing *service.BillingService,
	logger *zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		availability: availability,
		recommender:  recommender,
		transactions: transactions,
		billing:      billing,
		logger:       logger,
	}
}

type searchParams struct {
	Model     string  `json:"model"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	MinMemory float64 `json:"min_memory"`
}

type recommendParams struct {
	UseCase           string  `json:"use_case"`
	BudgetPerHour     float64 `json:"budget_per_hour"`
	MemoryRequirement float64 `json:"memory_requirement"`
}

type createBookingParams struct {
	GpuModel  string  `json:"gpu_model"`
	GpuID     string  `json:"gpu_id"`
	UserName  string  `json:"user_name"`
	UserEmail string  `json:"user_email"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	StorageGB float64 `json:"storage_gb"`
	MemoryGB  float64 `json:"memory_gb"`
	CPUCores  float64 `json:"cpu_cores"`
}

type cancelBookingParams struct {
	BookingHash string `json:"booking_hash"`
	UserEmail   string `json:"user_email"`
}

type confirmParams struct {
	Confirmed bool `json:"confirmed"`
}

type queryBookingParams struct {
	BookingHash string `json:"booking_hash"`
	UserEmail   string `json:"user_email"`
	BookingID   string `json:"booking_id"`
}

type billingParams struct {
	UserEmail   string `json:"user_email"`
	BookingHash string `json:"booking_hash"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// Dispatch routes one tool call by name. Unknown names get the error payload
// verbatim so the model can recover instead of the session crashing.
func (d *Dispatcher) Dispatch(ctx context.Context, state *models.SessionState, call models.ToolCall) map[string]any {
	d.logger.Debug().Str("session_id", state.ID).Str("tool", call.Name).Msg("dispatching tool call")

	var resp map[string]any
	switch call.Name {
	case ToolSearchGpus:
		resp = d.searchGpus(call.Args)
	case ToolRecommendations:
		resp = d.recommendations(call.Args)
	case ToolCreateBooking:
		resp = d.createBooking(state, call.Args)
	case ToolCancelBooking:
		resp = d.cancelBooking(state, call.Args)
	case ToolConfirm:
		resp = d.confirm(ctx, state, call.Args)
	case ToolQueryBooking:
		resp = d.queryBooking(call.Args)
	case ToolBilling:
		resp = d.billingReport(call.Args)
	default:
		metrics.IncToolCall(call.Name, "unknown")
		return map[string]any{"error": fmt.Sprintf("Unknown function: %s", call.Name)}
	}

	metrics.IncToolCall(call.Name, outcomeLabel(resp))
	return resp
}

func (d *Dispatcher) searchGpus(args map[string]any) map[string]any {
	var p searchParams
	if err := decodeArgs(args, &p); err != nil {
		return errorPayload(err)
	}

	q := service.SearchQuery{Model: p.Model, MinMemory: p.MinMemory}
	if p.StartTime != "" && p.EndTime != "" {
		start, err := time.Parse(time.RFC3339, p.StartTime)
		if err != nil {
			return failurePayload(fmt.Errorf("invalid start_time: %v", err))
		}
		end, err := time.Parse(time.RFC3339, p.EndTime)
		if err != nil {
			return failurePayload(fmt.Errorf("invalid end_time: %v", err))
		}
		q.Start, q.End = &start, &end
	}

	offers := d.availability.Search(q)
	return map[string]any{
		"available_gpus": toJSONValue(offers),
		"count":          len(offers),
	}
}

func (d *Dispatcher) recommendations(args map[string]any) map[string]any {
	var p recommendParams
	if err := decodeArgs(args, &p); err != nil {
		return errorPayload(err)
	}
	if p.UseCase == "" {
		return failurePayload(errors.New("use_case is required"))
	}

	recs := d.recommender.Recommend(p.UseCase, p.BudgetPerHour, p.MemoryRequirement)
	return map[string]any{
		"recommendations": toJSONValue(recs),
		"use_case":        p.UseCase,
	}
}

func (d *Dispatcher) createBooking(state *models.SessionState, args map[string]any) map[string]any {
	var p createBookingParams
	if err := decodeArgs(args, &p); err != nil {
		return errorPayload(err)
	}

	summary, err := d.transactions.PrepareBooking(state, service.BookingRequest{
		GpuModel:  p.GpuModel,
		GpuID:     p.GpuID,
		UserName:  p.UserName,
		UserEmail: p.UserEmail,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		StorageGB: int(p.StorageGB),
		MemoryGB:  int(p.MemoryGB),
		CPUCores:  int(p.CPUCores),
	})
	if err != nil {
		return mapServiceError(err)
	}

	return map[string]any{
		"success":               true,
		"awaiting_confirmation": true,
		"summary":               toJSONValue(summary),
		"message":               "Booking staged. Present the details and total cost to the user and ask for explicit confirmation before calling confirm_operation.",
	}
}

func (d *Dispatcher) cancelBooking(state *models.SessionState, args map[string]any) map[string]any {
	var p cancelBookingParams
	if err := decodeArgs(args, &p); err != nil {
		return errorPayload(err)
	}

	summary, err := d.transactions.PrepareCancellation(state, p.BookingHash, p.UserEmail)
	if err != nil {
		return mapServiceError(err)
	}

	return map[string]any{
		"success":               true,
		"awaiting_confirmation": true,
		"summary":               toJSONValue(summary),
		"message":               "Cancellation staged. Ask the user for explicit confirmation before calling confirm_operation.",
	}
}

func (d *Dispatcher) confirm(ctx context.Context, state *models.SessionState, args map[string]any) map[string]any {
	var p confirmParams
	if err := decodeArgs(args, &p); err != nil {
		return errorPayload(err)
	}

	result, err := d.transactions.Confirm(ctx, state, p.Confirmed)
	if err != nil {
		return mapServiceError(err)
	}

	if result.Declined {
		return map[string]any{
			"success": true,
			"message": "Operation discarded. Nothing was changed.",
		}
	}

	return map[string]any{
		"success":            true,
		"booking":            toJSONValue(result.Booking),
		"conversation_reset": result.ResetConversation,
		"message":            "Operation executed successfully.",
	}
}

func (d *Dispatcher) queryBooking(args map[string]any) map[string]any {
	var p queryBookingParams
	if err := decodeArgs(args, &p); err != nil {
		return errorPayload(err)
	}
	if p.BookingHash == "" && p.UserEmail == "" && p.BookingID == "" {
		return failurePayload(errors.New("provide booking_hash, user_email or booking_id"))
	}

	bookings := d.billing.Lookup(p.BookingHash, p.UserEmail, p.BookingID)
	if len(bookings) == 0 {
		return failurePayload(errors.New("no bookings found"))
	}
	return map[string]any{
		"bookings": toJSONValue(bookings),
		"count":    len(bookings),
	}
}

func (d *Dispatcher) billingReport(args map[string]any) map[string]any {
	var p billingParams
	if err := decodeArgs(args, &p); err != nil {
		return errorPayload(err)
	}
	if p.UserEmail == "" {
		return failurePayload(errors.New("user_email is required"))
	}

	var start, end *time.Time
	if p.StartDate != "" {
		t, err := time.Parse(time.RFC3339, p.StartDate)
		if err != nil {
			return failurePayload(fmt.Errorf("invalid start_date: %v", err))
		}
		start = &t
	}
	if p.EndDate != "" {
		t, err := time.Parse(time.RFC3339, p.EndDate)
		if err != nil {
			return failurePayload(fmt.Errorf("invalid end_date: %v", err))
		}
		end = &t
	}

	report := d.billing.Calculate(p.UserEmail, p.BookingHash, start, end)
	return map[string]any{
		"user_email":          p.UserEmail,
		"booking_count":       report.BookingCount,
		"total_cost":          report.TotalCost,
		"total_overtime_cost": report.TotalOvertimeCost,
		"grand_total":         report.GrandTotal,
		"bookings":            toJSONValue(report.Bookings),
	}
}

// mapServiceError turns taxonomy errors into payloads the model can act on.
// Anything outside the taxonomy is an internal fault and is reported under
// the "error" key instead.
func mapServiceError(err error) map[string]any {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrNoAvailability),
		errors.Is(err, domain.ErrNoPendingOperation):
		return failurePayload(err)
	default:
		return errorPayload(err)
	}
}

func failurePayload(err error) map[string]any {
	return map[string]any{"success": false, "message": err.Error()}
}

func errorPayload(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

func outcomeLabel(resp map[string]any) string {
	if _, ok := resp["error"]; ok {
		return "error"
	}
	if ok, found := resp["success"].(bool); found && !ok {
		return "rejected"
	}
	return "ok"
}

// decodeArgs round-trips the loosely typed argument map through JSON into a
// typed parameter struct. Numbers arrive as float64 either way.
func decodeArgs(args map[string]any, dst any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode tool arguments: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode tool arguments: %w", err)
	}
	return nil
}

// toJSONValue converts a typed value into generic JSON types so the result
// can be embedded in a function response.
func toJSONValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

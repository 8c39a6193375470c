package tools

import "github.com/google/generative-ai-go/genai"

// Tool names form a closed set; anything else is rejected at the dispatch
// boundary as an unknown function.
const (
	ToolSearchGpus      = "search_available_gpus"
	ToolRecommendations = "get_gpu_recommendations"
	ToolCreateBooking   = "create_booking"
	ToolCancelBooking   = "cancel_booking"
	ToolConfirm         = "confirm_operation"
	ToolQueryBooking    = "query_booking_info"
	ToolBilling         = "calculate_billing"
)

// Menu declares every callable tool for the language model. Descriptions are
// part of the contract: the model decides when to call based on them.
func Menu() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        ToolSearchGpus,
				Description: "Search for available GPU instances based on model, time range, and specifications",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"model": {
							Type:        genai.TypeString,
							Description: "GPU model to search for (e.g. 'RTX-4090', 'H100', 'A100'). If not specified, search all models.",
						},
						"start_time": {
							Type:        genai.TypeString,
							Description: "Start time in ISO format (e.g. '2025-07-23T10:00:00Z')",
						},
						"end_time": {
							Type:        genai.TypeString,
							Description: "End time in ISO format (e.g. '2025-07-23T18:00:00Z')",
						},
						"min_memory": {
							Type:        genai.TypeNumber,
							Description: "Minimum GPU memory required in GB",
						},
					},
				},
			},
			{
				Name:        ToolRecommendations,
				Description: "Get GPU recommendations based on the user's use case and requirements",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"use_case": {
							Type:        genai.TypeString,
							Description: "Description of the intended use case (e.g. 'LLaMA 8B training', 'gaming', 'video rendering')",
						},
						"budget_per_hour": {
							Type:        genai.TypeNumber,
							Description: "Maximum budget per hour in USD",
						},
						"memory_requirement": {
							Type:        genai.TypeNumber,
							Description: "Required GPU memory in GB",
						},
					},
					Required: []string{"use_case"},
				},
			},
			{
				Name:        ToolCreateBooking,
				Description: "Stage a new GPU booking reservation. Nothing is booked until the user explicitly confirms via confirm_operation.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"gpu_model":  {Type: genai.TypeString, Description: "GPU model to book"},
						"gpu_id":     {Type: genai.TypeString, Description: "Specific GPU instance ID; omit to auto-select the first free instance"},
						"user_name":  {Type: genai.TypeString, Description: "User's full name"},
						"user_email": {Type: genai.TypeString, Description: "User's email address"},
						"start_time": {Type: genai.TypeString, Description: "Start time in ISO format"},
						"end_time":   {Type: genai.TypeString, Description: "End time in ISO format"},
						"storage_gb": {Type: genai.TypeNumber, Description: "Required storage in GB (default: 128)"},
						"memory_gb":  {Type: genai.TypeNumber, Description: "Required system memory in GB (default: 32)"},
						"cpu_cores":  {Type: genai.TypeNumber, Description: "Required CPU cores (default: 8)"},
					},
					Required: []string{"gpu_model", "user_name", "user_email", "start_time", "end_time"},
				},
			},
			{
				Name:        ToolCancelBooking,
				Description: "Stage cancellation of an existing booking. Nothing is cancelled until the user explicitly confirms via confirm_operation.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"booking_hash": {Type: genai.TypeString, Description: "Booking hash identifier"},
						"user_email":   {Type: genai.TypeString, Description: "User's email for verification"},
					},
					Required: []string{"booking_hash", "user_email"},
				},
			},
			{
				Name:        ToolConfirm,
				Description: "Execute or discard the staged booking/cancellation after asking the user. Call with confirmed=true only when the user explicitly agreed.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"confirmed": {Type: genai.TypeBoolean, Description: "true to execute the staged operation, false to discard it"},
					},
					Required: []string{"confirmed"},
				},
			},
			{
				Name:        ToolQueryBooking,
				Description: "Query booking information by booking hash, email, or booking ID",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"booking_hash": {Type: genai.TypeString, Description: "Booking hash identifier"},
						"user_email":   {Type: genai.TypeString, Description: "User's email address"},
						"booking_id":   {Type: genai.TypeString, Description: "Booking ID"},
					},
				},
			},
			{
				Name:        ToolBilling,
				Description: "Calculate billing information for bookings",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"user_email":   {Type: genai.TypeString, Description: "User's email address"},
						"booking_hash": {Type: genai.TypeString, Description: "Specific booking hash (optional)"},
						"start_date":   {Type: genai.TypeString, Description: "Start date for billing period (ISO format)"},
						"end_date":     {Type: genai.TypeString, Description: "End date for billing period (ISO format)"},
					},
					Required: []string{"user_email"},
				},
			},
		},
	}}
}

package models

const (
	StatusScheduled = "scheduled"
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	RoleUser     = "user"
	RoleModel    = "model"
	RoleFunction = "function"
)

const (
	// DefaultStorageGB booking storage allocation when the user does not ask for more
	DefaultStorageGB = 128

	// DefaultMemoryGB system memory allocation per booking
	DefaultMemoryGB = 32

	// DefaultCPUCores CPU core allocation per booking
	DefaultCPUCores = 8

	// DefaultSessionTTL lifetime of an idle conversation session
	DefaultSessionTTL = 24 * 60 * 60 // 24 hours in seconds

	// RateLimitMessages messages allowed per window per session
	RateLimitMessages = 20

	// RateLimitWindow rate limit window
	RateLimitWindow = 60 // 1 minute in seconds

	// WorkerQueueSize mirror worker queue capacity
	WorkerQueueSize = 256

	// AgentMaxToolRounds cap on tool-call round trips within a single turn
	AgentMaxToolRounds = 4
)

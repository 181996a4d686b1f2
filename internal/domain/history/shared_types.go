// internal/domain/history/shared_types.go
package history

// Type identifies what produced a history entry.
type Type string

const (
	TypePostGeneration          Type = "post_generation"
	TypeScheduleExecution       Type = "schedule_execution"
	TypeManualScheduleExecution Type = "manual_schedule_execution"
)

// Status is the outcome of a generation.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// EventType names an activity event.
type EventType string

const (
	EventScheduleStarted       EventType = "schedule_execution_started"
	EventScheduleCompleted     EventType = "schedule_execution_completed"
	EventScheduleFailed        EventType = "schedule_execution_failed"
	EventPostGenerated         EventType = "post_generated"
	EventPostGenerationFailed  EventType = "post_generation_failed"
	EventPostPublished         EventType = "post_published"
	EventPostDiscarded         EventType = "post_discarded"
	EventCircuitBreakerTripped EventType = "circuit_breaker_opened"
)

// EventStatus is the severity of an activity event.
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailed  EventStatus = "failed"
	EventStatusInfo    EventStatus = "info"
)

package events

// Type is a stringing-service lifecycle event that produces a notification.
type Type string

const (
	ApplicationSubmitted Type = "application_submitted"
	ScheduleConfirmed    Type = "schedule_confirmed"
	ScheduleCanceled     Type = "schedule_canceled"
	StatusUpdated        Type = "status_updated"
	ApplicationCanceled  Type = "application_canceled"
	ServiceInProgress    Type = "service_in_progress"
	ServiceCompleted     Type = "service_completed"
)

// All lists every event type in a stable order.
var All = []Type{
	ApplicationSubmitted,
	ScheduleConfirmed,
	ScheduleCanceled,
	StatusUpdated,
	ApplicationCanceled,
	ServiceInProgress,
	ServiceCompleted,
}

func (t Type) String() string {
	return string(t)
}

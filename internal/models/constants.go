package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	TargetCampground = "campground"
	TargetCampsite   = "campsite"
)

// DateFormat is the wire and storage format for booking dates.
// Dates are whole days in UTC; ranges are half-open [start, end).
const DateFormat = "2006-01-02"

const (
	JobPending   = "pending"
	JobRetry     = "retry"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

var allowedTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether a booking may move from one status to
// another. Cancelled and completed are terminal.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

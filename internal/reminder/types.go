package reminder

import "time"

// Status is the lifecycle state of a reminder. The sweep moves upcoming
// reminders to missed automatically; completed and reopened transitions are
// manual user actions. There is no completed -> missed transition.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusMissed    Status = "missed"
	StatusCompleted Status = "completed"
)

// Reminder is a patient-facing scheduling convenience. It is reconciled into
// the canonical medication record but is not the source of medical truth.
type Reminder struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	PatientID    string   `json:"patientId"`
	MedicineName string   `json:"medicineName"`
	Dosage       string   `json:"dosage,omitempty"`
	Frequency    string   `json:"frequency,omitempty"`
	Days         int      `json:"days,omitempty"` // duration of the course in days, 0 = open-ended
	EveryDay     bool     `json:"everyDay"`
	Weekdays     []string `json:"weekdays,omitempty"` // "Mon".."Sun", used when EveryDay is false
	Times        []string `json:"times"`              // "HH:MM", 24-hour, local day
	Status       Status   `json:"status"`
	Enabled      bool     `json:"enabled"`
	CreatedAt    int64    `json:"createdAt"` // unix milliseconds
}

// ScheduledToday reports whether the reminder fires on the given day.
func (r *Reminder) ScheduledToday(now time.Time) bool {
	if r.EveryDay {
		return true
	}
	today := now.Weekday().String()[:3]
	for _, d := range r.Weekdays {
		if d == today {
			return true
		}
	}
	return false
}

// CanTransition reports whether moving from the reminder's current status to
// the target is a legal edge of the state machine.
func (r *Reminder) CanTransition(to Status) bool {
	switch r.Status {
	case StatusUpcoming:
		return to == StatusMissed || to == StatusCompleted
	case StatusMissed:
		return to == StatusUpcoming
	case StatusCompleted:
		return to == StatusUpcoming
	default:
		return false
	}
}

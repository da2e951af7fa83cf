package models

import "time"

const (
	KindVisit = "visit"
	KindJob   = "job"
)

const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusAccepted  = "accepted"
	StatusSigned    = "signed"
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
)

// CustomerSnapshot is a denormalized display copy of the customer row.
// The persistence layer owns the real record; we never write it back.
type CustomerSnapshot struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// WorkRecord is a unit of schedulable work. Kind discriminates the two
// subtypes: a "visit" is a pre-sale site visit tied to a lead, a "job" is
// post-sale work tied to an accepted quote. Total is only set for jobs.
type WorkRecord struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	CustomerID  string           `json:"customer_id"`
	Customer    CustomerSnapshot `json:"customer"`
	JobName     string           `json:"job_name,omitempty"`
	Status      string           `json:"status"`
	ScheduledAt *time.Time       `json:"scheduled_at"`
	AssigneeID  *string          `json:"assignee_id"`
	Total       *float64         `json:"total,omitempty"`
	Archived    bool             `json:"archived"`
	CreatedAt   time.Time        `json:"created_at"`
}

// DurationHint is the default event-box length, not a real duration field.
func (w WorkRecord) DurationHint() time.Duration {
	if w.Kind == KindVisit {
		return time.Hour
	}
	return 2 * time.Hour
}

type TeamMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Color string `json:"color,omitempty"`
}

// CalendarEvent is a renderable projection of a scheduled WorkRecord.
type CalendarEvent struct {
	ID         string           `json:"id"`
	RecordID   string           `json:"record_id"`
	Kind       string           `json:"kind"`
	Title      string           `json:"title"`
	Start      time.Time        `json:"start"`
	End        time.Time        `json:"end"`
	Color      string           `json:"color"`
	AssigneeID *string          `json:"assignee_id"`
	Customer   CustomerSnapshot `json:"customer"`
	Total      *float64         `json:"total,omitempty"`
	Pending    bool             `json:"pending,omitempty"`
}

// QueueItem is an unscheduled WorkRecord awaiting a calendar slot.
type QueueItem struct {
	ID        string           `json:"id"`
	Kind      string           `json:"kind"`
	Customer  CustomerSnapshot `json:"customer"`
	JobName   string           `json:"job_name,omitempty"`
	Total     *float64         `json:"total,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

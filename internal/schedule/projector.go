package schedule

import (
	"sort"

	"github.com/fieldserve/backend/internal/models"
)

const (
	ViewTeam     = "team"
	ViewPersonal = "personal"
)

// ViewOptions select which scheduled records appear on the calendar.
type ViewOptions struct {
	Mode         string
	ViewerID     string
	AssigneeID   string // explicit dropdown filter, independent of Mode
	NeutralColor string
}

// ProjectEvents maps scheduled records to calendar events. Pure function: a
// fresh slice every call, no state, no mutation of the input.
//
// Filter order, first match wins: personal view keeps the viewer's and
// unassigned work; an explicit assignee filter keeps that assignee's and
// unassigned work; team view keeps everything. A nil roster means the team
// list failed to load, and filtering degrades to show-all rather than hiding
// work behind a filter nobody can see.
func ProjectEvents(records []models.WorkRecord, roster *Roster, opts ViewOptions) []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, r := range records {
		if r.ScheduledAt == nil {
			continue
		}
		if roster != nil && !keep(r, opts) {
			continue
		}
		out = append(out, synthesize(r, roster, opts.NeutralColor))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func keep(r models.WorkRecord, opts ViewOptions) bool {
	if opts.Mode == ViewPersonal && opts.ViewerID != "" {
		return r.AssigneeID == nil || *r.AssigneeID == opts.ViewerID
	}
	if opts.AssigneeID != "" {
		return r.AssigneeID == nil || *r.AssigneeID == opts.AssigneeID
	}
	return true
}

func synthesize(r models.WorkRecord, roster *Roster, neutral string) models.CalendarEvent {
	start := *r.ScheduledAt
	title := r.JobName
	if title == "" {
		title = r.Customer.Name
	}
	if title == "" {
		title = "Scheduled Job"
	}
	if r.Kind == models.KindVisit {
		name := r.Customer.Name
		if name == "" {
			name = "Unknown"
		}
		title = "Visit: " + name
	}
	return models.CalendarEvent{
		ID:         r.Kind + "-" + r.ID,
		RecordID:   r.ID,
		Kind:       r.Kind,
		Title:      title,
		Start:      start,
		End:        start.Add(r.DurationHint()),
		Color:      roster.ColorFor(r.AssigneeID, neutral),
		AssigneeID: r.AssigneeID,
		Customer:   r.Customer,
		Total:      r.Total,
	}
}

package schedule

import (
	"sort"

	"github.com/fieldserve/backend/internal/models"
)

// NeedsScheduling reports whether a record belongs in the unscheduled queue:
// accepted-but-unscheduled jobs, or visits that still need a site visit slot.
func NeedsScheduling(r models.WorkRecord) bool {
	if r.ScheduledAt != nil {
		return false
	}
	switch r.Kind {
	case models.KindJob:
		return !r.Archived && (r.Status == models.StatusAccepted || r.Status == models.StatusSigned)
	case models.KindVisit:
		return r.Status == models.StatusNew || r.Status == models.StatusContacted || r.Status == models.StatusQualified
	}
	return false
}

// UnscheduledQueue projects the records that need a calendar slot, newest
// first. Pure function; callers pass the overlaid snapshot so records with an
// in-flight scheduling write never flicker back into the queue.
func UnscheduledQueue(records []models.WorkRecord) []models.QueueItem {
	var out []models.QueueItem
	for _, r := range records {
		if !NeedsScheduling(r) {
			continue
		}
		out = append(out, models.QueueItem{
			ID:        r.ID,
			Kind:      r.Kind,
			Customer:  r.Customer,
			JobName:   r.JobName,
			Total:     r.Total,
			CreatedAt: r.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

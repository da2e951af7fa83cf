package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fieldserve/backend/internal/models"
)

// fakeBackend stands in for the persistence collaborator: LoadWorkRecords
// feeds the collection, ApplySchedule commits scheduling writes.
type fakeBackend struct {
	mu         sync.Mutex
	records    map[string]models.WorkRecord
	order      []string
	failWrites bool
	writes     int
}

func newFakeBackend(records ...models.WorkRecord) *fakeBackend {
	b := &fakeBackend{records: make(map[string]models.WorkRecord)}
	for _, r := range records {
		b.records[r.ID] = r
		b.order = append(b.order, r.ID)
	}
	return b
}

func (b *fakeBackend) LoadWorkRecords(ctx context.Context) ([]models.WorkRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.WorkRecord, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.records[id])
	}
	return out, nil
}

func (b *fakeBackend) ApplySchedule(ctx context.Context, id, kind string, at time.Time, newStatus string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	if b.failWrites {
		return errors.New("write rejected")
	}
	r, ok := b.records[id]
	if !ok {
		return errors.New("no such record")
	}
	t := at
	r.ScheduledAt = &t
	if newStatus != "" {
		r.Status = newStatus
	}
	b.records[id] = r
	return nil
}

func (b *fakeBackend) get(id string) models.WorkRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.records[id]
}

type memoNotifier struct {
	mu       sync.Mutex
	levels   []string
	messages []string
}

func (n *memoNotifier) Notify(level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.levels = append(n.levels, level)
	n.messages = append(n.messages, message)
}

func (n *memoNotifier) last() (string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return "", ""
	}
	return n.levels[len(n.levels)-1], n.messages[len(n.messages)-1]
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }

func job(id, status string, scheduledAt *time.Time, createdAt time.Time) models.WorkRecord {
	return models.WorkRecord{
		ID:          id,
		Kind:        models.KindJob,
		Customer:    models.CustomerSnapshot{Name: "Ada Lovelace"},
		JobName:     "Roof repair",
		Status:      status,
		ScheduledAt: scheduledAt,
		Total:       floatPtr(1200),
		CreatedAt:   createdAt,
	}
}

func visit(id, status string, scheduledAt *time.Time, createdAt time.Time) models.WorkRecord {
	return models.WorkRecord{
		ID:          id,
		Kind:        models.KindVisit,
		Customer:    models.CustomerSnapshot{Name: "Grace Hopper"},
		Status:      status,
		ScheduledAt: scheduledAt,
		CreatedAt:   createdAt,
	}
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/notify"
)

var (
	ErrRecordNotFound   = errors.New("work record not found")
	ErrAlreadyScheduled = errors.New("work record already has a calendar slot")
	ErrNotScheduled     = errors.New("work record is not scheduled")
)

// Writer is the persistence collaborator's point-update operation. A write
// commits the timestamp and any coupled status change together, or fails as
// a whole; there is no partial success.
type Writer interface {
	ApplySchedule(ctx context.Context, id, kind string, at time.Time, newStatus string) error
}

const (
	ActionAssign     = "assign"
	ActionReschedule = "reschedule"
)

// PendingOp is one optimistically placed drag operation awaiting backend
// confirmation. The overlay it produces is merged into projections only,
// never into the canonical collection, and is discarded wholesale on either
// confirmation or failure.
type PendingOp struct {
	RecordID  string
	Kind      string
	Action    string
	At        time.Time
	NewStatus string
}

// Mutator reconciles drag gestures with the backend: optimistic placement,
// a single-attempt write, then confirm-and-refresh or rollback-and-notify.
type Mutator struct {
	collection *Collection
	writer     Writer
	notifier   notify.Notifier
	logger     zerolog.Logger

	mu      sync.Mutex
	pending map[string]PendingOp
}

func NewMutator(collection *Collection, writer Writer, notifier notify.Notifier, logger zerolog.Logger) *Mutator {
	return &Mutator{
		collection: collection,
		writer:     writer,
		notifier:   notifier,
		logger:     logger,
		pending:    make(map[string]PendingOp),
	}
}

// Assign gives an unscheduled record its first calendar slot. Scheduling
// deliberately advances the status one step as a side effect (job
// accepted/signed -> scheduled, visit -> contacted): queue eligibility
// depends on that coupling, so it must not be removed.
func (m *Mutator) Assign(ctx context.Context, recordID string, at time.Time) error {
	record, ok := m.collection.Get(recordID)
	if !ok {
		return ErrRecordNotFound
	}
	if record.ScheduledAt != nil {
		return ErrAlreadyScheduled
	}

	op := PendingOp{
		RecordID:  recordID,
		Kind:      record.Kind,
		Action:    ActionAssign,
		At:        at,
		NewStatus: statusAfterAssign(record),
	}
	return m.commit(ctx, op, "Failed to schedule", scheduledMessage(record.Kind))
}

// Reschedule moves an already-scheduled record to a new slot. Status is
// untouched.
func (m *Mutator) Reschedule(ctx context.Context, recordID string, at time.Time) error {
	record, ok := m.collection.Get(recordID)
	if !ok {
		return ErrRecordNotFound
	}
	if record.ScheduledAt == nil {
		return ErrNotScheduled
	}

	op := PendingOp{
		RecordID: recordID,
		Kind:     record.Kind,
		Action:   ActionReschedule,
		At:       at,
	}
	return m.commit(ctx, op, "Failed to reschedule", rescheduledMessage(record.Kind))
}

// commit runs one drag operation through OptimisticallyPlaced to either
// Confirmed or RolledBack. Writes are single-attempt; the user re-drags to
// retry. Two rapid gestures on the same record are last-write-wins, matching
// the backend's own resolution of the race.
func (m *Mutator) commit(ctx context.Context, op PendingOp, failMsg, okMsg string) error {
	m.place(op)

	if err := m.writer.ApplySchedule(ctx, op.RecordID, op.Kind, op.At, op.NewStatus); err != nil {
		m.discard(op.RecordID)
		m.logger.Error().Err(err).Str("record_id", op.RecordID).Str("action", op.Action).Msg("scheduling write rejected")
		m.notifier.Notify(notify.LevelError, failMsg)
		return fmt.Errorf("%s %s: %w", op.Action, op.RecordID, err)
	}

	// Refresh before dropping the overlay so the confirmed slot is already in
	// the snapshot when the temporary event disappears.
	if err := m.collection.Refresh(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("post-write refresh failed")
	}
	m.discard(op.RecordID)
	m.notifier.Notify(notify.LevelInfo, okMsg)
	return nil
}

func (m *Mutator) place(op PendingOp) {
	m.mu.Lock()
	m.pending[op.RecordID] = op
	m.mu.Unlock()
}

func (m *Mutator) discard(recordID string) {
	m.mu.Lock()
	delete(m.pending, recordID)
	m.mu.Unlock()
}

func (m *Mutator) PendingOps() []PendingOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PendingOp, 0, len(m.pending))
	for _, op := range m.pending {
		out = append(out, op)
	}
	return out
}

// Overlay applies pending operations to a snapshot copy for projection. The
// canonical collection is never touched: dropping the ops is the whole
// rollback.
func Overlay(records []models.WorkRecord, ops []PendingOp) []models.WorkRecord {
	if len(ops) == 0 {
		return records
	}
	byID := make(map[string]PendingOp, len(ops))
	for _, op := range ops {
		byID[op.RecordID] = op
	}
	out := make([]models.WorkRecord, len(records))
	for i, r := range records {
		if op, ok := byID[r.ID]; ok {
			at := op.At
			r.ScheduledAt = &at
			if op.NewStatus != "" {
				r.Status = op.NewStatus
			}
		}
		out[i] = r
	}
	return out
}

// MarkPending flags events whose backing write is still in flight.
func MarkPending(events []models.CalendarEvent, ops []PendingOp) {
	if len(ops) == 0 {
		return
	}
	byID := make(map[string]bool, len(ops))
	for _, op := range ops {
		byID[op.RecordID] = true
	}
	for i := range events {
		if byID[events[i].RecordID] {
			events[i].Pending = true
		}
	}
}

func statusAfterAssign(r models.WorkRecord) string {
	if r.Kind == models.KindVisit {
		return models.StatusContacted
	}
	return models.StatusScheduled
}

func scheduledMessage(kind string) string {
	if kind == models.KindVisit {
		return "Visit scheduled!"
	}
	return "Job scheduled!"
}

func rescheduledMessage(kind string) string {
	if kind == models.KindVisit {
		return "Visit rescheduled"
	}
	return "Job rescheduled"
}

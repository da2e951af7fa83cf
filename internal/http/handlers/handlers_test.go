package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/notify"
	"github.com/fieldserve/backend/internal/schedule"
)

type fakeBackend struct {
	records    map[string]models.WorkRecord
	members    []models.TeamMember
	failWrites bool
}

func (b *fakeBackend) LoadWorkRecords(ctx context.Context) ([]models.WorkRecord, error) {
	var out []models.WorkRecord
	for _, r := range b.records {
		out = append(out, r)
	}
	return out, nil
}

func (b *fakeBackend) LoadTeamMembers(ctx context.Context) ([]models.TeamMember, error) {
	return b.members, nil
}

func (b *fakeBackend) ApplySchedule(ctx context.Context, id, kind string, at time.Time, newStatus string) error {
	if b.failWrites {
		return errors.New("permission denied")
	}
	r := b.records[id]
	t := at
	r.ScheduledAt = &t
	if newStatus != "" {
		r.Status = newStatus
	}
	b.records[id] = r
	return nil
}

func newTestRouter(t *testing.T, backend *fakeBackend) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	collection := schedule.NewCollection(backend, zerolog.Nop())
	if err := collection.Refresh(context.Background()); err != nil {
		t.Fatalf("collection refresh: %v", err)
	}
	roster := schedule.NewRosterCache(backend, zerolog.Nop())
	if err := roster.Refresh(context.Background()); err != nil {
		t.Fatalf("roster refresh: %v", err)
	}
	notifications := notify.NewCenter(10)
	mutator := schedule.NewMutator(collection, backend, notifications, zerolog.Nop())

	h := &Handler{
		Collection:    collection,
		Roster:        roster,
		Mutator:       mutator,
		Notifications: notifications,
		Validator:     validator.New(),
		Logger:        zerolog.Nop(),
		NeutralColor:  "#6B7280",
	}

	r := gin.New()
	r.GET("/api/schedule/queue", h.ScheduleQueue)
	r.GET("/api/schedule/events", h.ScheduleEvents)
	r.GET("/api/team", h.TeamList)
	r.GET("/api/notifications", h.NotificationsList)
	r.POST("/api/work-records/:id/assign", h.AssignWorkRecord)
	r.POST("/api/work-records/:id/reschedule", h.RescheduleWorkRecord)
	return r, h
}

func acceptedJob(id string) models.WorkRecord {
	return models.WorkRecord{
		ID:        id,
		Kind:      models.KindJob,
		Customer:  models.CustomerSnapshot{Name: "Ada Lovelace"},
		JobName:   "Roof repair",
		Status:    models.StatusAccepted,
		CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestScheduleQueueEndpoint(t *testing.T) {
	backend := &fakeBackend{records: map[string]models.WorkRecord{"q1": acceptedJob("q1")}}
	r, _ := newTestRouter(t, backend)

	req, _ := http.NewRequest(http.MethodGet, "/api/schedule/queue", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Items []models.QueueItem `json:"items"`
		Count int                `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || len(body.Items) != 1 || body.Items[0].ID != "q1" {
		t.Fatalf("unexpected queue body %+v", body)
	}
}

func TestAssignEndpointMovesRecordToCalendar(t *testing.T) {
	backend := &fakeBackend{
		records: map[string]models.WorkRecord{"q1": acceptedJob("q1")},
		members: []models.TeamMember{{ID: "a", Name: "Alice", Role: "owner"}},
	}
	r, _ := newTestRouter(t, backend)

	payload := `{"scheduled_at":"2026-03-05T14:00:00Z"}`
	req, _ := http.NewRequest(http.MethodPost, "/api/work-records/q1/assign", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("assign status = %d body=%s", w.Code, w.Body.String())
	}

	if got := backend.records["q1"].Status; got != models.StatusScheduled {
		t.Fatalf("status after assign = %s", got)
	}

	req, _ = http.NewRequest(http.MethodGet, "/api/schedule/events?view=team", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var events struct {
		Items []models.CalendarEvent `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events.Items) != 1 || events.Items[0].RecordID != "q1" {
		t.Fatalf("expected q1 on calendar, got %+v", events.Items)
	}

	req, _ = http.NewRequest(http.MethodGet, "/api/schedule/queue", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"count":0`) {
		t.Fatalf("queue should be empty after assign: %s", w.Body.String())
	}
}

func TestAssignEndpointRollsBackOnWriteFailure(t *testing.T) {
	backend := &fakeBackend{
		records:    map[string]models.WorkRecord{"q1": acceptedJob("q1")},
		failWrites: true,
	}
	r, _ := newTestRouter(t, backend)

	payload := `{"scheduled_at":"2026-03-05T14:00:00Z"}`
	req, _ := http.NewRequest(http.MethodPost, "/api/work-records/q1/assign", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "WRITE_REJECTED") {
		t.Fatalf("body = %s", w.Body.String())
	}

	req, _ = http.NewRequest(http.MethodGet, "/api/schedule/queue", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `"q1"`) {
		t.Fatalf("record should be back in the queue: %s", w.Body.String())
	}

	req, _ = http.NewRequest(http.MethodGet, "/api/notifications", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "Failed to schedule") {
		t.Fatalf("expected failure notification, got %s", w.Body.String())
	}
}

func TestAssignEndpointValidation(t *testing.T) {
	backend := &fakeBackend{records: map[string]models.WorkRecord{"q1": acceptedJob("q1")}}
	r, _ := newTestRouter(t, backend)

	req, _ := http.NewRequest(http.MethodPost, "/api/work-records/q1/assign", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty payload status = %d, want 400", w.Code)
	}

	payload := `{"scheduled_at":"2026-03-05T14:00:00Z"}`
	req, _ = http.NewRequest(http.MethodPost, "/api/work-records/missing/assign", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing record status = %d, want 404", w.Code)
	}
}

func TestTeamEndpointReturnsColors(t *testing.T) {
	backend := &fakeBackend{
		records: map[string]models.WorkRecord{},
		members: []models.TeamMember{
			{ID: "a", Name: "Alice", Role: "owner"},
			{ID: "b", Name: "Bob", Role: "member"},
		},
	}
	r, _ := newTestRouter(t, backend)

	req, _ := http.NewRequest(http.MethodGet, "/api/team", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body struct {
		Items []models.TeamMember `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 2 {
		t.Fatalf("expected 2 members, got %d", len(body.Items))
	}
	if body.Items[0].Color == "" || body.Items[0].Color == body.Items[1].Color {
		t.Fatalf("members missing distinct colors: %+v", body.Items)
	}
}

package schedule

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/models"
)

// Loader is the persistence collaborator that owns the work records.
type Loader interface {
	LoadWorkRecords(ctx context.Context) ([]models.WorkRecord, error)
}

// Collection is the single shared snapshot of work records that every
// projection reads from. It is refresh-and-replace: a refresh swaps the whole
// snapshot, it never merges. Injected everywhere, never a package global.
type Collection struct {
	loader Loader
	logger zerolog.Logger

	mu      sync.RWMutex
	records []models.WorkRecord
	subs    []chan struct{}
}

func NewCollection(loader Loader, logger zerolog.Logger) *Collection {
	return &Collection{loader: loader, logger: logger}
}

// Refresh reloads the snapshot from the loader. On failure the previous
// snapshot is kept so readers never see a half-loaded collection.
func (c *Collection) Refresh(ctx context.Context) error {
	records, err := c.loader.LoadWorkRecords(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("collection refresh failed")
		return err
	}

	c.mu.Lock()
	c.records = records
	subs := make([]chan struct{}, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Snapshot returns a copy of the current records. Callers may not mutate the
// shared state through it.
func (c *Collection) Snapshot() []models.WorkRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.WorkRecord, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Collection) Get(id string) (models.WorkRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.WorkRecord{}, false
}

// Subscribe returns a channel that receives a signal after each successful
// refresh. The channel has a buffer of one; missed signals coalesce.
func (c *Collection) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

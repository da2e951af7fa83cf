package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Notification is a dismissible transient message for the host UI, the
// server-side stand-in for a toast.
type Notification struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Notifier interface {
	Notify(level, message string)
}

// Center buffers notifications until the host drains them. The buffer is
// bounded; oldest messages drop first once it fills.
type Center struct {
	mu    sync.Mutex
	items []Notification
	max   int
}

func NewCenter(max int) *Center {
	if max <= 0 {
		max = 100
	}
	return &Center{max: max}
}

func (c *Center) Notify(level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
	if len(c.items) > c.max {
		c.items = c.items[len(c.items)-c.max:]
	}
}

// Drain returns all buffered notifications and clears the buffer.
func (c *Center) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.items
	c.items = nil
	return out
}

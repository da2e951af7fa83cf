package schedule

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/models"
)

// Palette colors are handed out to team members by enumeration order, so a
// member keeps the same color for the lifetime of one loaded roster. The
// assignment is not stable across reloads; that is a known limitation.
var palette = []string{
	"#3B82F6", // blue
	"#10B981", // green
	"#8B5CF6", // purple
	"#F59E0B", // amber
	"#EF4444", // red
	"#EC4899", // pink
	"#06B6D4", // cyan
	"#84CC16", // lime
}

type MemberLoader interface {
	LoadTeamMembers(ctx context.Context) ([]models.TeamMember, error)
}

// Roster is an immutable snapshot of the team with colors assigned.
type Roster struct {
	members  []models.TeamMember
	colorsBy map[string]string
}

func BuildRoster(members []models.TeamMember) *Roster {
	r := &Roster{
		members:  make([]models.TeamMember, len(members)),
		colorsBy: make(map[string]string, len(members)),
	}
	for i, m := range members {
		m.Color = palette[i%len(palette)]
		r.members[i] = m
		r.colorsBy[m.ID] = m.Color
	}
	return r
}

func (r *Roster) Members() []models.TeamMember {
	out := make([]models.TeamMember, len(r.members))
	copy(out, r.members)
	return out
}

// ColorFor resolves the display color for an assignee. Nil or stale assignee
// references fall back to the neutral color instead of erroring.
func (r *Roster) ColorFor(assigneeID *string, neutral string) string {
	if r == nil || assigneeID == nil {
		return neutral
	}
	if color, ok := r.colorsBy[*assigneeID]; ok {
		return color
	}
	return neutral
}

func (r *Roster) Contains(id string) bool {
	if r == nil {
		return false
	}
	_, ok := r.colorsBy[id]
	return ok
}

// RosterCache holds the currently loaded roster. A failed load keeps the
// previous roster if there was one; if there never was, Current returns nil
// and callers degrade to showing everything unfiltered.
type RosterCache struct {
	loader MemberLoader
	logger zerolog.Logger

	mu     sync.RWMutex
	roster *Roster
}

func NewRosterCache(loader MemberLoader, logger zerolog.Logger) *RosterCache {
	return &RosterCache{loader: loader, logger: logger}
}

func (rc *RosterCache) Refresh(ctx context.Context) error {
	members, err := rc.loader.LoadTeamMembers(ctx)
	if err != nil {
		rc.logger.Error().Err(err).Msg("roster load failed")
		return err
	}
	roster := BuildRoster(members)
	rc.mu.Lock()
	rc.roster = roster
	rc.mu.Unlock()
	return nil
}

func (rc *RosterCache) Current() *Roster {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.roster
}

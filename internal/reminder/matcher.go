// Package reminder finds today's birthdays and announces them on Slack.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/birthday-buddy/internal/database/models"
	"github.com/hugh/birthday-buddy/internal/service"
	"github.com/juju/clock"
)

// BirthdayLister is the cache-aside read side of the birthday service.
type BirthdayLister interface {
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Birthday, error)
	ListAll(ctx context.Context) ([]models.Birthday, error)
}

// Matcher selects birthdays whose month and day equal a workspace's local
// date. The year is ignored, so Feb 29 only matches in leap years.
type Matcher struct {
	birthdays BirthdayLister
	clock     clock.Clock
}

func NewMatcher(birthdays BirthdayLister, clk clock.Clock) *Matcher {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Matcher{birthdays: birthdays, clock: clk}
}

// Now is the matcher's notion of the current instant.
func (m *Matcher) Now() time.Time {
	return m.clock.Now()
}

// ForWorkspace returns ws's birthdays falling on now's date in ws.Timezone.
func (m *Matcher) ForWorkspace(ctx context.Context, ws *models.Workspace, now time.Time) ([]models.Birthday, error) {
	loc, err := service.LoadLocation(ws.Timezone)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", ws.ID, err)
	}

	items, err := m.birthdays.ListByWorkspace(ctx, ws.ID)
	if err != nil {
		return nil, err
	}
	return match(items, now.In(loc)), nil
}

// All returns every birthday falling on now's UTC date, across workspaces.
func (m *Matcher) All(ctx context.Context, now time.Time) ([]models.Birthday, error) {
	items, err := m.birthdays.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return match(items, now.UTC()), nil
}

func match(items []models.Birthday, local time.Time) []models.Birthday {
	out := []models.Birthday{}
	for _, b := range items {
		if models.SameDay(b.DateOfBirth, local) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

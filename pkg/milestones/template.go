package milestones

import (
	"fmt"
	"time"

	"go.xrstf.de/memorable_milestones/pkg/github"
)

const (
	// Description is put on every milestone created from a template.
	Description = "Generated by [Memorable Milestones](https://github.com/instantish/memorable-milestones)"

	// DaysPerWeek exists purely to make the constants below readable.
	DaysPerWeek = 7

	// WeeksPerCycle is the recurrence period of every template.
	WeeksPerCycle = 16

	// ShortestSprintDays is the minimum distance between now and a due
	// date for a milestone to be worth creating.
	ShortestSprintDays = 2

	// WeeksAhead is how far into the future milestones are created.
	WeeksAhead = 8

	// maxOccurrences caps the search for upcoming due dates.
	maxOccurrences = 100
)

type Template struct {
	ID           string
	Name         string
	Emoji        string
	FirstDueDate time.Time
}

// Title is the exact milestone title used on GitHub. It is the only
// thing linking a remote milestone back to its template.
func (t *Template) Title() string {
	return fmt.Sprintf("%s  %s", t.Emoji, t.Name)
}

// Occurrence returns the i-th due date of the template.
func (t *Template) Occurrence(i int) time.Time {
	if i == 0 {
		return t.FirstDueDate
	}

	// whole calendar days, the time of day never shifts
	return t.FirstDueDate.AddDate(0, 0, i*WeeksPerCycle*DaysPerWeek)
}

// UpcomingDueDate returns the nearest occurrence that is more than
// ShortestSprintDays and less than WeeksAhead weeks away from now.
// If no occurrence falls into that window, false is returned.
func (t *Template) UpcomingDueDate(now time.Time) (time.Time, bool) {
	for i := 0; i < maxOccurrences; i++ {
		dueDate := t.Occurrence(i)
		daysUntil := DaysBetween(now, dueDate)

		if daysUntil > ShortestSprintDays && daysUntil < WeeksAhead*DaysPerWeek {
			return dueDate, true
		}

		// occurrences only move further away, no point in looking further
		if daysUntil > (WeeksPerCycle+WeeksAhead)*DaysPerWeek {
			return time.Time{}, false
		}
	}

	return time.Time{}, false
}

// Spec builds the creation payload for the given due date.
func (t *Template) Spec(dueDate time.Time) github.MilestoneSpec {
	return github.MilestoneSpec{
		Title:       t.Title(),
		Description: Description,
		DueOn:       dueDate,
	}
}

// DaysBetween returns the number of whole days from a to b, truncated
// towards zero (i.e. 36 hours are 1 day, -36 hours are -1 day).
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

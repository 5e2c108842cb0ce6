package processor

import (
	"errors"
	"testing"
	"time"

	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.xrstf.de/memorable_milestones/pkg/github"
	"go.xrstf.de/memorable_milestones/pkg/milestones"
)

// fakeTracker is an in-memory milestone list that serves pages and
// records all mutations.
type fakeTracker struct {
	milestones []github.Milestone
	perPage    int
	endless    bool

	pageCalls []int
	closed    []int
	created   []github.MilestoneSpec

	pageErr   error
	closeErr  error
	createErr error
}

func newFakeTracker(list ...github.Milestone) *fakeTracker {
	return &fakeTracker{
		milestones: list,
		perPage:    100,
	}
}

func (f *fakeTracker) Page(page int) ([]github.Milestone, error) {
	f.pageCalls = append(f.pageCalls, page)

	if f.pageErr != nil {
		return nil, f.pageErr
	}

	if f.endless {
		return []github.Milestone{{Number: page, Title: "noise", State: githubv4.MilestoneStateClosed}}, nil
	}

	start := (page - 1) * f.perPage
	if start >= len(f.milestones) {
		return []github.Milestone{}, nil
	}

	end := start + f.perPage
	if end > len(f.milestones) {
		end = len(f.milestones)
	}

	result := make([]github.Milestone, end-start)
	copy(result, f.milestones[start:end])

	return result, nil
}

func (f *fakeTracker) CloseMilestone(owner string, name string, number int) error {
	if f.closeErr != nil {
		return f.closeErr
	}

	f.closed = append(f.closed, number)

	for i := range f.milestones {
		if f.milestones[i].Number == number {
			f.milestones[i].State = githubv4.MilestoneStateClosed
		}
	}

	return nil
}

func (f *fakeTracker) CreateMilestone(owner string, name string, spec github.MilestoneSpec) (*github.Milestone, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	f.created = append(f.created, spec)

	dueOn := spec.DueOn
	milestone := github.Milestone{
		Number: len(f.milestones) + 1,
		Title:  spec.Title,
		State:  githubv4.MilestoneStateOpen,
		DueOn:  &dueOn,
	}
	f.milestones = append(f.milestones, milestone)

	return &milestone, nil
}

func (f *fakeTracker) mutations() int {
	return len(f.closed) + len(f.created)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func singleTemplateRegistry(t *testing.T) *milestones.Registry {
	t.Helper()

	registry, err := milestones.NewRegistry([]milestones.Template{{
		ID:           "avocado",
		Name:         "Avocado",
		Emoji:        "🥑",
		FirstDueDate: date(2020, 1, 1),
	}})
	require.NoError(t, err)

	return registry
}

func newTestProcessor(tracker *fakeTracker, registry *milestones.Registry, options Options) *Processor {
	log, _ := test.NewNullLogger()
	repo := github.NewRepository("owner", "repo")

	return New(tracker, tracker.Page, repo, registry, log, options)
}

func openMilestone(number int, open int, closed int) github.Milestone {
	return github.Milestone{
		Number:       number,
		Title:        "Sprint",
		State:        githubv4.MilestoneStateOpen,
		OpenIssues:   open,
		ClosedIssues: closed,
	}
}

func TestShouldClose(t *testing.T) {
	tests := []struct {
		name      string
		milestone github.Milestone
		expected  bool
	}{
		{name: "too few issues", milestone: openMilestone(1, 0, 2), expected: false},
		{name: "no issues at all", milestone: openMilestone(1, 0, 0), expected: false},
		{name: "all issues done", milestone: openMilestone(1, 0, 5), expected: true},
		{name: "exactly enough issues", milestone: openMilestone(1, 0, 3), expected: true},
		{name: "open issues left", milestone: openMilestone(1, 1, 5), expected: false},
		{
			name: "already closed",
			milestone: github.Milestone{
				State:        githubv4.MilestoneStateClosed,
				ClosedIssues: 5,
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldClose(&tt.milestone))
		})
	}
}

func TestProcessor_ClosesFinishedMilestones(t *testing.T) {
	tracker := newFakeTracker(
		openMilestone(1, 0, 2),
		openMilestone(2, 0, 5),
		openMilestone(3, 1, 5),
		github.Milestone{Number: 4, State: githubv4.MilestoneStateClosed, ClosedIssues: 5},
	)

	// far ahead of all due dates, so nothing is created
	p := newTestProcessor(tracker, singleTemplateRegistry(t), Options{Now: date(2019, 1, 1)})

	result, err := p.Run()
	require.NoError(t, err)

	assert.Equal(t, []int{2}, tracker.closed)
	assert.Equal(t, []ClosedMilestone{{Number: 2, Title: "Sprint"}}, result.ClosedMilestones)
	assert.Empty(t, result.MilestonesToAdd)
	assert.Empty(t, tracker.created)
}

func TestProcessor_CreatesUpcomingMilestone(t *testing.T) {
	tracker := newFakeTracker()
	p := newTestProcessor(tracker, singleTemplateRegistry(t), Options{Now: date(2020, 3, 1)})

	result, err := p.Run()
	require.NoError(t, err)

	expected := []github.MilestoneSpec{{
		Title:       "🥑  Avocado",
		Description: milestones.Description,
		DueOn:       date(2020, 4, 22),
	}}

	assert.Equal(t, expected, result.MilestonesToAdd)
	assert.Equal(t, expected, tracker.created)
	assert.Equal(t, OperationsPerRun-1, result.OperationsLeft)
	assert.False(t, result.Aborted)
	assert.Equal(t, "owner/repo", result.Repository)
}

func TestProcessor_DebugOnly(t *testing.T) {
	tracker := newFakeTracker()
	p := newTestProcessor(tracker, singleTemplateRegistry(t), Options{
		Now:       date(2020, 3, 1),
		DebugOnly: true,
	})

	result, err := p.Run()
	require.NoError(t, err)

	assert.Len(t, result.MilestonesToAdd, 1)
	assert.Zero(t, tracker.mutations())
}

func TestProcessor_DebugOnlyRecordsClosings(t *testing.T) {
	tracker := newFakeTracker(openMilestone(1, 0, 5))
	p := newTestProcessor(tracker, singleTemplateRegistry(t), Options{
		Now:       date(2019, 1, 1),
		DebugOnly: true,
	})

	result, err := p.Run()
	require.NoError(t, err)

	assert.Len(t, result.ClosedMilestones, 1)
	assert.Zero(t, tracker.mutations())
}

func TestProcessor_Idempotent(t *testing.T) {
	tracker := newFakeTracker()
	options := Options{Now: time.Date(2021, 5, 10, 12, 0, 0, 0, time.UTC)}

	first, err := newTestProcessor(tracker, milestones.DefaultRegistry(), options).Run()
	require.NoError(t, err)
	require.NotEmpty(t, first.MilestonesToAdd)
	assert.Len(t, tracker.created, len(first.MilestonesToAdd))

	second, err := newTestProcessor(tracker, milestones.DefaultRegistry(), options).Run()
	require.NoError(t, err)
	assert.Empty(t, second.MilestonesToAdd)
	assert.Len(t, tracker.created, len(first.MilestonesToAdd))
}

func TestProcessor_CreatesInRegistryOrder(t *testing.T) {
	tracker := newFakeTracker()
	registry := milestones.DefaultRegistry()

	result, err := newTestProcessor(tracker, registry, Options{Now: date(2021, 5, 10)}).Run()
	require.NoError(t, err)
	require.NotEmpty(t, result.MilestonesToAdd)

	order := map[string]int{}
	for i, tpl := range registry.Templates() {
		order[tpl.Title()] = i
	}

	for i := 1; i < len(result.MilestonesToAdd); i++ {
		assert.Less(t, order[result.MilestonesToAdd[i-1].Title], order[result.MilestonesToAdd[i].Title])
	}
}

func TestProcessor_PresenceTracking(t *testing.T) {
	now := date(2020, 3, 1)
	past := date(2020, 2, 1)
	future := date(2020, 4, 22)

	tests := []struct {
		name      string
		milestone github.Milestone
		created   bool
	}{
		{
			name:      "upcoming milestone exists",
			milestone: github.Milestone{Number: 1, Title: "🥑  Avocado", State: githubv4.MilestoneStateOpen, DueOn: &future},
			created:   false,
		},
		{
			name:      "milestone without due date exists",
			milestone: github.Milestone{Number: 1, Title: "🥑  Avocado", State: githubv4.MilestoneStateOpen},
			created:   false,
		},
		{
			name:      "closed upcoming milestone still counts",
			milestone: github.Milestone{Number: 1, Title: "🥑  Avocado", State: githubv4.MilestoneStateClosed, DueOn: &future},
			created:   false,
		},
		{
			name:      "past milestone is ignored",
			milestone: github.Milestone{Number: 1, Title: "🥑  Avocado", State: githubv4.MilestoneStateOpen, DueOn: &past},
			created:   true,
		},
		{
			name:      "milestone due right now is ignored",
			milestone: github.Milestone{Number: 1, Title: "🥑  Avocado", State: githubv4.MilestoneStateOpen, DueOn: &now},
			created:   true,
		},
		{
			name:      "renamed milestone is ignored",
			milestone: github.Milestone{Number: 1, Title: "🥑 Avocado", State: githubv4.MilestoneStateOpen, DueOn: &future},
			created:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newFakeTracker(tt.milestone)
			p := newTestProcessor(tracker, singleTemplateRegistry(t), Options{Now: now})

			result, err := p.Run()
			require.NoError(t, err)

			if tt.created {
				assert.Len(t, result.MilestonesToAdd, 1)
				assert.Len(t, tracker.created, 1)
			} else {
				assert.Empty(t, result.MilestonesToAdd)
				assert.Empty(t, tracker.created)
			}
		})
	}
}

func TestProcessor_Pagination(t *testing.T) {
	list := []github.Milestone{}
	for i := 1; i <= 300; i++ {
		list = append(list, openMilestone(i, 0, 5))
	}

	tracker := newFakeTracker(list...)
	p := newTestProcessor(tracker, singleTemplateRegistry(t), Options{Now: date(2019, 1, 1)})

	result, err := p.Run()
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, tracker.pageCalls)
	assert.Equal(t, OperationsPerRun-4, result.OperationsLeft)
	assert.Len(t, result.ClosedMilestones, 300)
	assert.Len(t, tracker.closed, 300)
}

func TestProcessor_BudgetExhausted(t *testing.T) {
	tracker := newFakeTracker()
	tracker.endless = true

	p := newTestProcessor(tracker, singleTemplateRegistry(t), Options{Now: date(2020, 3, 1)})

	result, err := p.Run()
	require.NoError(t, err)

	assert.True(t, result.Aborted)
	assert.Zero(t, result.OperationsLeft)
	assert.Len(t, tracker.pageCalls, OperationsPerRun)
	assert.Equal(t, OperationsPerRun, tracker.pageCalls[len(tracker.pageCalls)-1])

	// nothing is created from an incomplete scan
	assert.Empty(t, result.MilestonesToAdd)
	assert.Empty(t, tracker.created)
}

func TestProcessor_CollaboratorFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("listing fails", func(t *testing.T) {
		tracker := newFakeTracker()
		tracker.pageErr = boom

		_, err := newTestProcessor(tracker, singleTemplateRegistry(t), Options{Now: date(2020, 3, 1)}).Run()
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, tracker.created)
	})

	t.Run("closing fails", func(t *testing.T) {
		tracker := newFakeTracker(openMilestone(1, 0, 5), openMilestone(2, 0, 5))
		tracker.closeErr = boom

		_, err := newTestProcessor(tracker, singleTemplateRegistry(t), Options{Now: date(2020, 3, 1)}).Run()
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, tracker.created)
		assert.Len(t, tracker.pageCalls, 1)
	})

	t.Run("creating fails", func(t *testing.T) {
		tracker := newFakeTracker()
		tracker.createErr = boom

		result, err := newTestProcessor(tracker, milestones.DefaultRegistry(), Options{Now: date(2021, 5, 10)}).Run()
		assert.ErrorIs(t, err, boom)
		assert.NotEmpty(t, result.MilestonesToAdd)
	})
}

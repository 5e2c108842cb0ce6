package processor

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go.xrstf.de/memorable_milestones/pkg/fetcher"
	"go.xrstf.de/memorable_milestones/pkg/github"
	"go.xrstf.de/memorable_milestones/pkg/milestones"
)

// OperationsPerRun is the maximum number of milestone pages fetched in
// a single run.
const OperationsPerRun = 100

// Tracker performs the mutating calls against GitHub.
type Tracker interface {
	CloseMilestone(owner string, name string, number int) error
	CreateMilestone(owner string, name string, spec github.MilestoneSpec) (*github.Milestone, error)
}

type Options struct {
	// DebugOnly makes the processor compute and report everything, but
	// not close or create any milestones.
	DebugOnly bool

	// Now is the reference time for all due date calculations. If zero,
	// the current time is used.
	Now time.Time
}

type Result struct {
	Repository       string                 `yaml:"repository"`
	OperationsLeft   int                    `yaml:"operationsLeft"`
	MilestonesToAdd  []github.MilestoneSpec `yaml:"milestonesToAdd"`
	ClosedMilestones []ClosedMilestone      `yaml:"closedMilestones"`
	Aborted          bool                   `yaml:"aborted"`
}

type ClosedMilestone struct {
	Number int    `yaml:"number"`
	Title  string `yaml:"title"`
}

type Processor struct {
	tracker  Tracker
	pages    fetcher.PageFunc
	repo     *github.Repository
	registry *milestones.Registry
	log      logrus.FieldLogger
	options  Options
}

func New(tracker Tracker, pages fetcher.PageFunc, repo *github.Repository, registry *milestones.Registry, log logrus.FieldLogger, options Options) *Processor {
	return &Processor{
		tracker:  tracker,
		pages:    pages,
		repo:     repo,
		registry: registry,
		log:      log,
		options:  options,
	}
}

// runState is everything that is collected during a single run.
type runState struct {
	now            time.Time
	operationsLeft int
	current        map[string]struct{}
	result         *Result
}

// Run scans all milestones, closes the finished ones and creates the
// upcoming global milestones that do not exist yet. Running out of
// operations is not an error; the result is marked as aborted instead.
// Any error from GitHub stops the run immediately.
func (p *Processor) Run() (*Result, error) {
	now := p.options.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	state := &runState{
		now:            now,
		operationsLeft: OperationsPerRun,
		current:        map[string]struct{}{},
		result: &Result{
			Repository:       p.repo.FullName(),
			MilestonesToAdd:  []github.MilestoneSpec{},
			ClosedMilestones: []ClosedMilestone{},
		},
	}

	p.log.Infof("Checking milestones at %s", now.Format(time.RFC3339))

	if p.options.DebugOnly {
		p.log.Warn("Executing in debug mode. Debug output will be written but no milestones will be processed.")
	}

	complete, err := p.scan(state)
	state.result.OperationsLeft = state.operationsLeft

	if err != nil {
		return state.result, err
	}

	if !complete {
		p.log.Warn("Reached max number of operations to process. Exiting.")
		state.result.Aborted = true
		return state.result, nil
	}

	p.log.Info("Asserting milestones…")

	state.result.MilestonesToAdd = p.missingMilestones(state)
	p.log.Infof("# milestones to add: %d", len(state.result.MilestonesToAdd))

	if err := p.createMilestones(state.result.MilestonesToAdd); err != nil {
		return state.result, err
	}

	p.log.Info("No more milestones found to process. Exiting.")

	return state.result, nil
}

// scan walks through all pages of milestones. It returns false if the
// operation budget was used up before reaching the last page.
func (p *Processor) scan(state *runState) (bool, error) {
	for page := 1; ; page++ {
		if state.operationsLeft <= 0 {
			return false, nil
		}

		list, err := p.pages(page)
		state.operationsLeft--

		if err != nil {
			return false, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}

		if len(list) == 0 {
			return true, nil
		}

		for i := range list {
			p.trackMilestone(state, &list[i])

			if err := p.closeIfFinished(state, &list[i]); err != nil {
				return false, err
			}
		}
	}
}

// trackMilestone remembers which templates already have an upcoming
// milestone. Past milestones are ignored, so that they are recreated.
func (p *Processor) trackMilestone(state *runState, milestone *github.Milestone) {
	if !milestone.DueAfter(state.now) {
		return
	}

	id, ok := p.registry.Lookup(milestone.Title)

	p.log.WithField("milestone", milestone.Number).Debugf("Checking global milestone: %q", id)

	if ok {
		state.current[id] = struct{}{}
	}
}

// missingMilestones returns the specs for all templates that are not
// represented yet but have a due date coming up.
func (p *Processor) missingMilestones(state *runState) []github.MilestoneSpec {
	missing := []string{}
	specs := []github.MilestoneSpec{}

	for _, tpl := range p.registry.Templates() {
		if _, exists := state.current[tpl.ID]; exists {
			continue
		}

		missing = append(missing, tpl.ID)

		dueDate, ok := tpl.UpcomingDueDate(state.now)
		if !ok {
			continue
		}

		spec := tpl.Spec(dueDate)
		p.log.Infof("Milestone to add: %s", spec.Title)

		specs = append(specs, spec)
	}

	p.log.Infof("Global milestones left: %s", strings.Join(missing, ", "))

	return specs
}

func (p *Processor) createMilestones(specs []github.MilestoneSpec) error {
	if p.options.DebugOnly {
		return nil
	}

	for _, spec := range specs {
		created, err := p.tracker.CreateMilestone(p.repo.Owner, p.repo.Name, spec)
		if err != nil {
			return err
		}

		p.log.WithField("milestone", created.Number).Infof("Created milestone %s.", spec.Title)
	}

	return nil
}

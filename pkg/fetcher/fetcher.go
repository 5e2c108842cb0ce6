package fetcher

import (
	"fmt"

	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"

	"go.xrstf.de/memorable_milestones/pkg/github"
)

// PageFunc returns the given page (starting at 1) of milestones. An
// empty page signals that there are no more milestones.
type PageFunc func(page int) ([]github.Milestone, error)

// Lister is the cursor-based listing offered by the GitHub client.
type Lister interface {
	ListMilestones(owner string, name string, states []githubv4.MilestoneState, cursor string) ([]github.Milestone, string, error)
}

// Pager turns cursor-based listing into numbered pages. Pages must be
// requested in order, as the cursor for page N is only known once page
// N-1 has been fetched.
type Pager struct {
	lister  Lister
	repo    *github.Repository
	log     logrus.FieldLogger
	cursors map[int]string
	last    int
}

func NewPager(lister Lister, repo *github.Repository, log logrus.FieldLogger) *Pager {
	return &Pager{
		lister:  lister,
		repo:    repo,
		log:     log,
		cursors: map[int]string{1: ""},
		last:    0,
	}
}

// Page implements PageFunc.
func (p *Pager) Page(page int) ([]github.Milestone, error) {
	// the previous page was the last one
	if p.last > 0 && page > p.last {
		return []github.Milestone{}, nil
	}

	cursor, ok := p.cursors[page]
	if !ok {
		return nil, fmt.Errorf("cannot fetch page %d of %s before page %d", page, p.repo.FullName(), page-1)
	}

	milestones, next, err := p.lister.ListMilestones(p.repo.Owner, p.repo.Name, nil, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}

	p.log.WithField("page", page).Debugf("Fetched %d milestones.", len(milestones))

	if next == "" {
		p.last = page
	} else {
		p.cursors[page+1] = next
	}

	return milestones, nil
}

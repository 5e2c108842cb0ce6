package client

import (
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v53/github"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"

	"go.xrstf.de/memorable_milestones/pkg/github"
)

// MilestonesPerPage is the page size used when listing milestones.
const MilestonesPerPage = 100

type graphqlMilestone struct {
	Number    int
	Title     string
	State     githubv4.MilestoneState
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
	DueOn     *time.Time

	OpenIssues struct {
		TotalCount int
	} `graphql:"openIssues: issues(states: OPEN)"`

	ClosedIssues struct {
		TotalCount int
	} `graphql:"closedIssues: issues(states: CLOSED)"`

	OpenPullRequests struct {
		TotalCount int
	} `graphql:"openPullRequests: pullRequests(states: OPEN)"`

	ClosedPullRequests struct {
		TotalCount int
	} `graphql:"closedPullRequests: pullRequests(states: [MERGED, CLOSED])"`
}

// convertMilestone folds pull requests into the issue counts, just like
// GitHub does in its REST API.
func (c *Client) convertMilestone(api graphqlMilestone, fetchedAt time.Time) github.Milestone {
	return github.Milestone{
		Number:       api.Number,
		Title:        api.Title,
		State:        api.State,
		CreatedAt:    api.CreatedAt,
		UpdatedAt:    api.UpdatedAt,
		ClosedAt:     api.ClosedAt,
		DueOn:        api.DueOn,
		FetchedAt:    fetchedAt,
		OpenIssues:   api.OpenIssues.TotalCount + api.OpenPullRequests.TotalCount,
		ClosedIssues: api.ClosedIssues.TotalCount + api.ClosedPullRequests.TotalCount,
	}
}

func (c *Client) convertRESTMilestone(api *gh.Milestone, fetchedAt time.Time) github.Milestone {
	milestone := github.Milestone{
		Number:       api.GetNumber(),
		Title:        api.GetTitle(),
		State:        githubv4.MilestoneState(strings.ToUpper(api.GetState())),
		CreatedAt:    api.GetCreatedAt().Time,
		UpdatedAt:    api.GetUpdatedAt().Time,
		FetchedAt:    fetchedAt,
		OpenIssues:   api.GetOpenIssues(),
		ClosedIssues: api.GetClosedIssues(),
	}

	if api.ClosedAt != nil {
		closedAt := api.ClosedAt.Time
		milestone.ClosedAt = &closedAt
	}

	if api.DueOn != nil {
		dueOn := api.DueOn.Time
		milestone.DueOn = &dueOn
	}

	return milestone
}

type listMilestonesQuery struct {
	RateLimit  rateLimit
	Repository struct {
		Milestones struct {
			Nodes    []graphqlMilestone
			PageInfo struct {
				EndCursor   githubv4.String
				HasNextPage bool
			}
		} `graphql:"milestones(states: $states, first: 100, orderBy: {field: NUMBER, direction: ASC}, after: $cursor)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// ListMilestones returns one page of milestones and the cursor for the
// next page. The returned cursor is empty if there are no more pages.
// Milestones are sorted by number, so closing milestones while paging
// does not shuffle the remaining pages around.
func (c *Client) ListMilestones(owner string, name string, states []githubv4.MilestoneState, cursor string) ([]github.Milestone, string, error) {
	if states == nil {
		states = []githubv4.MilestoneState{
			githubv4.MilestoneStateOpen,
			githubv4.MilestoneStateClosed,
		}
	}

	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"states": states,
	}

	if cursor == "" {
		variables["cursor"] = (*githubv4.String)(nil)
	} else {
		variables["cursor"] = githubv4.String(cursor)
	}

	var q listMilestonesQuery

	err := c.client.Query(c.ctx, &q, variables)
	c.countRequest(owner, name, q.RateLimit)

	c.log.WithFields(logrus.Fields{
		"owner":  owner,
		"name":   name,
		"cursor": cursor,
		"cost":   q.RateLimit.Cost,
	}).Debugf("ListMilestones()")

	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	milestones := []github.Milestone{}
	for _, node := range q.Repository.Milestones.Nodes {
		milestones = append(milestones, c.convertMilestone(node, now))
	}

	cursor = ""
	if q.Repository.Milestones.PageInfo.HasNextPage {
		cursor = string(q.Repository.Milestones.PageInfo.EndCursor)
	}

	return milestones, cursor, nil
}

// CloseMilestone sets the state of the given milestone to closed. The
// GraphQL API has no mutations for milestones, so this goes through
// the REST API.
func (c *Client) CloseMilestone(owner string, name string, number int) error {
	_, resp, err := c.rest.Issues.EditMilestone(c.ctx, owner, name, number, &gh.Milestone{
		State: gh.String("closed"),
	})
	c.countRESTRequest(owner, name, resp)

	c.log.WithFields(logrus.Fields{
		"owner":  owner,
		"name":   name,
		"number": number,
	}).Debugf("CloseMilestone()")

	if err != nil {
		return fmt.Errorf("failed to close milestone #%d: %w", number, err)
	}

	return nil
}

func (c *Client) CreateMilestone(owner string, name string, spec github.MilestoneSpec) (*github.Milestone, error) {
	request := &gh.Milestone{
		Title:       gh.String(spec.Title),
		Description: gh.String(spec.Description),
	}

	if !spec.DueOn.IsZero() {
		request.DueOn = &gh.Timestamp{Time: spec.DueOn}
	}

	created, resp, err := c.rest.Issues.CreateMilestone(c.ctx, owner, name, request)
	c.countRESTRequest(owner, name, resp)

	c.log.WithFields(logrus.Fields{
		"owner": owner,
		"name":  name,
		"title": spec.Title,
	}).Debugf("CreateMilestone()")

	if err != nil {
		return nil, fmt.Errorf("failed to create milestone %q: %w", spec.Title, err)
	}

	milestone := c.convertRESTMilestone(created, time.Now())

	return &milestone, nil
}

package processor

import (
	"fmt"
	"time"

	"go.xrstf.de/memorable_milestones/pkg/github"
)

// MinIssuesInMilestone is the number of issues a milestone needs before
// it is considered for closing at all.
const MinIssuesInMilestone = 3

// ShouldClose returns true for open milestones with enough issues that
// are all done.
func ShouldClose(milestone *github.Milestone) bool {
	return milestone.IsOpen() && skipReason(milestone) == ""
}

func skipReason(milestone *github.Milestone) string {
	if milestone.TotalIssues() < MinIssuesInMilestone {
		return fmt.Sprintf("it has less than %d issues", MinIssuesInMilestone)
	}

	if milestone.OpenIssues > 0 {
		return "it has open issues/prs"
	}

	return ""
}

// closeIfFinished closes the milestone right away; there is no way to
// tag a milestone and revisit it in a later pass.
func (p *Processor) closeIfFinished(state *runState, milestone *github.Milestone) error {
	if !milestone.IsOpen() {
		return nil
	}

	log := p.log.WithField("milestone", milestone.Number)
	log.Infof("Found milestone: milestone #%d - %s last updated %s", milestone.Number, milestone.Title, milestone.UpdatedAt.Format(time.RFC3339))

	if reason := skipReason(milestone); reason != "" {
		log.Infof("Skipping closing %s because %s", milestone.Title, reason)
		return nil
	}

	log.Infof("Closing milestone #%d - %s", milestone.Number, milestone.Title)

	state.result.ClosedMilestones = append(state.result.ClosedMilestones, ClosedMilestone{
		Number: milestone.Number,
		Title:  milestone.Title,
	})

	if p.options.DebugOnly {
		return nil
	}

	return p.tracker.CloseMilestone(p.repo.Owner, p.repo.Name, milestone.Number)
}

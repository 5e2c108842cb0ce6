// SPDX-FileCopyrightText: 2023 Christoph Mewes
// SPDX-License-Identifier: MIT

package github

import (
	"time"

	"github.com/shurcooL/githubv4"
)

// Milestone is a milestone as it currently exists on GitHub.
type Milestone struct {
	Number       int
	Title        string
	State        githubv4.MilestoneState
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
	DueOn        *time.Time
	FetchedAt    time.Time
	OpenIssues   int
	ClosedIssues int
}

func (m *Milestone) IsOpen() bool {
	return m.State == githubv4.MilestoneStateOpen
}

func (m *Milestone) TotalIssues() int {
	return m.OpenIssues + m.ClosedIssues
}

// DueAfter returns true if the milestone has no due date or if it is
// due strictly after t.
func (m *Milestone) DueAfter(t time.Time) bool {
	return m.DueOn == nil || m.DueOn.After(t)
}

// MilestoneSpec is everything needed to create a new milestone.
type MilestoneSpec struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	DueOn       time.Time `yaml:"dueOn"`
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationsLeft = prometheus.NewDesc(
		"memorable_milestones_operations_left",
		"Number of page fetch operations left after the last run",
		[]string{"repo"},
		nil,
	)

	milestonesToAdd = prometheus.NewDesc(
		"memorable_milestones_milestones_to_add",
		"Number of global milestones that were missing during the last run",
		[]string{"repo"},
		nil,
	)

	milestonesClosedTotal = prometheus.NewDesc(
		"memorable_milestones_closed_total",
		"Total number of milestones closed since the process started",
		[]string{"repo"},
		nil,
	)

	milestonesCreatedTotal = prometheus.NewDesc(
		"memorable_milestones_created_total",
		"Total number of milestones created since the process started",
		[]string{"repo"},
		nil,
	)

	runsTotal = prometheus.NewDesc(
		"memorable_milestones_runs_total",
		"Total number of runs per repository and outcome",
		[]string{"repo", "outcome"},
		nil,
	)

	lastRunTimestamp = prometheus.NewDesc(
		"memorable_milestones_last_run_timestamp",
		"UNIX timestamp of the last run",
		[]string{"repo"},
		nil,
	)

	githubPointsRemaining = prometheus.NewDesc(
		"memorable_milestones_api_points_remaining",
		"Number of currently remaining GitHub GraphQL API points",
		nil,
		nil,
	)

	githubRequestsRemaining = prometheus.NewDesc(
		"memorable_milestones_api_requests_remaining",
		"Number of currently remaining GitHub REST API requests",
		nil,
		nil,
	)

	githubRequestsTotal = prometheus.NewDesc(
		"memorable_milestones_api_requests_total",
		"Total number of requests against the GitHub API",
		[]string{"repo"},
		nil,
	)
)

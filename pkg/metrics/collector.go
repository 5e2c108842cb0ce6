package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// APIStats is implemented by the GitHub client.
type APIStats interface {
	GetRemainingPoints() int
	GetRemainingRequests() int
	GetRequestCounts() map[string]int
}

type Collector struct {
	recorder *Recorder
	client   APIStats
}

func NewCollector(recorder *Recorder, client APIStats) *Collector {
	return &Collector{
		recorder: recorder,
		client:   client,
	}
}

func (mc *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(mc, ch)
}

func (mc *Collector) Collect(ch chan<- prometheus.Metric) {
	requestCounts := mc.client.GetRequestCounts()

	_ = mc.recorder.rLocked(func(repos map[string]*repoStats) error {
		for repoName, stats := range repos {
			mc.collectRepository(ch, repoName, stats)
		}

		return nil
	})

	for repoName, count := range requestCounts {
		ch <- prometheus.MustNewConstMetric(githubRequestsTotal, prometheus.CounterValue, float64(count), repoName)
	}

	ch <- prometheus.MustNewConstMetric(githubPointsRemaining, prometheus.GaugeValue, float64(mc.client.GetRemainingPoints()))
	ch <- prometheus.MustNewConstMetric(githubRequestsRemaining, prometheus.GaugeValue, float64(mc.client.GetRemainingRequests()))
}

func (mc *Collector) collectRepository(ch chan<- prometheus.Metric, repoName string, stats *repoStats) {
	ch <- prometheus.MustNewConstMetric(operationsLeft, prometheus.GaugeValue, float64(stats.operationsLeft), repoName)
	ch <- prometheus.MustNewConstMetric(milestonesToAdd, prometheus.GaugeValue, float64(stats.milestonesToAdd), repoName)
	ch <- prometheus.MustNewConstMetric(milestonesClosedTotal, prometheus.CounterValue, float64(stats.closed), repoName)
	ch <- prometheus.MustNewConstMetric(milestonesCreatedTotal, prometheus.CounterValue, float64(stats.created), repoName)
	ch <- prometheus.MustNewConstMetric(lastRunTimestamp, prometheus.GaugeValue, float64(stats.lastRun.Unix()), repoName)

	for outcome, count := range stats.runs {
		ch <- prometheus.MustNewConstMetric(runsTotal, prometheus.CounterValue, float64(count), repoName, outcome)
	}
}

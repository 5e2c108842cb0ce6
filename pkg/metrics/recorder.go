package metrics

import (
	"sync"
	"time"

	"go.xrstf.de/memorable_milestones/pkg/processor"
)

const (
	OutcomeSuccess = "success"
	OutcomeAborted = "aborted"
	OutcomeError   = "error"
)

type repoStats struct {
	operationsLeft  int
	milestonesToAdd int
	closed          int
	created         int
	runs            map[string]int
	lastRun         time.Time
}

// Recorder keeps track of all processor runs for the collector.
type Recorder struct {
	repos map[string]*repoStats
	lock  sync.RWMutex
}

func NewRecorder() *Recorder {
	return &Recorder{
		repos: map[string]*repoStats{},
		lock:  sync.RWMutex{},
	}
}

// Record stores the outcome of a single run. result may be nil if the
// run failed before producing anything. In debug mode nothing is really
// closed or created, so debugOnly runs only update the gauges.
func (r *Recorder) Record(repo string, result *processor.Result, err error, debugOnly bool, at time.Time) {
	r.lock.Lock()
	defer r.lock.Unlock()

	stats, ok := r.repos[repo]
	if !ok {
		stats = &repoStats{
			runs: map[string]int{
				OutcomeSuccess: 0,
				OutcomeAborted: 0,
				OutcomeError:   0,
			},
		}
		r.repos[repo] = stats
	}

	stats.lastRun = at

	switch {
	case err != nil:
		stats.runs[OutcomeError]++
	case result != nil && result.Aborted:
		stats.runs[OutcomeAborted]++
	default:
		stats.runs[OutcomeSuccess]++
	}

	if result == nil {
		return
	}

	stats.operationsLeft = result.OperationsLeft
	stats.milestonesToAdd = len(result.MilestonesToAdd)

	if !debugOnly {
		stats.closed += len(result.ClosedMilestones)

		// a failed run might not have created everything
		if err == nil {
			stats.created += len(result.MilestonesToAdd)
		}
	}
}

func (r *Recorder) rLocked(callback func(map[string]*repoStats) error) error {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return callback(r.repos)
}

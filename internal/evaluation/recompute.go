package evaluation

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Recomputer coalesces rapid recompute requests: each Schedule supersedes
// the pending one, and only the most recent request's computation runs
// after the delay window. Superseded computations are discarded, never
// merged.
type Recomputer struct {
	mu         sync.Mutex
	delay      time.Duration
	timer      *time.Timer
	generation uint64
	logger     *logrus.Logger
}

// NewRecomputer creates a debouncer with the given delay window.
func NewRecomputer(delay time.Duration, logger *logrus.Logger) *Recomputer {
	return &Recomputer{delay: delay, logger: logger}
}

// Schedule queues compute to run after the delay, cancelling any pending
// request. The generation token guards against a timer that already fired
// racing a newer schedule.
func (r *Recomputer) Schedule(compute func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	token := r.generation

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.delay, func() {
		r.mu.Lock()
		current := r.generation == token
		r.mu.Unlock()

		if !current {
			r.logger.Debug("Discarding superseded recompute")
			return
		}
		compute()
	})
}

// Stop cancels any pending recompute.
func (r *Recomputer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tracksync/internal/store"
	"tracksync/internal/utils"
)

// JobFunc is one scheduled unit of work. Jobs that act on behalf of a
// user receive the acting principal's local user id.
type JobFunc func(actingUserID string) error

// job is one registered periodic job and its runtime state
type job struct {
	name         string
	interval     time.Duration
	requiresUser bool
	fn           JobFunc

	// Prevents overlapping runs of the same job
	running atomic.Bool

	runs     atomic.Int64
	failures atomic.Int64
	lastRun  atomic.Int64 // unix seconds, 0 = never
}

// Scheduler drives the periodic sync jobs of the daemon. Each job ticks
// on its own interval; a tick that arrives while the previous run of
// the same job is still executing is skipped, not queued.
type Scheduler struct {
	store *store.Store

	mu   sync.Mutex
	jobs []*job

	wg       sync.WaitGroup
	stop     chan struct{}
	started  atomic.Bool
	shutdown atomic.Bool
}

// NewScheduler creates a scheduler over the given store
func NewScheduler(s *store.Store) *Scheduler {
	return &Scheduler{
		store: s,
		stop:  make(chan struct{}),
	}
}

// AddJob registers a periodic job. Jobs with requiresUser run as the
// oldest active admin and are skipped while no such user exists.
func (sc *Scheduler) AddJob(name string, interval time.Duration, requiresUser bool, fn JobFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("job name and function are required")
	}
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	if sc.started.Load() {
		return fmt.Errorf("cannot add job %s: scheduler already started", name)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, existing := range sc.jobs {
		if existing.name == name {
			return fmt.Errorf("job %s is already registered", name)
		}
	}
	sc.jobs = append(sc.jobs, &job{
		name:         name,
		interval:     interval,
		requiresUser: requiresUser,
		fn:           fn,
	})
	return nil
}

// Start launches one ticker goroutine per registered job. Every job
// also runs once immediately so a fresh daemon converges without
// waiting a full interval.
func (sc *Scheduler) Start() error {
	if !sc.started.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already started")
	}

	sc.mu.Lock()
	jobs := make([]*job, len(sc.jobs))
	copy(jobs, sc.jobs)
	sc.mu.Unlock()

	if len(jobs) == 0 {
		return fmt.Errorf("no jobs registered")
	}

	for _, j := range jobs {
		sc.wg.Add(1)
		go sc.runLoop(j)
	}
	utils.Infof("scheduler started with %d jobs", len(jobs))
	return nil
}

func (sc *Scheduler) runLoop(j *job) {
	defer sc.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	sc.executeJob(j)
	for {
		select {
		case <-sc.stop:
			return
		case <-ticker.C:
			if sc.shutdown.Load() {
				return
			}
			sc.executeJob(j)
		}
	}
}

// executeJob runs one job occurrence, skipping when the previous
// occurrence is still in flight.
func (sc *Scheduler) executeJob(j *job) {
	if !j.running.CompareAndSwap(false, true) {
		utils.Debugf("job %s still running, skipping tick", j.name)
		return
	}
	defer j.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			j.failures.Add(1)
			utils.Errorf("panic in job %s: %v", j.name, r)
		}
	}()

	actingUserID := ""
	if j.requiresUser {
		admin, err := sc.store.FirstActiveAdmin()
		if err != nil {
			j.failures.Add(1)
			utils.Errorf("job %s: failed to resolve acting admin: %v", j.name, err)
			return
		}
		if admin == nil {
			utils.Debugf("job %s skipped: no active admin user", j.name)
			return
		}
		actingUserID = admin.ID
	}

	j.runs.Add(1)
	j.lastRun.Store(time.Now().Unix())
	if err := j.fn(actingUserID); err != nil {
		j.failures.Add(1)
		utils.Warnf("job %s failed: %v", j.name, err)
		return
	}
	utils.Debugf("job %s completed", j.name)
}

// Trigger runs one job immediately, outside its schedule. Returns false
// when the job does not exist or is already running.
func (sc *Scheduler) Trigger(name string) bool {
	sc.mu.Lock()
	var target *job
	for _, j := range sc.jobs {
		if j.name == name {
			target = j
			break
		}
	}
	sc.mu.Unlock()

	if target == nil || sc.shutdown.Load() {
		return false
	}
	if target.running.Load() {
		return false
	}
	sc.executeJob(target)
	return true
}

// JobStatus is a snapshot of one job's counters
type JobStatus struct {
	Name     string
	Interval time.Duration
	Runs     int64
	Failures int64
	LastRun  *time.Time
}

// Status returns a snapshot of every registered job
func (sc *Scheduler) Status() []JobStatus {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	statuses := make([]JobStatus, 0, len(sc.jobs))
	for _, j := range sc.jobs {
		status := JobStatus{
			Name:     j.name,
			Interval: j.interval,
			Runs:     j.runs.Load(),
			Failures: j.failures.Load(),
		}
		if unix := j.lastRun.Load(); unix > 0 {
			t := time.Unix(unix, 0)
			status.LastRun = &t
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Shutdown stops ticking and waits for in-flight jobs, up to the timeout
func (sc *Scheduler) Shutdown(timeout time.Duration) {
	if !sc.shutdown.CompareAndSwap(false, true) {
		return
	}
	close(sc.stop)

	done := make(chan struct{})
	go func() {
		sc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		utils.Infof("scheduler stopped")
	case <-time.After(timeout):
		utils.Warnf("jobs did not finish within %v", timeout)
	}
}

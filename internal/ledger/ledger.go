package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"tracksync/internal/store"
	"tracksync/internal/utils"
)

// DefaultInterruptedAfter is how long a run may sit in 'started' before
// read paths report it as interrupted.
const DefaultInterruptedAfter = time.Hour

// StatusInterrupted is a display-only classification for stale 'started'
// rows. It never appears in the database; stored status is forward-only
// started -> completed | failed.
const StatusInterrupted = "interrupted"

// Ledger records one entry per sync flow execution. Every flow begins
// with a persisted 'started' row and is finalized exactly once.
type Ledger struct {
	store            *store.Store
	interruptedAfter time.Duration
}

// NewLedger creates a ledger over the given store
func NewLedger(s *store.Store, interruptedAfter time.Duration) *Ledger {
	if interruptedAfter <= 0 {
		interruptedAfter = DefaultInterruptedAfter
	}
	return &Ledger{store: s, interruptedAfter: interruptedAfter}
}

// Begin persists a 'started' entry and returns it. The row is flushed
// before any remote work happens, so a crash still leaves a trace.
func (l *Ledger) Begin(flowType, userID, targetID, targetName string) (*store.SyncRun, error) {
	run := &store.SyncRun{
		ID:         uuid.NewString(),
		UserID:     userID,
		FlowType:   flowType,
		TargetID:   targetID,
		TargetName: targetName,
		Status:     store.RunStarted,
		StartedAt:  time.Now(),
	}
	if err := l.store.InsertRun(run); err != nil {
		return nil, fmt.Errorf("failed to begin %s run: %w", flowType, err)
	}
	utils.Debugf("sync run %s started (%s)", run.ID, flowType)
	return run, nil
}

// Complete finalizes a run as completed with its item counts
func (l *Ledger) Complete(run *store.SyncRun, created, updated, failed, total int) error {
	now := time.Now()
	run.Status = store.RunCompleted
	run.CreatedCount = created
	run.UpdatedCount = updated
	run.FailedCount = failed
	run.TotalCount = total
	run.CompletedAt = &now
	run.Duration = now.Sub(run.StartedAt)
	if err := l.store.FinalizeRun(run); err != nil {
		return err
	}
	utils.Debugf("sync run %s completed: %d created, %d updated, %d failed of %d",
		run.ID, created, updated, failed, total)
	return nil
}

// Fail finalizes a run as failed, keeping whatever counts were reached
// before the flow aborted.
func (l *Ledger) Fail(run *store.SyncRun, message string) error {
	now := time.Now()
	run.Status = store.RunFailed
	run.ErrorMessage = message
	run.CompletedAt = &now
	run.Duration = now.Sub(run.StartedAt)
	if err := l.store.FinalizeRun(run); err != nil {
		return err
	}
	utils.Warnf("sync run %s failed: %s", run.ID, message)
	return nil
}

// Get returns one run by id, or nil when it does not exist
func (l *Ledger) Get(runID string) (*store.SyncRun, error) {
	return l.store.GetRun(runID)
}

// Recent lists ledger entries matching the filter, newest first
func (l *Ledger) Recent(filter store.RunFilter) ([]store.SyncRun, error) {
	return l.store.ListRuns(filter)
}

// LastSyncedAt returns when a flow type last completed, or nil if never
func (l *Ledger) LastSyncedAt(flowType string) (*time.Time, error) {
	run, err := l.store.LastCompletedRun(flowType)
	if err != nil || run == nil {
		return nil, err
	}
	return run.CompletedAt, nil
}

// Stats aggregates run outcomes, counting stale 'started' rows as
// interrupted.
func (l *Ledger) Stats() (*store.RunStats, error) {
	return l.store.GetRunStats(l.interruptedAfter)
}

// EffectiveStatus returns the status to display for a run. Stored rows
// are never rewritten; a 'started' row older than the interrupted
// threshold is classified at read time.
func (l *Ledger) EffectiveStatus(run *store.SyncRun) string {
	if run.Status == store.RunStarted && time.Since(run.StartedAt) > l.interruptedAfter {
		return StatusInterrupted
	}
	return run.Status
}

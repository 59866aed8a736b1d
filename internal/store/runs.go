package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Flow type and status vocabulary for the sync run ledger.
const (
	FlowAllProjects  = "all_projects"
	FlowProjectTasks = "project_tasks"
	FlowUserTasks    = "user_tasks"
	FlowUserImport   = "user_import"
	FlowSingleIssue  = "single_issue"

	RunStarted   = "started"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// SyncRun is one ledger entry: a single flow execution and its outcome
type SyncRun struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	FlowType     string        `json:"flow_type"`
	TargetID     string        `json:"target_id,omitempty"`
	TargetName   string        `json:"target_name,omitempty"`
	Status       string        `json:"status"`
	CreatedCount int           `json:"created_count"`
	UpdatedCount int           `json:"updated_count"`
	FailedCount  int           `json:"failed_count"`
	TotalCount   int           `json:"total_count"`
	ErrorMessage string        `json:"error_message,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration_ns,omitempty"`
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	UserID   string
	FlowType string
	Status   string
	Since    time.Time
	Limit    int
}

// InsertRun persists a new 'started' ledger entry immediately, so a
// stable id exists even if the process crashes mid-flow.
func (s *Store) InsertRun(run *SyncRun) error {
	_, err := s.Exec(`
		INSERT INTO sync_runs (id, user_id, flow_type, target_id, target_name,
		    status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, NullString(run.UserID), run.FlowType, NullString(run.TargetID),
		NullString(run.TargetName), run.Status, run.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// FinalizeRun transitions a run out of 'started' exactly once. The WHERE
// clause refuses to touch already-finalized rows, keeping the forward-only
// status invariant in the database itself.
func (s *Store) FinalizeRun(run *SyncRun) error {
	completedAt := int64(0)
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.Unix()
	}

	res, err := s.Exec(`
		UPDATE sync_runs
		SET status = ?, created_count = ?, updated_count = ?, failed_count = ?,
		    total_count = ?, error_message = ?, completed_at = ?, duration_ms = ?
		WHERE id = ? AND status = 'started'
	`,
		run.Status, run.CreatedCount, run.UpdatedCount, run.FailedCount,
		run.TotalCount, NullString(run.ErrorMessage), completedAt,
		run.Duration.Milliseconds(), run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize sync run %s: %w", run.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("sync run %s is not in started state", run.ID)
	}
	return nil
}

// GetRun returns one ledger entry by id
func (s *Store) GetRun(runID string) (*SyncRun, error) {
	row := s.QueryRow(`
		SELECT id, user_id, flow_type, target_id, target_name, status,
		       created_count, updated_count, failed_count, total_count,
		       error_message, started_at, completed_at, duration_ms
		FROM sync_runs WHERE id = ?
	`, runID)
	return scanRun(row)
}

// ListRuns returns ledger entries matching the filter, newest first
func (s *Store) ListRuns(filter RunFilter) ([]SyncRun, error) {
	query := `
		SELECT id, user_id, flow_type, target_id, target_name, status,
		       created_count, updated_count, failed_count, total_count,
		       error_message, started_at, completed_at, duration_ms
		FROM sync_runs WHERE 1=1`
	var args []interface{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.FlowType != "" {
		query += " AND flow_type = ?"
		args = append(args, filter.FlowType)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if !filter.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, filter.Since.Unix())
	}

	query += " ORDER BY started_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// LastCompletedRun returns the newest completed run for a flow type, or
// nil when the flow has never completed.
func (s *Store) LastCompletedRun(flowType string) (*SyncRun, error) {
	row := s.QueryRow(`
		SELECT id, user_id, flow_type, target_id, target_name, status,
		       created_count, updated_count, failed_count, total_count,
		       error_message, started_at, completed_at, duration_ms
		FROM sync_runs
		WHERE flow_type = ? AND status = 'completed'
		ORDER BY completed_at DESC LIMIT 1
	`, flowType)
	return scanRun(row)
}

// RunStats aggregates ledger outcomes for reporting
type RunStats struct {
	Total       int
	Completed   int
	Failed      int
	Interrupted int // 'started' rows older than the interrupted threshold
}

// GetRunStats counts run outcomes, classifying stale 'started' rows as
// interrupted. Rows are never mutated; classification is read-time only.
func (s *Store) GetRunStats(interruptedAfter time.Duration) (*RunStats, error) {
	cutoff := time.Now().Add(-interruptedAfter).Unix()

	var stats RunStats
	err := s.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'started' AND started_at < ? THEN 1 ELSE 0 END), 0)
		FROM sync_runs
	`, cutoff).Scan(&stats.Total, &stats.Completed, &stats.Failed, &stats.Interrupted)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate run stats: %w", err)
	}
	return &stats, nil
}

func scanRun(row rowScanner) (*SyncRun, error) {
	var run SyncRun
	var userID, targetID, targetName, errorMessage sql.NullString
	var startedAt int64
	var completedAt, durationMs sql.NullInt64

	err := row.Scan(&run.ID, &userID, &run.FlowType, &targetID, &targetName,
		&run.Status, &run.CreatedCount, &run.UpdatedCount, &run.FailedCount,
		&run.TotalCount, &errorMessage, &startedAt, &completedAt, &durationMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run.UserID = userID.String
	run.TargetID = targetID.String
	run.TargetName = targetName.String
	run.ErrorMessage = errorMessage.String
	run.StartedAt = time.Unix(startedAt, 0)
	if completedAt.Valid && completedAt.Int64 > 0 {
		run.CompletedAt = NullInt64ToTimePtr(completedAt)
	}
	if durationMs.Valid {
		run.Duration = time.Duration(durationMs.Int64) * time.Millisecond
	}
	return &run, nil
}

package reconcile

import (
	"strings"

	"tracksync/internal/utils"
)

// Local task status vocabulary. Remote trackers have free-form workflow
// status names; everything maps into these five.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusInReview   = "in_review"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// statusAliases maps normalized remote workflow names to local statuses.
// Keys are lowercase with spaces collapsed to single spaces.
var statusAliases = map[string]string{
	"to do":          StatusTodo,
	"todo":           StatusTodo,
	"open":           StatusTodo,
	"new":            StatusTodo,
	"backlog":        StatusTodo,
	"selected":       StatusTodo,
	"reopened":       StatusTodo,
	"in progress":    StatusInProgress,
	"in dev":         StatusInProgress,
	"in development": StatusInProgress,
	"doing":          StatusInProgress,
	"in review":      StatusInReview,
	"review":         StatusInReview,
	"code review":    StatusInReview,
	"in qa":          StatusInReview,
	"testing":        StatusInReview,
	"done":           StatusDone,
	"closed":         StatusDone,
	"resolved":       StatusDone,
	"complete":       StatusDone,
	"completed":      StatusDone,
	"cancelled":      StatusCancelled,
	"canceled":       StatusCancelled,
	"won't do":       StatusCancelled,
	"wont do":        StatusCancelled,
	"rejected":       StatusCancelled,
	"discarded":      StatusCancelled,
}

// MapStatus converts a remote workflow status name to the local
// vocabulary. Unknown names fall back to the baseline status rather than
// failing the item; the sync must survive custom workflows.
func MapStatus(remoteName string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(remoteName)), " ")
	if mapped, ok := statusAliases[normalized]; ok {
		return mapped
	}
	if normalized != "" {
		utils.Debugf("unknown remote status %q, defaulting to %s", remoteName, StatusTodo)
	}
	return StatusTodo
}

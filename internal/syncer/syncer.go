package syncer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tracksync/internal/cache"
	"tracksync/internal/ledger"
	"tracksync/internal/reconcile"
	"tracksync/internal/remote"
	"tracksync/internal/store"
	"tracksync/internal/token"
	"tracksync/internal/utils"
)

// Syncer orchestrates the pull flows: it acquires a token, fetches from
// the tracker, hands records to the reconciler, and books every flow
// execution into the ledger.
type Syncer struct {
	store  *store.Store
	client remote.Client
	tokens *token.Manager
	rec    *reconcile.Reconciler
	ledger *ledger.Ledger

	// PageSize overrides the issue page size requested from the tracker.
	// Zero means remote.DefaultPageSize.
	PageSize int

	// Duplicate-run tracking, one flag per (flow, target)
	running map[string]*atomic.Bool
	mu      sync.Mutex
}

// ImportOptions controls the user import flow
type ImportOptions struct {
	DefaultRole     string
	IncludeInactive bool
}

// NewSyncer wires the orchestrator
func NewSyncer(s *store.Store, client remote.Client, tokens *token.Manager, l *ledger.Ledger) *Syncer {
	return &Syncer{
		store:   s,
		client:  client,
		tokens:  tokens,
		rec:     reconcile.NewReconciler(s),
		ledger:  l,
		running: make(map[string]*atomic.Bool),
	}
}

// acquire claims the run flag for a (flow, target) pair. Returns false
// when a run for the same pair is already in flight.
func (sy *Syncer) acquire(flowType, targetID string) (release func(), ok bool) {
	key := flowType + ":" + targetID

	sy.mu.Lock()
	flag, exists := sy.running[key]
	if !exists {
		flag = &atomic.Bool{}
		sy.running[key] = flag
	}
	sy.mu.Unlock()

	if !flag.CompareAndSwap(false, true) {
		return nil, false
	}
	return func() { flag.Store(false) }, true
}

// withAuthRetry runs fn with a valid token, forcing one refresh and one
// retry when the tracker rejects the token mid-flight.
func (sy *Syncer) withAuthRetry(userID string, fn func(token string) error) error {
	tok, err := sy.tokens.EnsureValidToken(userID)
	if err != nil {
		if errors.Is(err, token.ErrNoCredential) {
			return utils.ErrNotConnected(userID)
		}
		return err
	}

	err = fn(tok)
	if err != nil && remote.IsUnauthorized(err) {
		utils.Debugf("tracker rejected token for user %s, forcing refresh", userID)
		tok, refreshErr := sy.tokens.ForceRefresh(userID)
		if refreshErr != nil {
			var rerr *token.RefreshError
			if errors.As(refreshErr, &rerr) {
				return utils.ErrReauthRequired(userID)
			}
			return refreshErr
		}
		return fn(tok)
	}
	return err
}

// SyncAllProjects pulls every visible project and its membership
// snapshot. The project list fetch is the flow's foundation: if it
// fails, the run fails. A single project's membership fetch failing only
// marks that item.
func (sy *Syncer) SyncAllProjects(userID string) (*store.SyncRun, error) {
	release, ok := sy.acquire(store.FlowAllProjects, "")
	if !ok {
		return nil, utils.ErrSyncAlreadyRunning("project sync", "")
	}
	defer release()

	run, err := sy.ledger.Begin(store.FlowAllProjects, userID, "", "")
	if err != nil {
		return nil, err
	}

	var projects []remote.Project
	err = sy.withAuthRetry(userID, func(tok string) error {
		var listErr error
		projects, listErr = sy.client.ListProjects(tok)
		return listErr
	})
	if err != nil {
		_ = sy.ledger.Fail(run, fmt.Sprintf("project list fetch failed: %v", err))
		return run, err
	}

	var created, updated, failed int
	for i := range projects {
		rp := &projects[i]

		project, wasCreated, err := sy.rec.UpsertProject(rp)
		if err != nil {
			utils.Warnf("failed to reconcile project %s: %v", rp.Key, err)
			failed++
			continue
		}
		if wasCreated {
			created++
		} else {
			updated++
		}

		// Membership is per-item: one project's member fetch failing
		// must not sink the others.
		var members []remote.User
		err = sy.withAuthRetry(userID, func(tok string) error {
			var memberErr error
			members, memberErr = sy.client.ListProjectMembers(tok, rp.ID)
			return memberErr
		})
		if err != nil {
			utils.Warnf("failed to fetch members for project %s: %v", rp.Key, err)
			continue
		}
		if _, err := sy.rec.ReplaceMembership(project.ID, members); err != nil {
			utils.Warnf("failed to replace membership for project %s: %v", rp.Key, err)
		}
	}

	if err := sy.ledger.Complete(run, created, updated, failed, len(projects)); err != nil {
		return run, err
	}
	sy.refreshProjectSnapshot()
	return run, nil
}

// SyncProjectTasks pulls all issues of one project, referenced by its
// key or remote id.
func (sy *Syncer) SyncProjectTasks(userID, projectRef string) (*store.SyncRun, error) {
	project, err := sy.resolveProject(projectRef)
	if err != nil {
		return nil, err
	}

	release, ok := sy.acquire(store.FlowProjectTasks, project.ExternalID)
	if !ok {
		return nil, utils.ErrSyncAlreadyRunning("task sync", project.Key)
	}
	defer release()

	run, err := sy.ledger.Begin(store.FlowProjectTasks, userID, project.ExternalID, project.Key)
	if err != nil {
		return nil, err
	}

	issues, err := sy.fetchAllIssues(userID, remote.IssueFilter{ProjectID: project.ExternalID})
	if err != nil {
		_ = sy.ledger.Fail(run, fmt.Sprintf("issue fetch failed: %v", err))
		return run, err
	}

	created, updated, failed := sy.reconcileIssues(userID, issues)
	if err := sy.ledger.Complete(run, created, updated, failed, len(issues)); err != nil {
		return run, err
	}
	sy.refreshProjectSnapshot()
	return run, nil
}

// SyncUserTasks pulls all issues assigned to one tracker account,
// across projects.
func (sy *Syncer) SyncUserTasks(userID, accountID string) (*store.SyncRun, error) {
	targetName := accountID
	if u, err := sy.store.GetUserByExternalID(accountID); err == nil && u != nil {
		targetName = u.DisplayName
	}

	release, ok := sy.acquire(store.FlowUserTasks, accountID)
	if !ok {
		return nil, utils.ErrSyncAlreadyRunning("task sync", targetName)
	}
	defer release()

	run, err := sy.ledger.Begin(store.FlowUserTasks, userID, accountID, targetName)
	if err != nil {
		return nil, err
	}

	issues, err := sy.fetchAllIssues(userID, remote.IssueFilter{AssigneeID: accountID})
	if err != nil {
		_ = sy.ledger.Fail(run, fmt.Sprintf("issue fetch failed: %v", err))
		return run, err
	}

	created, updated, failed := sy.reconcileIssues(userID, issues)
	if err := sy.ledger.Complete(run, created, updated, failed, len(issues)); err != nil {
		return run, err
	}
	sy.refreshProjectSnapshot()
	return run, nil
}

// ImportUsers pulls the membership of every visible project and
// reconciles each distinct account into the local user table. Member
// listings carry the short user shape, so the full record (including
// email) is fetched once per distinct account. Created users get
// opts.DefaultRole; existing users keep their local role.
func (sy *Syncer) ImportUsers(userID string, opts ImportOptions) (*store.SyncRun, error) {
	release, ok := sy.acquire(store.FlowUserImport, "")
	if !ok {
		return nil, utils.ErrSyncAlreadyRunning("user import", "")
	}
	defer release()

	run, err := sy.ledger.Begin(store.FlowUserImport, userID, "", "")
	if err != nil {
		return nil, err
	}

	var projects []remote.Project
	err = sy.withAuthRetry(userID, func(tok string) error {
		var listErr error
		projects, listErr = sy.client.ListProjects(tok)
		return listErr
	})
	if err != nil {
		_ = sy.ledger.Fail(run, fmt.Sprintf("project list fetch failed: %v", err))
		return run, err
	}

	var created, updated, failed, total int
	seen := make(map[string]bool)
	for i := range projects {
		rp := &projects[i]

		var members []remote.User
		err := sy.withAuthRetry(userID, func(tok string) error {
			var memberErr error
			members, memberErr = sy.client.ListProjectMembers(tok, rp.ID)
			return memberErr
		})
		if err != nil {
			utils.Warnf("failed to fetch members for project %s: %v", rp.Key, err)
			failed++
			continue
		}

		for j := range members {
			member := &members[j]
			if seen[member.AccountID] {
				continue
			}
			seen[member.AccountID] = true

			if !member.Active && !opts.IncludeInactive {
				continue
			}
			total++

			record := member
			err := sy.withAuthRetry(userID, func(tok string) error {
				detail, getErr := sy.client.GetUser(tok, member.AccountID)
				if getErr != nil {
					return getErr
				}
				record = detail
				return nil
			})
			if err != nil {
				utils.Debugf("detail fetch for user %s failed, using embedded fields: %v", member.AccountID, err)
			}

			_, wasCreated, err := sy.rec.UpsertUser(record, opts.DefaultRole)
			if err != nil {
				utils.Warnf("failed to reconcile user %s: %v", member.AccountID, err)
				failed++
				continue
			}
			if wasCreated {
				created++
			} else {
				updated++
			}
		}
	}

	if err := sy.ledger.Complete(run, created, updated, failed, total); err != nil {
		return run, err
	}
	return run, nil
}

// SyncIssue pulls one issue by id or key. This is the on-demand path:
// it touches the ledger not at all and fails loudly instead of counting.
func (sy *Syncer) SyncIssue(userID, issueRef string) (*store.Task, error) {
	var issue *remote.Issue
	err := sy.withAuthRetry(userID, func(tok string) error {
		var getErr error
		issue, getErr = sy.client.GetIssue(tok, issueRef)
		return getErr
	})
	if err != nil {
		return nil, err
	}

	projectLocalID := ""
	if issue.ProjectID != "" {
		if project, err := sy.store.GetProjectByExternalID(issue.ProjectID); err == nil && project != nil {
			projectLocalID = project.ID
		}
	}

	var task *store.Task
	err = sy.withAuthRetry(userID, func(tok string) error {
		acc := sy.rec.NewUserAccumulator(sy.client, tok)
		var upsertErr error
		task, _, upsertErr = sy.rec.UpsertTask(issue, projectLocalID, acc)
		return upsertErr
	})
	if err != nil {
		return nil, err
	}

	if err := cache.InvalidateProjects(); err != nil {
		utils.Debugf("cache invalidation failed: %v", err)
	}
	return task, nil
}

// fetchAllIssues walks the tracker's paging until the last page. Any
// page failing is a fetch failure for the whole flow; paging is not an
// item-level concern.
func (sy *Syncer) fetchAllIssues(userID string, filter remote.IssueFilter) ([]remote.Issue, error) {
	var issues []remote.Issue
	filter.StartAt = 0
	if filter.MaxResults == 0 {
		filter.MaxResults = sy.PageSize
	}
	if filter.MaxResults <= 0 {
		filter.MaxResults = remote.DefaultPageSize
	}

	for {
		var page *remote.IssuePage
		err := sy.withAuthRetry(userID, func(tok string) error {
			var pageErr error
			page, pageErr = sy.client.ListIssues(tok, filter)
			return pageErr
		})
		if err != nil {
			return nil, err
		}

		issues = append(issues, page.Issues...)
		if page.IsLast || len(page.Issues) == 0 {
			return issues, nil
		}
		filter.StartAt += len(page.Issues)
	}
}

// reconcileIssues folds fetched issues into the store one at a time. A
// failing item is counted and skipped; the rest of the batch proceeds.
func (sy *Syncer) reconcileIssues(userID string, issues []remote.Issue) (created, updated, failed int) {
	tok, err := sy.tokens.EnsureValidToken(userID)
	if err != nil {
		// Token already validated during fetch; treat every item as failed
		utils.Errorf("token became unavailable during reconcile: %v", err)
		return 0, 0, len(issues)
	}
	acc := sy.rec.NewUserAccumulator(sy.client, tok)

	projectIDs := make(map[string]string) // remote project id -> local id
	for i := range issues {
		issue := &issues[i]

		projectLocalID, ok := projectIDs[issue.ProjectID]
		if !ok && issue.ProjectID != "" {
			if project, err := sy.store.GetProjectByExternalID(issue.ProjectID); err == nil && project != nil {
				projectLocalID = project.ID
			}
			projectIDs[issue.ProjectID] = projectLocalID
		}

		_, wasCreated, err := sy.rec.UpsertTask(issue, projectLocalID, acc)
		if err != nil {
			utils.Warnf("failed to reconcile issue %s: %v", issue.Key, err)
			failed++
			continue
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	return created, updated, failed
}

// resolveProject accepts a project key or remote id and returns the
// local row. The project must have been synced before its tasks can be.
func (sy *Syncer) resolveProject(ref string) (*store.Project, error) {
	project, err := sy.store.GetProjectByKey(ref)
	if err != nil {
		return nil, err
	}
	if project == nil {
		project, err = sy.store.GetProjectByExternalID(ref)
		if err != nil {
			return nil, err
		}
	}
	if project == nil {
		return nil, utils.ErrProjectNotFound(ref)
	}
	return project, nil
}

// refreshProjectSnapshot rebuilds the cached status snapshot from the
// store after a flow changed project or task rows.
func (sy *Syncer) refreshProjectSnapshot() {
	projects, err := sy.store.ListActiveProjects()
	if err != nil {
		utils.Debugf("snapshot refresh failed: %v", err)
		return
	}

	summaries := make([]cache.ProjectSummary, 0, len(projects))
	now := time.Now()
	for i := range projects {
		count, err := sy.store.CountTasksByProject(projects[i].ID)
		if err != nil {
			count = 0
		}
		summaries = append(summaries, cache.ProjectSummary{
			ExternalID: projects[i].ExternalID,
			Key:        projects[i].Key,
			Name:       projects[i].Name,
			TaskCount:  count,
			SyncedAt:   now,
		})
	}

	if err := cache.SaveProjectSummaries(summaries); err != nil {
		utils.Debugf("snapshot save failed: %v", err)
	}
}

// StatusMapping pairs one remote workflow status with the local status
// it reconciles to.
type StatusMapping struct {
	Remote remote.Status
	Local  string
}

// ProjectStatuses fetches a project's workflow vocabulary from the
// tracker and reports where each status lands locally. Useful when a
// custom workflow makes tasks pile up in the baseline status.
func (sy *Syncer) ProjectStatuses(userID, projectRef string) ([]StatusMapping, error) {
	project, err := sy.resolveProject(projectRef)
	if err != nil {
		return nil, err
	}

	var statuses []remote.Status
	err = sy.withAuthRetry(userID, func(tok string) error {
		var getErr error
		statuses, getErr = sy.client.GetStatuses(tok, project.ExternalID)
		return getErr
	})
	if err != nil {
		return nil, err
	}

	mappings := make([]StatusMapping, 0, len(statuses))
	for _, st := range statuses {
		mappings = append(mappings, StatusMapping{
			Remote: st,
			Local:  reconcile.MapStatus(st.Name),
		})
	}
	return mappings, nil
}

// ConnectionStatus describes the user's link to the tracker
type ConnectionStatus struct {
	Connected       bool
	ReauthRequired  bool
	Provider        string
	ExpiresAt       time.Time
	LastUsedAt      *time.Time
	LastProjectSync *time.Time
	LastTaskSync    *time.Time
}

// GetConnectionStatus reports whether the user is connected and when
// projects were last synced. It never calls the tracker.
func (sy *Syncer) GetConnectionStatus(userID, provider string) (*ConnectionStatus, error) {
	status := &ConnectionStatus{Provider: provider}

	cred, err := sy.tokens.Credential(userID)
	if errors.Is(err, token.ErrNoCredential) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}

	status.Connected = true
	status.ExpiresAt = cred.ExpiresAt
	status.LastUsedAt = cred.LastUsedAt

	lastProjects, err := sy.ledger.LastSyncedAt(store.FlowAllProjects)
	if err != nil {
		return nil, err
	}
	status.LastProjectSync = lastProjects

	lastTasks, err := sy.ledger.LastSyncedAt(store.FlowProjectTasks)
	if err != nil {
		return nil, err
	}
	status.LastTaskSync = lastTasks
	return status, nil
}

// GetRunStatus returns one ledger entry with its display status
func (sy *Syncer) GetRunStatus(runID string) (*store.SyncRun, string, error) {
	run, err := sy.ledger.Get(runID)
	if err != nil {
		return nil, "", err
	}
	if run == nil {
		return nil, "", utils.ErrRunNotFound(runID)
	}
	return run, sy.ledger.EffectiveStatus(run), nil
}

// ListRecentRuns returns recent ledger entries, newest first
func (sy *Syncer) ListRecentRuns(filter store.RunFilter) ([]store.SyncRun, error) {
	return sy.ledger.Recent(filter)
}

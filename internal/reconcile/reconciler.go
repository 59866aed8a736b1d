package reconcile

import (
	"fmt"

	"github.com/google/uuid"

	"tracksync/internal/remote"
	"tracksync/internal/store"
	"tracksync/internal/utils"
)

// DefaultImportRole is assigned to users created by the import flow when
// no role was requested.
const DefaultImportRole = "member"

// Reconciler folds remote records into local rows. Matching is always by
// the remote identifier: a record seen before updates its row in place,
// an unseen one creates a row with a fresh local id. Local ids are never
// reassigned.
type Reconciler struct {
	store *store.Store
}

// NewReconciler creates a reconciler over the given store
func NewReconciler(s *store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// UpsertProject reconciles one remote project. Returns the local row and
// whether it was created.
func (r *Reconciler) UpsertProject(rp *remote.Project) (*store.Project, bool, error) {
	existing, err := r.store.GetProjectByExternalID(rp.ID)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		p := &store.Project{
			ID:            uuid.NewString(),
			ExternalID:    rp.ID,
			Key:           rp.Key,
			Name:          rp.Name,
			Description:   rp.Description,
			LeadAccountID: rp.LeadID,
			Archived:      rp.Archived,
			URL:           rp.URL,
		}
		if err := r.store.InsertProject(p); err != nil {
			return nil, false, err
		}
		return p, true, nil
	}

	existing.Key = rp.Key
	existing.Name = rp.Name
	existing.Description = rp.Description
	existing.LeadAccountID = rp.LeadID
	existing.Archived = rp.Archived
	existing.URL = rp.URL
	if err := r.store.UpdateProject(existing); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// UpsertUser reconciles one remote user. Role and admin flags are local
// attributes: a role is assigned from defaultRole on creation or when the
// existing row has none, and an already-assigned role is never changed.
func (r *Reconciler) UpsertUser(ru *remote.User, defaultRole string) (*store.User, bool, error) {
	existing, err := r.store.GetUserByExternalID(ru.AccountID)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		role := defaultRole
		if role == "" {
			role = DefaultImportRole
		}
		u := &store.User{
			ID:          uuid.NewString(),
			ExternalID:  ru.AccountID,
			DisplayName: ru.DisplayName,
			Email:       ru.Email,
			Role:        role,
			Active:      ru.Active,
			TimeZone:    ru.TimeZone,
		}
		if err := r.store.InsertUser(u); err != nil {
			return nil, false, err
		}
		return u, true, nil
	}

	existing.DisplayName = ru.DisplayName
	existing.Email = ru.Email
	existing.Active = ru.Active
	existing.TimeZone = ru.TimeZone
	if existing.Role == "" {
		existing.Role = defaultRole
		if existing.Role == "" {
			existing.Role = DefaultImportRole
		}
	}
	if err := r.store.UpdateUser(existing); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// UpsertTask reconciles one remote issue into a task row. Assignee and
// reporter references are resolved to local user ids through the
// accumulator, which creates missing users on the fly.
func (r *Reconciler) UpsertTask(issue *remote.Issue, projectLocalID string, users *UserAccumulator) (*store.Task, bool, error) {
	assigneeID, err := users.LocalID(issue.Assignee)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve assignee for issue %s: %w", issue.Key, err)
	}
	reporterID, err := users.LocalID(issue.Reporter)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve reporter for issue %s: %w", issue.Key, err)
	}

	existing, err := r.store.GetTaskByExternalID(issue.ID)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		t := &store.Task{
			ID:              uuid.NewString(),
			ExternalID:      issue.ID,
			ExternalKey:     issue.Key,
			ProjectID:       projectLocalID,
			Title:           issue.Summary,
			Description:     issue.Description,
			Status:          MapStatus(issue.StatusName),
			Priority:        issue.Priority,
			Labels:          issue.Labels,
			AssigneeID:      assigneeID,
			ReporterID:      reporterID,
			DueDate:         issue.DueDate,
			RemoteUpdatedAt: issue.UpdatedAt,
		}
		if err := r.store.InsertTask(t); err != nil {
			return nil, false, err
		}
		return t, true, nil
	}

	existing.ExternalKey = issue.Key
	if projectLocalID != "" {
		existing.ProjectID = projectLocalID
	}
	existing.Title = issue.Summary
	existing.Description = issue.Description
	existing.Status = MapStatus(issue.StatusName)
	existing.Priority = issue.Priority
	existing.Labels = issue.Labels
	existing.AssigneeID = assigneeID
	existing.ReporterID = reporterID
	existing.DueDate = issue.DueDate
	existing.RemoteUpdatedAt = issue.UpdatedAt
	if err := r.store.UpdateTask(existing); err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ReplaceMembership reconciles the remote membership snapshot of one
// project: every member is upserted, then the edge set is replaced
// verbatim so revoked members drop out.
func (r *Reconciler) ReplaceMembership(projectLocalID string, members []remote.User) (created int, err error) {
	userIDs := make([]string, 0, len(members))
	for i := range members {
		user, wasCreated, err := r.UpsertUser(&members[i], "")
		if err != nil {
			return created, fmt.Errorf("failed to upsert member %s: %w", members[i].AccountID, err)
		}
		if wasCreated {
			created++
		}
		userIDs = append(userIDs, user.ID)
	}

	if err := r.store.ReplaceProjectMembers(projectLocalID, userIDs); err != nil {
		return created, err
	}
	return created, nil
}

// UserAccumulator resolves remote user references to local user ids
// during a task sync, fetching each unseen account's detail record at
// most once regardless of how many issues reference it.
type UserAccumulator struct {
	rec    *Reconciler
	client remote.Client
	token  string
	seen   map[string]string // remote account id -> local user id
}

// NewUserAccumulator creates an accumulator bound to one sync pass
func (r *Reconciler) NewUserAccumulator(client remote.Client, token string) *UserAccumulator {
	return &UserAccumulator{
		rec:    r,
		client: client,
		token:  token,
		seen:   make(map[string]string),
	}
}

// LocalID returns the local user id for a remote reference, creating the
// user if it has never been synced. A nil reference resolves to "".
func (a *UserAccumulator) LocalID(ref *remote.User) (string, error) {
	if ref == nil || ref.AccountID == "" {
		return "", nil
	}
	if id, ok := a.seen[ref.AccountID]; ok {
		return id, nil
	}

	existing, err := a.rec.store.GetUserByExternalID(ref.AccountID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		a.seen[ref.AccountID] = existing.ID
		return existing.ID, nil
	}

	// Unseen account: fetch the full record once, fall back to the
	// fields embedded in the issue when the detail call fails.
	record := ref
	if detail, err := a.client.GetUser(a.token, ref.AccountID); err == nil {
		record = detail
	} else {
		utils.Debugf("detail fetch for user %s failed, using embedded fields: %v", ref.AccountID, err)
	}

	user, _, err := a.rec.UpsertUser(record, "")
	if err != nil {
		return "", err
	}
	a.seen[ref.AccountID] = user.ID
	return user.ID, nil
}

// Resolved reports how many distinct accounts the accumulator has resolved
func (a *UserAccumulator) Resolved() int {
	return len(a.seen)
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Project is a locally persisted project. ExternalID is the tracker's
// identifier and never changes; ID is ours and survives every sync.
type Project struct {
	ID            string
	ExternalID    string
	Key           string
	Name          string
	Description   string
	LeadAccountID string
	Archived      bool
	URL           string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// User is a locally persisted tracker account
type User struct {
	ID          string
	ExternalID  string
	DisplayName string
	Email       string
	Role        string
	Active      bool
	Admin       bool
	TimeZone    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task is a locally persisted issue
type Task struct {
	ID              string
	ExternalID      string
	ExternalKey     string
	ProjectID       string
	Title           string
	Description     string
	Status          string
	Priority        string
	Labels          []string
	AssigneeID      string
	ReporterID      string
	DueDate         *time.Time
	RemoteUpdatedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Projects

// GetProjectByExternalID looks a project up by its reconciliation key
func (s *Store) GetProjectByExternalID(externalID string) (*Project, error) {
	row := s.QueryRow(`
		SELECT id, external_id, project_key, name, description, lead_account_id,
		       archived, url, created_at, updated_at
		FROM projects WHERE external_id = ?
	`, externalID)
	return scanProject(row)
}

// GetProjectByKey looks a project up by its human-facing key (e.g. "CORE")
func (s *Store) GetProjectByKey(key string) (*Project, error) {
	row := s.QueryRow(`
		SELECT id, external_id, project_key, name, description, lead_account_id,
		       archived, url, created_at, updated_at
		FROM projects WHERE project_key = ?
	`, key)
	return scanProject(row)
}

// InsertProject persists a new project row
func (s *Store) InsertProject(p *Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.Exec(`
		INSERT INTO projects (id, external_id, project_key, name, description,
		    lead_account_id, archived, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.ExternalID, NullString(p.Key), p.Name, NullString(p.Description),
		NullString(p.LeadAccountID), boolToInt(p.Archived), NullString(p.URL),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project %s: %w", p.ExternalID, err)
	}
	return nil
}

// UpdateProject applies field updates to an existing project row,
// keyed by its local id.
func (s *Store) UpdateProject(p *Project) error {
	p.UpdatedAt = time.Now()

	_, err := s.Exec(`
		UPDATE projects
		SET project_key = ?, name = ?, description = ?, lead_account_id = ?,
		    archived = ?, url = ?, updated_at = ?
		WHERE id = ?
	`,
		NullString(p.Key), p.Name, NullString(p.Description), NullString(p.LeadAccountID),
		boolToInt(p.Archived), NullString(p.URL), p.UpdatedAt.Unix(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project %s: %w", p.ExternalID, err)
	}
	return nil
}

// ListActiveProjects returns all non-archived projects
func (s *Store) ListActiveProjects() ([]Project, error) {
	rows, err := s.Query(`
		SELECT id, external_id, project_key, name, description, lead_account_id,
		       archived, url, created_at, updated_at
		FROM projects WHERE archived = 0 ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// ReplaceProjectMembers assigns the remote membership snapshot as the new
// edge set verbatim, in one transaction, so revoked memberships disappear.
func (s *Store) ReplaceProjectMembers(projectID string, userIDs []string) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM project_members WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear membership for project %s: %w", projectID, err)
	}

	for _, userID := range userIDs {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)
		`, projectID, userID); err != nil {
			return fmt.Errorf("failed to add member %s to project %s: %w", userID, projectID, err)
		}
	}

	return tx.Commit()
}

// GetProjectMemberIDs returns the local user ids in a project's edge set
func (s *Store) GetProjectMemberIDs(projectID string) ([]string, error) {
	rows, err := s.Query(`SELECT user_id FROM project_members WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Users

// GetUserByExternalID looks a user up by its reconciliation key
func (s *Store) GetUserByExternalID(externalID string) (*User, error) {
	row := s.QueryRow(`
		SELECT id, external_id, display_name, email, role, active, admin,
		       time_zone, created_at, updated_at
		FROM users WHERE external_id = ?
	`, externalID)
	return scanUser(row)
}

// InsertUser persists a new user row
func (s *Store) InsertUser(u *User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.Exec(`
		INSERT INTO users (id, external_id, display_name, email, role, active,
		    admin, time_zone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID, u.ExternalID, u.DisplayName, NullString(u.Email), NullString(u.Role),
		boolToInt(u.Active), boolToInt(u.Admin), NullString(u.TimeZone),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", u.ExternalID, err)
	}
	return nil
}

// UpdateUser applies field updates to an existing user row
func (s *Store) UpdateUser(u *User) error {
	u.UpdatedAt = time.Now()

	_, err := s.Exec(`
		UPDATE users
		SET display_name = ?, email = ?, role = ?, active = ?, admin = ?,
		    time_zone = ?, updated_at = ?
		WHERE id = ?
	`,
		u.DisplayName, NullString(u.Email), NullString(u.Role), boolToInt(u.Active),
		boolToInt(u.Admin), NullString(u.TimeZone), u.UpdatedAt.Unix(), u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", u.ExternalID, err)
	}
	return nil
}

// FirstActiveAdmin returns the oldest active admin user, the acting
// principal for scheduled jobs.
func (s *Store) FirstActiveAdmin() (*User, error) {
	row := s.QueryRow(`
		SELECT id, external_id, display_name, email, role, active, admin,
		       time_zone, created_at, updated_at
		FROM users WHERE active = 1 AND admin = 1
		ORDER BY created_at ASC LIMIT 1
	`)
	return scanUser(row)
}

// Tasks

// GetTaskByExternalID looks a task up by its reconciliation key
func (s *Store) GetTaskByExternalID(externalID string) (*Task, error) {
	row := s.QueryRow(`
		SELECT id, external_id, external_key, project_id, title, description,
		       status, priority, labels, assignee_id, reporter_id, due_date,
		       remote_updated_at, created_at, updated_at
		FROM tasks WHERE external_id = ?
	`, externalID)
	return scanTask(row)
}

// InsertTask persists a new task row
func (s *Store) InsertTask(t *Task) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.Exec(`
		INSERT INTO tasks (id, external_id, external_key, project_id, title,
		    description, status, priority, labels, assignee_id, reporter_id,
		    due_date, remote_updated_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.ExternalID, NullString(t.ExternalKey), NullString(t.ProjectID),
		t.Title, NullString(t.Description), t.Status, NullString(t.Priority),
		labelsToDB(t.Labels), NullString(t.AssigneeID),
		NullString(t.ReporterID), TimeToNullInt64(t.DueDate),
		TimeToNullInt64(t.RemoteUpdatedAt), now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", t.ExternalID, err)
	}
	return nil
}

// UpdateTask applies field updates to an existing task row
func (s *Store) UpdateTask(t *Task) error {
	t.UpdatedAt = time.Now()

	_, err := s.Exec(`
		UPDATE tasks
		SET external_key = ?, project_id = ?, title = ?, description = ?,
		    status = ?, priority = ?, labels = ?, assignee_id = ?, reporter_id = ?,
		    due_date = ?, remote_updated_at = ?, updated_at = ?
		WHERE id = ?
	`,
		NullString(t.ExternalKey), NullString(t.ProjectID), t.Title,
		NullString(t.Description), t.Status, NullString(t.Priority),
		labelsToDB(t.Labels), NullString(t.AssigneeID),
		NullString(t.ReporterID), TimeToNullInt64(t.DueDate),
		TimeToNullInt64(t.RemoteUpdatedAt), t.UpdatedAt.Unix(), t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", t.ExternalID, err)
	}
	return nil
}

// CountTasksByProject returns how many tasks reference a local project
func (s *Store) CountTasksByProject(projectID string) (int, error) {
	var count int
	err := s.QueryRow(`SELECT COUNT(*) FROM tasks WHERE project_id = ?`, projectID).Scan(&count)
	return count, err
}

// Scan helpers

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var key, description, lead, url sql.NullString
	var archived int
	var createdAt, updatedAt int64

	err := row.Scan(&p.ID, &p.ExternalID, &key, &p.Name, &description, &lead,
		&archived, &url, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	p.Key = key.String
	p.Description = description.String
	p.LeadAccountID = lead.String
	p.Archived = archived == 1
	p.URL = url.String
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var email, role, timeZone sql.NullString
	var active, admin int
	var createdAt, updatedAt int64

	err := row.Scan(&u.ID, &u.ExternalID, &u.DisplayName, &email, &role,
		&active, &admin, &timeZone, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Email = email.String
	u.Role = role.String
	u.Active = active == 1
	u.Admin = admin == 1
	u.TimeZone = timeZone.String
	u.CreatedAt = time.Unix(createdAt, 0)
	u.UpdatedAt = time.Unix(updatedAt, 0)
	return &u, nil
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var externalKey, projectID, description, priority, labels, assigneeID, reporterID sql.NullString
	var dueDate, remoteUpdatedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&t.ID, &t.ExternalID, &externalKey, &projectID, &t.Title,
		&description, &t.Status, &priority, &labels, &assigneeID, &reporterID,
		&dueDate, &remoteUpdatedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	t.ExternalKey = externalKey.String
	t.ProjectID = projectID.String
	t.Description = description.String
	t.Priority = priority.String
	t.Labels = labelsFromDB(labels)
	t.AssigneeID = assigneeID.String
	t.ReporterID = reporterID.String
	t.DueDate = NullInt64ToTimePtr(dueDate)
	t.RemoteUpdatedAt = NullInt64ToTimePtr(remoteUpdatedAt)
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)
	return &t, nil
}

// labelsToDB stores labels as a JSON array; a plain separator would
// break labels that contain one.
func labelsToDB(labels []string) sql.NullString {
	if len(labels) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(labels)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func labelsFromDB(n sql.NullString) []string {
	if !n.Valid || n.String == "" {
		return nil
	}
	var labels []string
	if err := json.Unmarshal([]byte(n.String), &labels); err != nil {
		// A non-JSON value is treated as a single label
		return []string{n.String}
	}
	return labels
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

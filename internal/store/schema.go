package store

// Schema version for migration management
const SchemaVersion = 1

// SQL statements for database schema creation

// CredentialsTableSQL creates the remote credential table. One row per
// (user, provider) pair; the token manager is the only writer.
const CredentialsTableSQL = `
CREATE TABLE IF NOT EXISTS remote_credentials (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    access_token TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    expires_at INTEGER NOT NULL,
    workspace_key TEXT,
    last_used_at INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    UNIQUE(user_id, provider)
);
`

// SyncRunsTableSQL creates the append-only sync run ledger
const SyncRunsTableSQL = `
CREATE TABLE IF NOT EXISTS sync_runs (
    id TEXT PRIMARY KEY,
    user_id TEXT,
    flow_type TEXT NOT NULL CHECK(flow_type IN ('all_projects', 'project_tasks', 'user_tasks', 'user_import', 'single_issue')),
    target_id TEXT,
    target_name TEXT,
    status TEXT NOT NULL DEFAULT 'started' CHECK(status IN ('started', 'completed', 'failed')),
    created_count INTEGER NOT NULL DEFAULT 0,
    updated_count INTEGER NOT NULL DEFAULT 0,
    failed_count INTEGER NOT NULL DEFAULT 0,
    total_count INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    started_at INTEGER NOT NULL,
    completed_at INTEGER,
    duration_ms INTEGER
);
`

// ProjectsTableSQL creates the locally persisted projects table.
// external_id is the reconciliation key; id is a local uuid that never
// changes across syncs.
const ProjectsTableSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE,
    project_key TEXT,
    name TEXT NOT NULL,
    description TEXT,
    lead_account_id TEXT,
    archived INTEGER NOT NULL DEFAULT 0,
    url TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// UsersTableSQL creates the locally persisted users table
const UsersTableSQL = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    email TEXT,
    role TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    admin INTEGER NOT NULL DEFAULT 0,
    time_zone TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// TasksTableSQL creates the locally persisted tasks table
const TasksTableSQL = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE CHECK(external_id <> ''),
    external_key TEXT,
    project_id TEXT,
    title TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'todo',
    priority TEXT,
    labels TEXT,
    assignee_id TEXT,
    reporter_id TEXT,
    due_date INTEGER,
    remote_updated_at INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE SET NULL,
    FOREIGN KEY(assignee_id) REFERENCES users(id) ON DELETE SET NULL,
    FOREIGN KEY(reporter_id) REFERENCES users(id) ON DELETE SET NULL
);
`

// ProjectMembersTableSQL creates the project membership edge table.
// The edge set is replaced wholesale from the remote snapshot each sync.
const ProjectMembersTableSQL = `
CREATE TABLE IF NOT EXISTS project_members (
    project_id TEXT NOT NULL,
    user_id TEXT NOT NULL,

    PRIMARY KEY(project_id, user_id),
    FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE,
    FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

// SchemaVersionTableSQL creates the schema version table for migration tracking
const SchemaVersionTableSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// Index creation statements for common queries

// SyncRunsIndexesSQL creates indexes on the sync run ledger
const SyncRunsIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_sync_runs_flow_type ON sync_runs(flow_type);
CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs(status);
CREATE INDEX IF NOT EXISTS idx_sync_runs_user_id ON sync_runs(user_id);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at);
`

// EntityIndexesSQL creates indexes on the synced entity tables
const EntityIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee_id ON tasks(assignee_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);
CREATE INDEX IF NOT EXISTS idx_project_members_user_id ON project_members(user_id);
`

// AllTableSchemas returns all table creation statements in order
func AllTableSchemas() []string {
	return []string{
		SchemaVersionTableSQL,
		CredentialsTableSQL,
		SyncRunsTableSQL,
		ProjectsTableSQL,
		UsersTableSQL,
		TasksTableSQL,
		ProjectMembersTableSQL,
	}
}

// AllIndexes returns all index creation statements
func AllIndexes() []string {
	return []string{
		SyncRunsIndexesSQL,
		EntityIndexesSQL,
	}
}

// PragmaStatements returns pragma statements to execute on database connection
func PragmaStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
}

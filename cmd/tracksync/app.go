package main

import (
	"fmt"
	"time"

	"tracksync/internal/config"
	"tracksync/internal/credentials"
	"tracksync/internal/ledger"
	"tracksync/internal/remote"
	"tracksync/internal/scheduler"
	"tracksync/internal/store"
	"tracksync/internal/syncer"
	"tracksync/internal/token"
	"tracksync/internal/utils"
)

// App wires the store, the tracker client, and the sync machinery for
// one CLI invocation.
type App struct {
	config *config.Config
	store  *store.Store
	client *remote.HTTPClient
	tokens *token.Manager
	ledger *ledger.Ledger
	syncer *syncer.Syncer
}

// NewApp builds the full wiring from configuration
func NewApp() (*App, error) {
	cfg := config.GetConfig()

	dbPath, err := utils.ExpandPath(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand database path: %w", err)
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	client := remote.NewHTTPClient(cfg.Provider.BaseURL, cfg.Provider.AuthURL)

	appCreds, err := credentials.NewResolver().Resolve(
		cfg.Provider.Name, cfg.Provider.ClientID, cfg.Provider.ClientSecret)
	if err != nil {
		// Status and runs commands work without app credentials; token
		// refresh will fail with a pointed message if it is attempted.
		utils.Debugf("app credentials unresolved: %v", err)
		appCreds = &credentials.AppCredentials{}
	}

	tokens := token.NewManager(s, client, cfg.Provider.Name,
		appCreds.ClientID, appCreds.ClientSecret, cfg.TokenSafetyMargin())
	l := ledger.NewLedger(s, cfg.InterruptedAfter())

	sy := syncer.NewSyncer(s, client, tokens, l)
	sy.PageSize = cfg.Sync.PageSize

	return &App{
		config: cfg,
		store:  s,
		client: client,
		tokens: tokens,
		ledger: l,
		syncer: sy,
	}, nil
}

// Close releases the store
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// actingUser resolves the local user a command acts as. An explicit
// --as flag wins; otherwise the oldest active admin is used.
func (a *App) actingUser(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	admin, err := a.store.FirstActiveAdmin()
	if err != nil {
		return "", err
	}
	if admin == nil {
		return "", utils.ErrNoActingAdmin()
	}
	return admin.ID, nil
}

// newScheduler builds the daemon's job set from configured intervals
func (a *App) newScheduler() (*scheduler.Scheduler, error) {
	cfg := a.config
	sc := scheduler.NewScheduler(a.store)

	jobs := []struct {
		name         string
		interval     int // minutes
		requiresUser bool
		fn           scheduler.JobFunc
	}{
		{"user-import", cfg.Sync.Jobs.UserImportIntervalHours * 60, true, func(userID string) error {
			_, err := a.syncer.ImportUsers(userID, syncer.ImportOptions{DefaultRole: cfg.Sync.DefaultRole})
			return err
		}},
		{"project-sync", cfg.Sync.Jobs.ProjectSyncIntervalHours * 60, true, func(userID string) error {
			_, err := a.syncer.SyncAllProjects(userID)
			return err
		}},
		{"task-sync", cfg.Sync.Jobs.TaskSyncIntervalHours * 60, true, func(userID string) error {
			return a.syncActiveProjectTasks(userID)
		}},
		{"token-sweep", cfg.Sync.Jobs.TokenSweepIntervalMinutes, false, func(string) error {
			refreshed, failed, err := a.tokens.RefreshExpiring()
			if err != nil {
				return err
			}
			if refreshed > 0 || failed > 0 {
				utils.Infof("token sweep: %d refreshed, %d failed", refreshed, failed)
			}
			return nil
		}},
	}

	for _, j := range jobs {
		interval := minutes(j.interval)
		if err := sc.AddJob(j.name, interval, j.requiresUser, j.fn); err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// syncActiveProjectTasks runs the task flow for every non-archived
// project. One project failing does not stop the others.
func (a *App) syncActiveProjectTasks(userID string) error {
	projects, err := a.store.ListActiveProjects()
	if err != nil {
		return err
	}

	var firstErr error
	for i := range projects {
		if _, err := a.syncer.SyncProjectTasks(userID, projects[i].ExternalID); err != nil {
			utils.Warnf("task sync for project %s failed: %v", projects[i].Key, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

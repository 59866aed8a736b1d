package utils

import (
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a helpful suggestion for the user
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// Common error constructors with suggestions

// ErrNotConnected creates an error when no tracker credential exists for a user
func ErrNotConnected(userID string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no tracker connection found for user %q", userID),
		Suggestion: "Connect the tracker first with 'tracksync credentials set --user " + userID + "'",
	}
}

// ErrReauthRequired creates an error when the refresh token has been rejected
func ErrReauthRequired(userID string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("tracker refused the stored refresh token for user %q", userID),
		Suggestion: "The connection has expired. Re-authorize with 'tracksync credentials set --user " + userID + "'",
	}
}

// ErrProjectNotFound creates an error when a project is not known locally
func ErrProjectNotFound(key string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("project %q not found in local store", key),
		Suggestion: "Run 'tracksync sync projects' first to pull the project list",
	}
}

// ErrTrackerOffline creates an error when the remote tracker is unreachable
func ErrTrackerOffline(reason string) error {
	suggestion := "Check your internet connection and try again"
	if strings.Contains(reason, "DNS") {
		suggestion = "Check your DNS settings and internet connection"
	} else if strings.Contains(reason, "refused") {
		suggestion = "Check if the tracker host is correct and reachable"
	} else if strings.Contains(reason, "timeout") {
		suggestion = "The tracker may be slow or unreachable. Try again later"
	}

	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("remote tracker is unreachable: %s", reason),
		Suggestion: suggestion,
	}
}

// ErrSyncAlreadyRunning creates an error when a duplicate flow is rejected
func ErrSyncAlreadyRunning(flow, target string) error {
	msg := fmt.Sprintf("a %s sync is already running", flow)
	if target != "" {
		msg = fmt.Sprintf("a %s sync for %q is already running", flow, target)
	}
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%s", msg),
		Suggestion: "Wait for the running sync to finish, or check 'tracksync runs' for its status",
	}
}

// ErrRunNotFound creates an error when a sync run id is unknown
func ErrRunNotFound(runID string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("sync run %q not found", runID),
		Suggestion: "List recent runs with 'tracksync runs' to find a valid run id",
	}
}

// ErrNoActingAdmin creates an error when no active admin exists for scheduled jobs
func ErrNoActingAdmin() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no active admin user available to run scheduled syncs"),
		Suggestion: "Import users with 'tracksync import users' or mark one local user as admin",
	}
}

// ErrSecretNotFound creates an error when the OAuth client secret cannot be resolved
func ErrSecretNotFound(provider string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("OAuth client secret for provider %q not found", provider),
		Suggestion: fmt.Sprintf("Set TRACKSYNC_%s_CLIENT_SECRET or store the secret with 'tracksync credentials secret %s'", strings.ToUpper(provider), provider),
	}
}

// ErrConfigFileNotFound creates an error when config file is not found
func ErrConfigFileNotFound(path string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("config file not found at %s", path),
		Suggestion: "Run tracksync once to create a default configuration file",
	}
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(field string, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid configuration for '%s': %s", field, reason),
		Suggestion: fmt.Sprintf("Check ~/.config/tracksync/config.yaml and fix the '%s' field", field),
	}
}

// WrapWithSuggestion wraps an existing error with a suggestion
func WrapWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

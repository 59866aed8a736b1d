package remote

// Client is the typed surface of the remote tracker consumed by the sync
// engine. Every call takes the bearer access token to use; token
// lifecycle is the token manager's concern, not the client's.
//
// Implementations classify failures into *remote.Error so callers can
// decide between flow failure, per-item skip, and refresh-and-retry.
type Client interface {
	// ListProjects returns all projects visible to the token, fetching
	// every page.
	ListProjects(token string) ([]Project, error)

	// ListProjectMembers returns the full membership snapshot of one project.
	ListProjectMembers(token, projectID string) ([]User, error)

	// ListIssues returns a single page of issues matching the filter.
	ListIssues(token string, filter IssueFilter) (*IssuePage, error)

	// GetIssue returns one issue by its tracker id or key.
	GetIssue(token, issueID string) (*Issue, error)

	// GetUser returns the detailed account record, including email.
	GetUser(token, accountID string) (*User, error)

	// GetStatuses returns the status vocabulary of one project.
	GetStatuses(token, projectID string) ([]Status, error)
}

// Authenticator performs the OAuth refresh exchange against the provider.
// Kept separate from Client because it authenticates with client
// credentials rather than a bearer token.
type Authenticator interface {
	// RefreshToken exchanges a refresh token for a new token pair.
	RefreshToken(clientID, clientSecret, refreshToken string) (*TokenPair, error)
}

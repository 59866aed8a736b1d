package remote

// This file contains the shared mock tracker client used across package
// tests (token, syncer, scheduler). It lives outside _test.go files so
// other packages can import it.

// MockClient implements Client and Authenticator against in-memory fixtures
type MockClient struct {
	Projects []Project
	Members  map[string][]User  // projectID -> membership snapshot
	Issues   map[string][]Issue // projectID -> issues
	Users    map[string]User    // accountID -> detailed record
	Statuses map[string][]Status

	// Error injection
	ListProjectsErr error
	MemberErrs      map[string]error // projectID -> error
	IssueListErrs   map[string]error // projectID -> error
	GetIssueErrs    map[string]error // issueID -> error
	GetUserErrs     map[string]error // accountID -> error

	// Refresh exchange fixtures
	RefreshPair *TokenPair
	RefreshErr  error

	// Call accounting
	ListProjectsCalls int
	GetUserCalls      map[string]int // accountID -> number of detail fetches
	RefreshCalls      int
	TokensSeen        []string // bearer token of every call, in order
}

// NewMockClient creates an empty mock tracker
func NewMockClient() *MockClient {
	return &MockClient{
		Members:       make(map[string][]User),
		Issues:        make(map[string][]Issue),
		Users:         make(map[string]User),
		Statuses:      make(map[string][]Status),
		MemberErrs:    make(map[string]error),
		IssueListErrs: make(map[string]error),
		GetIssueErrs:  make(map[string]error),
		GetUserErrs:   make(map[string]error),
		GetUserCalls:  make(map[string]int),
	}
}

func (m *MockClient) ListProjects(token string) ([]Project, error) {
	m.TokensSeen = append(m.TokensSeen, token)
	m.ListProjectsCalls++
	if m.ListProjectsErr != nil {
		return nil, m.ListProjectsErr
	}
	return m.Projects, nil
}

func (m *MockClient) ListProjectMembers(token, projectID string) ([]User, error) {
	m.TokensSeen = append(m.TokensSeen, token)
	if err := m.MemberErrs[projectID]; err != nil {
		return nil, err
	}
	return m.Members[projectID], nil
}

func (m *MockClient) ListIssues(token string, filter IssueFilter) (*IssuePage, error) {
	m.TokensSeen = append(m.TokensSeen, token)
	if filter.ProjectID != "" {
		if err := m.IssueListErrs[filter.ProjectID]; err != nil {
			return nil, err
		}
	}

	var matched []Issue
	for _, issues := range m.Issues {
		for _, issue := range issues {
			if filter.ProjectID != "" && issue.ProjectID != filter.ProjectID {
				continue
			}
			if filter.AssigneeID != "" && (issue.Assignee == nil || issue.Assignee.AccountID != filter.AssigneeID) {
				continue
			}
			matched = append(matched, issue)
		}
	}

	return &IssuePage{
		Issues:  matched,
		StartAt: filter.StartAt,
		Total:   len(matched),
		IsLast:  true,
	}, nil
}

func (m *MockClient) GetIssue(token, issueID string) (*Issue, error) {
	m.TokensSeen = append(m.TokensSeen, token)
	if err := m.GetIssueErrs[issueID]; err != nil {
		return nil, err
	}
	for _, issues := range m.Issues {
		for _, issue := range issues {
			if issue.ID == issueID || issue.Key == issueID {
				found := issue
				return &found, nil
			}
		}
	}
	return nil, NewStatusError("GetIssue", 404, "issue not found")
}

func (m *MockClient) GetUser(token, accountID string) (*User, error) {
	m.TokensSeen = append(m.TokensSeen, token)
	m.GetUserCalls[accountID]++
	if err := m.GetUserErrs[accountID]; err != nil {
		return nil, err
	}
	user, ok := m.Users[accountID]
	if !ok {
		return nil, NewStatusError("GetUser", 404, "user not found")
	}
	return &user, nil
}

func (m *MockClient) GetStatuses(token, projectID string) ([]Status, error) {
	m.TokensSeen = append(m.TokensSeen, token)
	return m.Statuses[projectID], nil
}

func (m *MockClient) RefreshToken(clientID, clientSecret, refreshToken string) (*TokenPair, error) {
	m.RefreshCalls++
	if m.RefreshErr != nil {
		return nil, m.RefreshErr
	}
	if m.RefreshPair != nil {
		pair := *m.RefreshPair
		return &pair, nil
	}
	return nil, NewStatusError("RefreshToken", 400, "no refresh fixture configured")
}

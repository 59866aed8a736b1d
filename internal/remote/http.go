package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultPageSize is the page size requested from list endpoints.
	// The tracker caps pages at 100 regardless of what we ask for.
	DefaultPageSize = 50

	defaultTimeout = 30 * time.Second
)

// HTTPClient talks to the tracker's REST API. It implements both Client
// and Authenticator.
type HTTPClient struct {
	baseURL    string
	authURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a tracker API client. baseURL points at the
// workspace API root, authURL at the OAuth token endpoint host.
func NewHTTPClient(baseURL, authURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		authURL: authURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// doRequest performs an HTTP request with bearer authentication
func (c *HTTPClient) doRequest(op, method, endpoint, token string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewTransportError(op, err)
	}

	return resp, nil
}

// decodeOrClose decodes a 200 response into out, converting any other
// status or an undecodable body into a classified *Error.
func decodeOrClose(op string, resp *http.Response, out interface{}) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return NewStatusError(op, resp.StatusCode, http.StatusText(resp.StatusCode)).WithBody(string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewMalformedError(op, err)
	}

	return nil
}

// projectPage is the wire shape of the paginated project listing
type projectPage struct {
	Values  []Project `json:"values"`
	StartAt int       `json:"start_at"`
	IsLast  bool      `json:"is_last"`
}

// ListProjects retrieves all projects, following pagination to the end
func (c *HTTPClient) ListProjects(token string) ([]Project, error) {
	const op = "ListProjects"

	var projects []Project
	startAt := 0
	for {
		endpoint := fmt.Sprintf("/projects?startAt=%d&maxResults=%d", startAt, DefaultPageSize)
		resp, err := c.doRequest(op, "GET", endpoint, token, nil)
		if err != nil {
			return nil, err
		}

		var page projectPage
		if err := decodeOrClose(op, resp, &page); err != nil {
			return nil, err
		}

		projects = append(projects, page.Values...)
		if page.IsLast || len(page.Values) == 0 {
			return projects, nil
		}
		startAt += len(page.Values)
	}
}

// memberList is the wire shape of the membership endpoint
type memberList struct {
	Values []User `json:"values"`
}

// ListProjectMembers retrieves the full membership snapshot of a project
func (c *HTTPClient) ListProjectMembers(token, projectID string) ([]User, error) {
	const op = "ListProjectMembers"

	resp, err := c.doRequest(op, "GET", "/projects/"+url.PathEscape(projectID)+"/members", token, nil)
	if err != nil {
		return nil, err
	}

	var list memberList
	if err := decodeOrClose(op, resp, &list); err != nil {
		return nil, err
	}

	return list.Values, nil
}

// ListIssues retrieves a single page of issues matching the filter
func (c *HTTPClient) ListIssues(token string, filter IssueFilter) (*IssuePage, error) {
	const op = "ListIssues"

	q := url.Values{}
	if filter.ProjectID != "" {
		q.Set("projectId", filter.ProjectID)
	}
	if filter.AssigneeID != "" {
		q.Set("assigneeId", filter.AssigneeID)
	}
	if filter.StatusName != "" {
		q.Set("status", filter.StatusName)
	}
	if !filter.UpdatedSince.IsZero() {
		q.Set("updatedSince", filter.UpdatedSince.UTC().Format(time.RFC3339))
	}
	q.Set("startAt", strconv.Itoa(filter.StartAt))
	maxResults := filter.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultPageSize
	}
	q.Set("maxResults", strconv.Itoa(maxResults))

	resp, err := c.doRequest(op, "GET", "/issues?"+q.Encode(), token, nil)
	if err != nil {
		return nil, err
	}

	var page IssuePage
	if err := decodeOrClose(op, resp, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// GetIssue retrieves a single issue by id or key
func (c *HTTPClient) GetIssue(token, issueID string) (*Issue, error) {
	const op = "GetIssue"

	resp, err := c.doRequest(op, "GET", "/issues/"+url.PathEscape(issueID), token, nil)
	if err != nil {
		return nil, err
	}

	var issue Issue
	if err := decodeOrClose(op, resp, &issue); err != nil {
		return nil, err
	}

	return &issue, nil
}

// GetUser retrieves a single account record, including email
func (c *HTTPClient) GetUser(token, accountID string) (*User, error) {
	const op = "GetUser"

	resp, err := c.doRequest(op, "GET", "/users/"+url.PathEscape(accountID), token, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeOrClose(op, resp, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// GetStatuses retrieves the status vocabulary of a project
func (c *HTTPClient) GetStatuses(token, projectID string) ([]Status, error) {
	const op = "GetStatuses"

	resp, err := c.doRequest(op, "GET", "/projects/"+url.PathEscape(projectID)+"/statuses", token, nil)
	if err != nil {
		return nil, err
	}

	var statuses []Status
	if err := decodeOrClose(op, resp, &statuses); err != nil {
		return nil, err
	}

	return statuses, nil
}

// refreshRequest is the wire shape of the OAuth refresh exchange
type refreshRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges a refresh token for a new token pair
func (c *HTTPClient) RefreshToken(clientID, clientSecret, refreshToken string) (*TokenPair, error) {
	const op = "RefreshToken"

	payload := refreshRequest{
		GrantType:    "refresh_token",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	req, err := http.NewRequest("POST", c.authURL+"/oauth/token", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewTransportError(op, err)
	}

	var pair TokenPair
	if err := decodeOrClose(op, resp, &pair); err != nil {
		return nil, err
	}

	if pair.AccessToken == "" {
		return nil, NewMalformedError(op, fmt.Errorf("provider returned no access token"))
	}
	pair.ExpiresAt = time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second)

	return &pair, nil
}

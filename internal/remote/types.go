package remote

import (
	"encoding/json"
	"fmt"
	"time"
)

// Project represents a project as returned by the tracker API
type Project struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	LeadID      string `json:"lead_id,omitempty"`
	Archived    bool   `json:"archived"`
	URL         string `json:"url,omitempty"`
}

// User represents a tracker account. Email is only populated by GetUser;
// list endpoints return the short shape without it.
type User struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Active      bool   `json:"active"`
	TimeZone    string `json:"time_zone,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Issue represents a single issue from the tracker API
type Issue struct {
	ID          string     `json:"id"`
	Key         string     `json:"key"`
	ProjectID   string     `json:"project_id"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	StatusName  string     `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
	Assignee    *User      `json:"assignee,omitempty"`
	Reporter    *User      `json:"reporter,omitempty"`
	DueDate     *time.Time `json:"-"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// UnmarshalJSON decodes an issue. The tracker sends due_date in
// date-only form, unlike the RFC 3339 timestamps on the other fields.
func (i *Issue) UnmarshalJSON(data []byte) error {
	type alias Issue
	aux := struct {
		*alias
		DueDate string `json:"due_date"`
	}{alias: (*alias)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.DueDate != "" {
		due, err := time.Parse("2006-01-02", aux.DueDate)
		if err != nil {
			return fmt.Errorf("invalid due_date %q: %w", aux.DueDate, err)
		}
		i.DueDate = &due
	}
	return nil
}

// Status represents one entry of a project's status vocabulary
type Status struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"` // "new", "indeterminate", "done"
}

// IssueFilter narrows an issue page request. Zero values are omitted
// from the query string.
type IssueFilter struct {
	ProjectID    string
	AssigneeID   string
	StatusName   string
	UpdatedSince time.Time
	StartAt      int
	MaxResults   int
}

// IssuePage is one page of a filtered issue listing
type IssuePage struct {
	Issues  []Issue `json:"values"`
	StartAt int     `json:"start_at"`
	Total   int     `json:"total"`
	IsLast  bool    `json:"is_last"`
}

// TokenPair is the result of an OAuth refresh exchange
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"-"`
	ExpiresIn    int       `json:"expires_in"` // seconds, as sent by the provider
}

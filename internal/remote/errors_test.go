package remote

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       ErrorKind
	}{
		{"unauthorized 401", 401, KindUnauthorized},
		{"forbidden 403", 403, KindUnauthorized},
		{"not found 404", 404, KindNotFound},
		{"rate limited 429", 429, KindRateLimited},
		{"server error 500", 500, KindTransient},
		{"bad gateway 502", 502, KindTransient},
		{"bad request 400", 400, KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewStatusError("ListProjects", tt.statusCode, "boom")
			if err.Kind != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.statusCode, err.Kind, tt.want)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	unauthorized := NewStatusError("GetIssue", 401, "expired")
	if !unauthorized.IsUnauthorized() {
		t.Error("expected IsUnauthorized for 401")
	}
	if unauthorized.IsTransient() {
		t.Error("401 should not be transient")
	}

	transport := NewTransportError("ListIssues", errors.New("connection refused"))
	if !transport.IsTransient() {
		t.Error("network failures should classify as transient")
	}
	if transport.StatusCode != 0 {
		t.Errorf("transport error StatusCode = %d, want 0", transport.StatusCode)
	}

	malformed := NewMalformedError("GetUser", errors.New("unexpected EOF"))
	if !malformed.IsMalformed() {
		t.Error("decode failures should classify as malformed")
	}
}

func TestPackagePredicatesThroughWrapping(t *testing.T) {
	inner := NewStatusError("ListProjects", 503, "maintenance")
	wrapped := fmt.Errorf("initial fetch: %w", inner)

	if !IsTransient(wrapped) {
		t.Error("IsTransient should see through fmt.Errorf wrapping")
	}
	if IsUnauthorized(wrapped) {
		t.Error("IsUnauthorized should be false for a 503")
	}
	if IsNotFound(wrapped) {
		t.Error("IsNotFound should be false for a 503")
	}
}

func TestErrorMessageIncludesStatus(t *testing.T) {
	err := NewStatusError("ListProjects", 429, "Too Many Requests").WithBody(`{"retry_after":30}`)

	got := err.Error()
	want := "ListProjects failed with status 429: Too Many Requests"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Body == "" {
		t.Error("WithBody should retain the response body")
	}
}

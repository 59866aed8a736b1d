package credentials

import (
	"os"
	"strings"
)

// normalizeProviderName converts a provider name to the format used in
// environment variables. Example: "jira-cloud" becomes "JIRA_CLOUD".
func normalizeProviderName(provider string) string {
	normalized := strings.ToUpper(provider)
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return normalized
}

// getEnvVarName returns the environment variable name for a provider field
func getEnvVarName(provider, field string) string {
	return "TRACKSYNC_" + normalizeProviderName(provider) + "_" + strings.ToUpper(field)
}

// GetClientID retrieves the OAuth client id from environment variables
// Looks for: TRACKSYNC_{PROVIDER}_CLIENT_ID
func GetClientID(provider string) string {
	if provider == "" {
		return ""
	}
	return os.Getenv(getEnvVarName(provider, "CLIENT_ID"))
}

// GetClientSecret retrieves the OAuth client secret from environment variables
// Looks for: TRACKSYNC_{PROVIDER}_CLIENT_SECRET
func GetClientSecret(provider string) string {
	if provider == "" {
		return ""
	}
	return os.Getenv(getEnvVarName(provider, "CLIENT_SECRET"))
}

// HasAppCredentials checks if both halves of the OAuth app credential
// exist in environment variables.
func HasAppCredentials(provider string) bool {
	return GetClientID(provider) != "" && GetClientSecret(provider) != ""
}

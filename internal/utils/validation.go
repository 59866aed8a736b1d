package utils

import (
	"fmt"
	"time"
)

// ParseDateFlag parses a date string in ISO format (YYYY-MM-DD).
// Returns nil for empty strings so optional date flags can be skipped.
func ParseDateFlag(dateStr string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}

	// Parse ISO date format (YYYY-MM-DD) in local timezone
	parsedDate, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date format '%s': expected YYYY-MM-DD (e.g., 2025-01-31)", dateStr)
	}

	return &parsedDate, nil
}

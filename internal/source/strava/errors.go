package strava

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for every non-2xx response of the Strava API.
type APIError struct {
	StatusCode int
	Message    string
	// Usage and Limit carry the X-RateLimit-* headers, "short,long".
	Usage string
	Limit string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("strava api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("strava api: status %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err was caused by an exhausted request budget.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

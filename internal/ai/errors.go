package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies provider failures so callers can dispatch on it
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindRateLimited
	KindFeatureUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindFeatureUnavailable:
		return "FEATURE_UNAVAILABLE"
	default:
		return "OTHER"
	}
}

// APIError is a non-2xx answer from the generative API
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API error %d %s (%s): %s", e.StatusCode, e.Status, e.Kind, e.Message)
}

// KindOf returns the kind of the first *APIError in err's chain, KindOther otherwise
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindOther
}

// classify runs once, inside the adapter. Nothing downstream looks at message text.
func classify(statusCode int, status, message string, grounded bool) ErrorKind {
	msg := strings.ToLower(message)
	mentionsGrounding := strings.Contains(msg, "grounding") ||
		strings.Contains(msg, "google_search") ||
		strings.Contains(msg, "search")
	exhausted := statusCode == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED"

	switch {
	case exhausted && grounded && mentionsGrounding:
		return KindFeatureUnavailable
	case exhausted:
		return KindRateLimited
	case grounded && mentionsGrounding &&
		(statusCode == http.StatusBadRequest || statusCode == http.StatusForbidden):
		return KindFeatureUnavailable
	}
	return KindOther
}

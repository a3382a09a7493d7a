package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Remote store errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRemoteDisabled     = fmt.Errorf("remote store disabled")
	ErrStaleWrite         = fmt.Errorf("stale write rejected")
	ErrGone               = fmt.Errorf("record deleted")

	// Lookup errors
	ErrNotFound        = fmt.Errorf("not found")
	ErrRoadmapNotFound = fmt.Errorf("roadmap %w", ErrNotFound)
	ErrVideoNotFound   = fmt.Errorf("video %w", ErrNotFound)
	ErrTaskNotFound    = fmt.Errorf("task %w", ErrNotFound)

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidVideoURL = fmt.Errorf("%w: not a YouTube video URL or id", ErrInvalidInput)
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

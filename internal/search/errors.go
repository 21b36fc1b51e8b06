package search

import "errors"

// ErrAgentTimeout is reported when the agent does not finish before the deadline.
var ErrAgentTimeout = errors.New("agent timed out")

// ErrServiceUnavailable is returned when a dependency is missing or the service is shutting down.
var ErrServiceUnavailable = errors.New("search service unavailable")

// ErrInvalidRequest is returned for an empty performer name.
var ErrInvalidRequest = errors.New("rapper name is required")

// ErrNoResult is reported when the agent finishes without an error or a result.
var ErrNoResult = errors.New("agent returned no result")

package ratelimit

import (
	"net/http"
	"strings"
)

// MatchEndpoint returns the tier for a request, or nil when the default tier applies.
// GET /health is never limited. A trailing slash is ignored, so "/search/rapper/"
// is counted against the same bucket as "/search/rapper".
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	if path == "/health" && method == http.MethodGet {
		return &EndpointConfig{Path: path, Method: method}
	}

	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return &configs[i]
		}
	}
	return nil
}

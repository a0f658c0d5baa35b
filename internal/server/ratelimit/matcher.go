package ratelimit

import (
	"strings"
)

// MatchEndpoint resolves a request to its endpoint configuration. Exact
// path-and-method entries win; entries whose Path ends in "/" act as route
// prefixes, which is how "/webhooks/" covers "/webhooks/trigger". A nil
// return means the default limit applies.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// The health probe is polled by orchestration and is never throttled.
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return &configs[i]
		}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") &&
			strings.HasPrefix(path, config.Path) {
			return config
		}
	}

	return nil
}

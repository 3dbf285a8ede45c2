package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces all cache keys.
const KeyPrefix = "universalis"

// CacheKey represents a unique identifier for a cached provider response.
type CacheKey struct {
	// Endpoint is the request path (e.g., "/api/v2/Chaos/5057")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"listings": "20"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: universalis:endpoint:query1=val1:query2=val2
//
// Example:
//
//	universalis:api/v2/Chaos/5057:entries=0:listings=20
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}

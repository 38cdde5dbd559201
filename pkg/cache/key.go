package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key written by this package.
const KeyPrefix = "artic"

// CacheKey identifies a cached catalog response.
type CacheKey struct {
	// Endpoint is the request path (e.g., "/api/v1/artworks")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"page": "2", "limit": "12"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: artic:endpoint:query1=val1:query2=val2
//
// Example:
//
//	artic:api/v1/artworks:limit=12:page=2
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Sorted for determinism
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

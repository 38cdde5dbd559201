package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "endpoint only",
			key:  CacheKey{Endpoint: "/api/v1/artworks"},
			want: "artic:api/v1/artworks",
		},
		{
			name: "trailing slash trimmed",
			key:  CacheKey{Endpoint: "/api/v1/artworks/"},
			want: "artic:api/v1/artworks",
		},
		{
			name: "page query sorted",
			key: CacheKey{
				Endpoint: "/api/v1/artworks",
				QueryParams: url.Values{
					"page":  []string{"2"},
					"limit": []string{"12"},
				},
			},
			want: "artic:api/v1/artworks:limit=12:page=2",
		},
		{
			name: "multi-valued parameter keeps every value",
			key: CacheKey{
				Endpoint: "/api/v1/artworks",
				QueryParams: url.Values{
					"ids": []string{"1", "2"},
				},
			},
			want: "artic:api/v1/artworks:ids=1,2",
		},
		{
			name: "empty endpoint",
			key:  CacheKey{},
			want: "artic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Endpoint: "/api/v1/artworks",
		QueryParams: url.Values{
			"page":   []string{"3"},
			"limit":  []string{"24"},
			"fields": []string{"id,title"},
		},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Errorf("iteration %d: %v, want %v (not deterministic)", i, got, first)
		}
	}
}

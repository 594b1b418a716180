package enums

import (
	"fmt"
	"strings"
)

// SearchSource identifies the listing provider a search is run against.
type SearchSource string

const (
	SearchSourceGoogleMaps SearchSource = "google_maps"
	SearchSourceYelp       SearchSource = "yelp"
)

// DefaultGoogleMapsZoom is applied when a google_maps search omits zoom.
const DefaultGoogleMapsZoom = 12.0

var validSearchSources = []SearchSource{
	SearchSourceGoogleMaps,
	SearchSourceYelp,
}

// SearchSources returns every supported source.
func SearchSources() []SearchSource {
	out := make([]SearchSource, len(validSearchSources))
	copy(out, validSearchSources)
	return out
}

// String implements fmt.Stringer.
func (s SearchSource) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known SearchSource.
func (s SearchSource) IsValid() bool {
	for _, candidate := range validSearchSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// SupportsZoom reports whether the provider understands a map zoom level.
func (s SearchSource) SupportsZoom() bool {
	return s == SearchSourceGoogleMaps
}

// ParseSearchSource converts raw input into a SearchSource.
func ParseSearchSource(value string) (SearchSource, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validSearchSources {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid search source %q", value)
}

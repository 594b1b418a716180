package searches

import (
	"strings"

	"github.com/ideasdevops/lead-ia/pkg/providers"
)

// dedupeKey identifies a listing by its lowercased, whitespace-collapsed title and address.
func dedupeKey(l providers.RawListing) string {
	return normalize(l.Title) + "\x00" + normalize(l.Address)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Dedupe keeps the first listing for each (title, address) key, preserving order.
func Dedupe(listings []providers.RawListing) []providers.RawListing {
	seen := make(map[string]struct{}, len(listings))
	out := make([]providers.RawListing, 0, len(listings))
	for _, l := range listings {
		key := dedupeKey(l)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

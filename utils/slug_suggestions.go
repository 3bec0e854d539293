package utils

import (
	"fmt"
	mathrand "math/rand"
	"time"
)

// GenerateSlugSuggestions generates alternative slug suggestions when the requested slug is taken
// It tries multiple strategies:
// 1. Numeric suffixes: my-link-2, my-link-3, my-link-4
// 2. Random suffixes: my-link-x7, my-link-x9
// Returns only slugs for which taken reports false, up to maxSuggestions
func GenerateSlugSuggestions(baseSlug string, maxSuggestions int, taken func(string) bool) []string {
	if maxSuggestions <= 0 {
		maxSuggestions = 3
	}

	suggestions := make([]string, 0, maxSuggestions)
	add := func(candidate string) {
		if !taken(candidate) && !contains(suggestions, candidate) && !IsReservedSlug(candidate) {
			suggestions = append(suggestions, candidate)
		}
	}

	// Strategy 1: Numeric suffixes (my-link-2, my-link-3, ...)
	for i := 2; i <= maxSuggestions+5 && len(suggestions) < maxSuggestions; i++ {
		add(fmt.Sprintf("%s-%d", baseSlug, i))
	}

	// Strategy 2: Random suffixes (my-link-x7, my-link-x9, ...)
	for attempt := 0; attempt < 10 && len(suggestions) < maxSuggestions; attempt++ {
		add(fmt.Sprintf("%s-x%d", baseSlug, mathrand.Intn(90)+10))
	}

	// Strategy 3: timestamp-based suffix
	if len(suggestions) < maxSuggestions {
		add(fmt.Sprintf("%s-%d", baseSlug, time.Now().Unix()%10000))
	}

	return suggestions
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

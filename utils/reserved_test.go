package utils

import (
	"strings"
	"testing"
)

func TestIsReservedSlug_RouteWords(t *testing.T) {
	// Every first path segment the router serves must be unusable as a slug
	for _, word := range []string{"api", "s", "health", "cache", "upload", "download", "info", "stats", "share", "qr", "newsletter", "admin"} {
		if !IsReservedSlug(word) {
			t.Errorf("IsReservedSlug(%q) = false, route word must be reserved", word)
		}
	}
}

func TestIsReservedSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"API", true},
		{"Download", true},
		{"NewsLetter", true},
		{"uploads", false},
		{"download-2026", false},
		{"my-photos", false},
		{"s1", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsReservedSlug(tt.slug); got != tt.want {
			t.Errorf("IsReservedSlug(%q) = %v, want %v", tt.slug, got, tt.want)
		}
	}
}

func TestReservedSlugs_Lowercase(t *testing.T) {
	seen := make(map[string]bool, len(ReservedSlugs))
	for _, word := range ReservedSlugs {
		if word != strings.ToLower(word) {
			t.Errorf("reserved slug %q must be lower case for case-folded matching", word)
		}
		if seen[word] {
			t.Errorf("reserved slug %q listed twice", word)
		}
		seen[word] = true
	}
}

package utils

import "strings"

// ReservedSlugs cannot be used as custom share slugs.
// They collide with routes or would read as system pages in a share URL.
var ReservedSlugs = []string{
	// System routes
	"api",
	"s",
	"health",
	"cache",
	"metrics",
	"upload",
	"download",
	"info",
	"stats",
	"share",
	"qr",
	"newsletter",
	"static",
	"assets",

	// Administrative
	"admin",
	"dashboard",
	"settings",
	"config",
	"status",

	// Documentation
	"docs",
	"help",
	"about",

	// Common words to avoid confusion
	"home",
	"index",
	"root",
}

// IsReservedSlug checks if a slug is in the reserved list
// Case-insensitive comparison
func IsReservedSlug(slug string) bool {
	slugLower := strings.ToLower(slug)
	for _, reserved := range ReservedSlugs {
		if slugLower == reserved {
			return true
		}
	}
	return false
}

package utils

import (
	"regexp"
)

var (
	slugFormat = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	pinFormat  = regexp.MustCompile(`^[0-9]{4}$`)
)

// ValidateSlug validates a user-supplied share slug
// Rules:
// - Length: minLength-maxLength characters
// - Characters: a-z, A-Z, 0-9, -, _
// - Cannot be reserved words
func ValidateSlug(slug string, minLength, maxLength int) error {
	if slug == "" {
		return ErrSlugEmpty
	}
	if len(slug) < minLength {
		return ErrSlugTooShort
	}
	if maxLength > 0 && len(slug) > maxLength {
		return ErrSlugTooLong
	}
	if !slugFormat.MatchString(slug) {
		return ErrSlugInvalidFormat
	}
	if IsReservedSlug(slug) {
		return ErrSlugReserved
	}
	return nil
}

// ValidatePIN checks that pin is exactly four ASCII digits
func ValidatePIN(pin string) error {
	if !pinFormat.MatchString(pin) {
		return ErrInvalidPINFormat
	}
	return nil
}

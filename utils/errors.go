package utils

import "errors"

var (
	ErrSlugEmpty         = errors.New("slug cannot be empty")
	ErrSlugTooShort      = errors.New("slug is too short")
	ErrSlugTooLong       = errors.New("slug is too long")
	ErrSlugInvalidFormat = errors.New("slug may only contain letters, digits, '-' and '_'")
	ErrSlugReserved      = errors.New("slug is reserved")
	ErrInvalidPINFormat  = errors.New("PIN must be exactly 4 digits")
	ErrEmptyPINSecret    = errors.New("PIN secret cannot be empty")
)

package domain

import "errors"

// Identity verification failures. The messages are sent to clients as is.
var (
	ErrIDTokenMissing  = errors.New("ID Token not provided")
	ErrInvalidIDToken  = errors.New("Invalid ID Token")
	ErrEmailNotInToken = errors.New("Email not found in ID Token")
)

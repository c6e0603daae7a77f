package model

import "errors"

// Caller-input errors. The HTTP layer maps all of these to 400.
var (
	ErrEmptyClaim   = errors.New("claim text required")
	ErrClaimTooLong = errors.New("claim text too long")
	ErrInvalidVote  = errors.New("invalid vote value")
	ErrMissingVoter = errors.New("voter identity required")
)

// IsInputError reports whether err is a caller-input error
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyClaim) ||
		errors.Is(err, ErrClaimTooLong) ||
		errors.Is(err, ErrInvalidVote) ||
		errors.Is(err, ErrMissingVoter)
}

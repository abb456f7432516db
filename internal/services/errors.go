package services

import "errors"

var (
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrInvalidDecision    = errors.New("unrecognized review decision")
	ErrReviewInProgress   = errors.New("application is being reviewed by someone else")
	ErrUserExists         = errors.New("user with this username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("operation not permitted for this user")
)

package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrRateLimited        = errors.New("github api rate limit exhausted")
	ErrSyncInProgress     = errors.New("a sync for this user is already running")
)

package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested board, thread or record does not exist
	ErrNotFound = errors.New("not found")

	// ErrServerOffline indicates the site is unreachable
	ErrServerOffline = errors.New("site is unreachable")

	// ErrSiteNotFound indicates no site is configured with the requested id
	ErrSiteNotFound = errors.New("site not found")

	// ErrBoardNotFound indicates the site does not carry the requested board
	ErrBoardNotFound = errors.New("board not found")

	// ErrInvalidLoadable indicates an operation received a loadable in invalid mode
	ErrInvalidLoadable = errors.New("loadable is invalid")

	// ErrAlreadyExists indicates a record with the same identity is already stored
	ErrAlreadyExists = errors.New("already exists")
)

package domain

import "context"

// BoardRepository provides network access to a site's boards and threads
// (implemented by site API clients)
type BoardRepository interface {
	// GetBoards returns all boards the site carries
	GetBoards(ctx context.Context) ([]*Board, error)

	// GetCatalog returns the OPs of all live threads on a board
	GetCatalog(ctx context.Context, board string) (*Catalog, error)

	// GetThread returns a full thread; ErrNotFound when it was pruned
	GetThread(ctx context.Context, board string, no int) (*Thread, error)

	// GetArchive returns the archived threads of a board
	GetArchive(ctx context.Context, board string) (*Archive, error)
}

// ContentFetcher downloads raw content such as images
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

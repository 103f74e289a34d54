package ledger

import (
	"context"

	"github.com/gobioeng/halog-ingest/internal/domain"
)

// Ledger stores and retrieves per-file import positions
// Implementation: BoltDB
type Ledger interface {
	// Get retrieves the position for a given file
	// Returns a zero position if the file was never imported
	Get(ctx context.Context, filePath string) (domain.ImportPosition, error)

	// Set stores the position for a given file
	Set(ctx context.Context, filePath string, pos domain.ImportPosition) error

	// Delete removes the position for a given file
	Delete(ctx context.Context, filePath string) error

	// List returns all stored positions
	List(ctx context.Context) (map[string]domain.ImportPosition, error)

	// Close closes the ledger
	Close() error
}

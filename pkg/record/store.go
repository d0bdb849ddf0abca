package record

import (
	"context"

	"github.com/google/uuid"
)

// Store is the interface for thing persistence.
type Store interface {
	// Get retrieves a thing by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Thing, error)
	// Put stores a thing, overwriting any thing with the same ID.
	Put(ctx context.Context, t *Thing) error
	// Delete removes a thing. Deleting a missing thing is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns the things of a schema ordered by creation time.
	List(ctx context.Context, schemaName string) ([]*Thing, error)
	// Close releases resources.
	Close() error
}

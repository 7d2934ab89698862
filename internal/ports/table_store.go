package ports

import (
	"context"

	"github.com/bft-labs/penpal/internal/domain"
)

// TableStore persists rectangular datasets under short names (file names
// relative to the store's root).
type TableStore interface {
	// Exists reports whether name has been written before.
	Exists(ctx context.Context, name string) (bool, error)

	// Read loads the table stored under name.
	Read(ctx context.Context, name string) (domain.Table, error)

	// Write replaces the table stored under name. The write is atomic: a
	// failure leaves the previous content intact.
	Write(ctx context.Context, name string, table domain.Table) error
}

package ports

import (
	"context"

	"github.com/bft-labs/penpal/internal/domain"
)

// StatusRepository persists the outcome of the last run.
type StatusRepository interface {
	// Load returns the last saved status, or a zero status if none exists.
	Load(ctx context.Context) (domain.RunStatus, error)

	// Save persists status atomically.
	Save(ctx context.Context, status domain.RunStatus) error
}

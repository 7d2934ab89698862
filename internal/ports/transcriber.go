package ports

import (
	"context"

	"github.com/bft-labs/penpal/internal/audio"
)

// Transcriber turns a normalized audio clip into text.
// Implementations must not retry; an empty result returns an error wrapping
// domain.ErrUnrecognized.
type Transcriber interface {
	Transcribe(ctx context.Context, clip audio.Clip) (string, error)
}

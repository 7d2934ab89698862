package ports

import "github.com/bft-labs/penpal/pkg/log"

// Logger is the logging port. It aliases the public pkg/log interface so
// adapters and callers can share one implementation.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for the application layer.
var (
	String   = log.String
	Int      = log.Int
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)

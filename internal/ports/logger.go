package ports

import "github.com/yukihamada/wasmix-sub003/pkg/log"

// Logger is the structured logging contract application components receive
// by injection. It aliases the public pkg/log interface so internal code
// and embedders share one Field type.
type Logger = log.Logger

// Field represents a key-value pair for structured logging.
type Field = log.Field

// Field constructors re-exported for the internal packages.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Uint64   = log.Uint64
	Float64  = log.Float64
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)

package observability

import "go.uber.org/zap"

// Logger is the structured logger returned by FromContext.
type Logger = zap.Logger

// Field is a structured log field.
type Field = zap.Field

// Field helpers so callers do not import zap directly.
//
//nolint:gochecknoglobals // Function aliases
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Bool     = zap.Bool
	Float64  = zap.Float64
	Duration = zap.Duration
	Error    = zap.Error
)

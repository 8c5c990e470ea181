package schema

import "errors"

var (
	ErrUnknownSchema   = errors.New("unknown schema")
	ErrDuplicateSchema = errors.New("schema already declared")
	ErrInvalidSpec     = errors.New("invalid schema spec")
	ErrUnknownTrigger  = errors.New("unknown trigger")
	ErrUnknownParam    = errors.New("unknown param")
)

package registry

import "errors"

var (
	ErrUnknownNode       = errors.New("registry: unknown node")
	ErrUnknownVariable   = errors.New("registry: unknown variable")
	ErrLengthMismatch    = errors.New("registry: value length does not match descriptor")
	ErrDuplicateVariable = errors.New("registry: duplicate variable name")
	ErrOutOfRange        = errors.New("registry: variable data out of range")
	ErrNotDescribed      = errors.New("registry: node not described yet")
)

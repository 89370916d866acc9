package connection

import "errors"

var (
	ErrClosed          = errors.New("connection: closed")
	ErrTimeout         = errors.New("connection: timeout")
	ErrTransportFailed = errors.New("connection: transport failed")
	ErrOddBytecode     = errors.New("connection: bytecode blob not word aligned")
)

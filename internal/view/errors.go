package view

import "errors"

// Error kinds returned synchronously by bridge operations. Callers match with
// errors.Is; the transport layer maps them onto wire error codes.
var (
	ErrViewNotFound     = errors.New("view not found")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrCycleDetected    = errors.New("cycle detected")
	ErrCreationFailed   = errors.New("creation failed")
)

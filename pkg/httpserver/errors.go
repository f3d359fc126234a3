package httpserver

import "errors"

var (
	// ErrServerStart indicates the listener could not be started.
	ErrServerStart = errors.New("httpserver.errors.server_start")
	// ErrServerShutdown indicates graceful shutdown did not complete in time.
	ErrServerShutdown = errors.New("httpserver.errors.server_shutdown")
)

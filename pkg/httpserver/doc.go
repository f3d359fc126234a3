// Package httpserver provides a thin lifecycle wrapper around http.Server
// with context-driven graceful shutdown and dependency health checks.
package httpserver

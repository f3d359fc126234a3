// Package pg provides postgres connectivity: a pgx connection pool with
// retrying startup and goose-driven schema migrations.
package pg

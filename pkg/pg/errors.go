package pg

import "errors"

var (
	// ErrFailedToParseConfig indicates the connection string could not be parsed.
	ErrFailedToParseConfig = errors.New("failed to parse postgres config")
	// ErrFailedToConnect indicates the pool could not be established after all retries.
	ErrFailedToConnect = errors.New("failed to connect to postgres")
	// ErrFailedToMigrate wraps any failure while applying schema migrations.
	ErrFailedToMigrate = errors.New("failed to apply migrations")
	// ErrMigrationsPathNotSet indicates migrations were requested without a source directory.
	ErrMigrationsPathNotSet = errors.New("migrations path is not set")
)

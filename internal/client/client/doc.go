// Package client bootstraps the device-local SQLite database used by the
// Tables client.
//
// # Overview
//
// OpenLocal opens (or creates) the database file, applies the embedded goose
// migrations, and returns the repositories built on it. The only repository
// today is the metadata key/value store, which keeps the persisted auth
// session and the locally archived table ids.
//
// # Concurrency
//
// The returned *sql.DB is safe for concurrent use; repositories share it.
package client

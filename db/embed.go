// Package db holds the versioned goose migrations for every supported backend.
package db

import "embed"

// Migrations contains migrations/postgres and migrations/sqlite.
//
//go:embed migrations
var Migrations embed.FS

package db

import "embed"

// embedMigrations contains the goose migrations for the directory schema.
//
//go:embed migrations/*.sql
var embedMigrations embed.FS

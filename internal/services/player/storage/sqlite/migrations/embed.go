package migrations

import "embed"

// FS contains embedded SQLite migrations for the story catalog.
//
//go:embed *.sql
var FS embed.FS

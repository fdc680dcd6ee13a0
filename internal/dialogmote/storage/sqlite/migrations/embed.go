package migrations

import "embed"

// FS contains embedded SQLite migrations for dialogmote storage.
//
//go:embed *.sql
var FS embed.FS

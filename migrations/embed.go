// Package migrations holds the SQL schema migrations, embedded into the binary.
package migrations

import "embed"

// FS contains every NNN_name.sql migration
//
//go:embed *.sql
var FS embed.FS

// Package migrations holds the SQLite schema for the learner table.
package migrations

import "embed"

// FS holds the numbered migration files, applied in name order.
//
//go:embed *.sql
var FS embed.FS

// Package migrations holds the numbered run-table migrations applied by
// sqlite.NewStore.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package sqlite persists sessions in a SQLite database so runs survive a
// server restart.
//
// It uses modernc.org/sqlite, which needs no cgo. Migrations under
// migrations/ are applied on open. Each session is one row: the run as a
// JSON document plus an expiry in unix milliseconds. Expired rows read as
// missing until Sweep deletes them.
//
// The database lives at <data dir>/bidwright.db, ~/.bidwright/data by
// default.
package sqlite

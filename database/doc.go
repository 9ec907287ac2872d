// Package database wraps GORM on an embedded SQLite file with connection
// retry, query logging through the service logger, transactions and a
// lifecycle Component.
//
// The driver is github.com/glebarez/sqlite, a pure Go build of SQLite, so
// the binary needs no cgo toolchain. Use ":memory:" or a file under
// t.TempDir() in tests.
package database

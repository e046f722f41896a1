//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// When built with cgo and the sqlite_vec tag, register the real
	// sqlite-vec extension against github.com/mattn/go-sqlite3 for true
	// approximate-nearest-neighbor search instead of the brute-force
	// in-memory vec0 compat table in vec.go, and point sqliteDriver at it.
	vec.Auto()
	sqliteDriver = "sqlite3"
}

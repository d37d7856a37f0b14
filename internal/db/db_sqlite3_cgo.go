//go:build cgo && sqlite3_cgo

package db

// Opt-in via the sqlite3_cgo tag when a C toolchain is available.
import (
	_ "github.com/mattn/go-sqlite3"
)

const driverID = "mattn/go-sqlite3"
const driverName = "sqlite3"

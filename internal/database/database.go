// Package database provides the SurrealDB access layer for StaffHub.
//
// The Database interface exposes three query methods:
//   - Query: returns every statement result as {status, result} maps
//   - QueryOne: returns the first record of the first statement
//   - Execute: runs a mutation and discards the result
//
// # Atomic Writes
//
// Multi-record writes (accepting an offer, running a migration file) go through
// AtomicBatch or TxBuilder. Statements accumulate in memory and are sent as one
// BEGIN TRANSACTION / COMMIT TRANSACTION block, so they succeed or fail together.
// There is no isolation between Add calls.
//
// # Error Handling
//
// Driver failures are wrapped with the sentinel errors below. Use errors.Is:
//
//	if errors.Is(err, database.ErrDuplicate) {
//	    return service.ErrCandidateEmailTaken
//	}
package database

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Standard errors for database operations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique index violation (e.g., duplicate email).
	ErrDuplicate = errors.New("duplicate record")

	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a query execution failure.
	ErrQuery = errors.New("query error")

	// ErrConflict indicates a guarded write refused by current state (e.g., a full sprint).
	ErrConflict = errors.New("write conflict")
)

// Database defines the interface for database operations
type Database interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Query executes a query and returns results
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)

	// QueryOne executes a query and returns a single result
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)

	// Execute runs a query without returning results (for mutations)
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
}

// Config holds database configuration
type Config struct {
	Scheme    string // ws or wss
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string

	// SlowQuery logs a warning for statements slower than this. Zero disables it.
	SlowQuery time.Duration
	Logger    *slog.Logger
}

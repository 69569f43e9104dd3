// Package idalloc hands out monotonically increasing note ids. Ids are never
// reused, so deleting a note cannot make a later create collide with a
// surviving record.
package idalloc

import (
	"context"
	"fmt"
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Allocator returns the next unused id on every call.
type Allocator interface {
	Next(ctx context.Context) (int64, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Dir         string // notes directory, used by the file backend
	SQLitePath  string
	DatabaseURL string

	// Floor is the smallest id the allocator may return. Callers pass
	// max(existing ids)+1 so ids stay ahead of records already on disk.
	Floor int64
}

// Open constructs the allocator named by opts.Backend.
func Open(ctx context.Context, opts Options) (Allocator, error) {
	if opts.Floor < 1 {
		opts.Floor = 1
	}

	switch opts.Backend {
	case "", BackendFile:
		return NewFile(opts.Dir, opts.Floor)
	case BackendSQLite:
		return NewSQLite(opts.SQLitePath, opts.Floor)
	case BackendPostgres:
		return NewPostgres(ctx, opts.DatabaseURL, opts.Floor)
	default:
		return nil, fmt.Errorf("unknown id backend %q", opts.Backend)
	}
}

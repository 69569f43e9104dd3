package idalloc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ViniZap4/lumi-notes/filesystem"
)

const (
	counterFile   = ".next_id"
	lockFile      = ".next_id.lock"
	lockRetry     = 10 * time.Millisecond
	lockStaleTime = 30 * time.Second
)

// File persists the next id as decimal text inside the notes directory.
// An O_EXCL lock file serialises allocation across processes; the mutex
// does the same inside one process.
type File struct {
	path     string
	lockPath string
	floor    int64
	mu       sync.Mutex
}

func NewFile(dir string, floor int64) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create id directory: %w", err)
	}
	return &File{
		path:     filepath.Join(dir, counterFile),
		lockPath: filepath.Join(dir, lockFile),
		floor:    floor,
	}, nil
}

func (f *File) Next(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	unlock, err := f.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	next, err := f.load()
	if err != nil {
		return 0, err
	}
	if next < f.floor {
		next = f.floor
	}

	if err := filesystem.WriteFileAtomic(f.path, []byte(strconv.FormatInt(next+1, 10)+"\n"), 0644); err != nil {
		return 0, fmt.Errorf("persist next id: %w", err)
	}
	return next, nil
}

func (f *File) Close() error { return nil }

func (f *File) load() (int64, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return f.floor, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read next id: %w", err)
	}

	next, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse next id %q: %w", f.path, err)
	}
	return next, nil
}

// lock spins on an exclusive lock file until it is acquired or ctx ends.
// A lock older than lockStaleTime is assumed abandoned by a crashed process.
func (f *File) lock(ctx context.Context) (func(), error) {
	for {
		lf, err := os.OpenFile(f.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			held, statErr := lf.Stat()
			lf.Close()
			if statErr != nil {
				os.Remove(f.lockPath)
				return nil, fmt.Errorf("acquire id lock: %w", statErr)
			}
			return func() { removeIfSame(f.lockPath, held) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire id lock: %w", err)
		}

		if info, statErr := os.Stat(f.lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleTime {
			if f.breakStale(info) {
				continue
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire id lock: %w", ctx.Err())
		case <-time.After(lockRetry):
		}
	}
}

// breakStale removes the lock file judged stale, provided it is still that
// same file. Breakers serialise on a second O_EXCL file so one of them
// cannot remove a lock another has just acquired.
func (f *File) breakStale(stale os.FileInfo) bool {
	breaker := f.lockPath + ".break"
	bf, err := os.OpenFile(breaker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if info, statErr := os.Stat(breaker); statErr == nil && time.Since(info.ModTime()) > lockStaleTime {
			os.Remove(breaker)
		}
		return false
	}
	bf.Close()
	defer os.Remove(breaker)

	return removeIfSame(f.lockPath, stale)
}

// removeIfSame deletes path only if it is still the file described by want.
func removeIfSame(path string, want os.FileInfo) bool {
	cur, err := os.Stat(path)
	if err != nil || !os.SameFile(cur, want) || !cur.ModTime().Equal(want.ModTime()) {
		return false
	}
	return os.Remove(path) == nil
}

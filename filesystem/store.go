// filesystem/store.go
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ViniZap4/lumi-notes/domain"
)

// IDAllocator hands out note ids. Implementations live in package idalloc.
type IDAllocator interface {
	Next(ctx context.Context) (int64, error)
}

// Store keeps one JSON record per note in a single directory.
type Store struct {
	dir   string
	ids   IDAllocator
	locks keyedMutex
	now   func() time.Time
}

type Option func(*Store)

// WithClock replaces the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates dir if needed and returns a store backed by it.
func NewStore(dir string, ids IDAllocator, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create notes directory: %w", err)
	}

	s := &Store{
		dir: dir,
		ids: ids,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Create(ctx context.Context, text string) (domain.Note, error) {
	id, err := s.ids.Next(ctx)
	if err != nil {
		return domain.Note{}, fmt.Errorf("allocate note id: %w", err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	path := NotePath(s.dir, id)
	if _, err := os.Stat(path); err == nil {
		return domain.Note{}, fmt.Errorf("allocated id %d is already in use", id)
	}

	now := s.now()
	note := domain.Note{
		ID:        id,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := WriteNote(path, note); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

func (s *Store) Read(ctx context.Context, id int64) (domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return domain.Note{}, err
	}
	return s.read(id)
}

// Update replaces the note's text and bumps updated_at. created_at is kept.
func (s *Store) Update(ctx context.Context, id int64, text string) (domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return domain.Note{}, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	note, err := s.read(id)
	if err != nil {
		return domain.Note{}, err
	}

	note.Text = text
	note.UpdatedAt = s.now()
	if err := WriteNote(NotePath(s.dir, id), note); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	err := os.Remove(NotePath(s.dir, id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("note %d: %w", id, domain.ErrNotFound)
	}
	return err
}

func (s *Store) List(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ListIDs(s.dir)
}

func (s *Store) read(id int64) (domain.Note, error) {
	note, err := ReadNote(NotePath(s.dir, id))
	if errors.Is(err, os.ErrNotExist) {
		return domain.Note{}, fmt.Errorf("note %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Note{}, err
	}
	note.ID = id
	return note, nil
}

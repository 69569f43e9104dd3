// Package notes gates the note record store behind token verification.
package notes

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ViniZap4/lumi-notes/domain"
	"github.com/ViniZap4/lumi-notes/ws"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

type Store interface {
	Create(ctx context.Context, text string) (domain.Note, error)
	Read(ctx context.Context, id int64) (domain.Note, error)
	Update(ctx context.Context, id int64, text string) (domain.Note, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]int64, error)
}

// Publisher receives an event after every successful mutation.
type Publisher interface {
	Publish(eventType string, id int64)
}

type Service struct {
	tokens TokenVerifier
	store  Store
	events Publisher
	md     goldmark.Markdown
	log    zerolog.Logger
}

// NewService wires the service. events may be nil.
func NewService(tokens TokenVerifier, store Store, events Publisher, log zerolog.Logger) *Service {
	return &Service{
		tokens: tokens,
		store:  store,
		events: events,
		md:     goldmark.New(),
		log:    log.With().Str("component", "notes").Logger(),
	}
}

// Authorize reports whether token may use the service.
func (s *Service) Authorize(ctx context.Context, token string) error {
	if err := s.tokens.Verify(ctx, token); err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, token, text string) (domain.Note, error) {
	if err := s.Authorize(ctx, token); err != nil {
		return domain.Note{}, err
	}

	note, err := s.store.Create(ctx, text)
	if err != nil {
		return domain.Note{}, err
	}

	s.log.Info().Int64("id", note.ID).Msg("note created")
	s.publish(ws.NoteCreated, note.ID)
	return note, nil
}

func (s *Service) Read(ctx context.Context, token string, id int64) (domain.Note, error) {
	if err := s.Authorize(ctx, token); err != nil {
		return domain.Note{}, err
	}
	if err := validID(id); err != nil {
		return domain.Note{}, err
	}
	return s.store.Read(ctx, id)
}

func (s *Service) Info(ctx context.Context, token string, id int64) (domain.NoteInfo, error) {
	note, err := s.Read(ctx, token, id)
	if err != nil {
		return domain.NoteInfo{}, err
	}
	return note.Info(), nil
}

func (s *Service) Update(ctx context.Context, token string, id int64, text string) (domain.Note, error) {
	if err := s.Authorize(ctx, token); err != nil {
		return domain.Note{}, err
	}
	if err := validID(id); err != nil {
		return domain.Note{}, err
	}

	note, err := s.store.Update(ctx, id, text)
	if err != nil {
		return domain.Note{}, err
	}

	s.log.Info().Int64("id", id).Msg("note updated")
	s.publish(ws.NoteUpdated, id)
	return note, nil
}

func (s *Service) Delete(ctx context.Context, token string, id int64) error {
	if err := s.Authorize(ctx, token); err != nil {
		return err
	}
	if err := validID(id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Int64("id", id).Msg("note deleted")
	s.publish(ws.NoteDeleted, id)
	return nil
}

// List returns the ids of all stored notes.
func (s *Service) List(ctx context.Context, token string) ([]int64, error) {
	if err := s.Authorize(ctx, token); err != nil {
		return nil, err
	}
	return s.store.List(ctx)
}

// Render returns the note's text converted from markdown to HTML.
func (s *Service) Render(ctx context.Context, token string, id int64) (string, error) {
	note, err := s.Read(ctx, token, id)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(note.Text), &buf); err != nil {
		return "", fmt.Errorf("render note %d: %w", id, err)
	}
	return buf.String(), nil
}

func (s *Service) publish(eventType string, id int64) {
	if s.events != nil {
		s.events.Publish(eventType, id)
	}
}

func validID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidID, id)
	}
	return nil
}

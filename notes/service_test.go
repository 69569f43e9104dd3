package notes_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ViniZap4/lumi-notes/auth"
	"github.com/ViniZap4/lumi-notes/domain"
	"github.com/ViniZap4/lumi-notes/filesystem"
	"github.com/ViniZap4/lumi-notes/idalloc"
	"github.com/ViniZap4/lumi-notes/notes"
	"github.com/ViniZap4/lumi-notes/ws"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validToken = "secret-token"

type recordedEvent struct {
	Type string
	ID   int64
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(eventType string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{eventType, id})
}

// countingStore wraps a Store and counts calls, so tests can assert that
// rejected requests never reach storage.
type countingStore struct {
	notes.Store
	calls int
}

func (c *countingStore) Create(ctx context.Context, text string) (domain.Note, error) {
	c.calls++
	return c.Store.Create(ctx, text)
}

func (c *countingStore) Read(ctx context.Context, id int64) (domain.Note, error) {
	c.calls++
	return c.Store.Read(ctx, id)
}

func (c *countingStore) Update(ctx context.Context, id int64, text string) (domain.Note, error) {
	c.calls++
	return c.Store.Update(ctx, id, text)
}

func (c *countingStore) Delete(ctx context.Context, id int64) error {
	c.calls++
	return c.Store.Delete(ctx, id)
}

func (c *countingStore) List(ctx context.Context) ([]int64, error) {
	c.calls++
	return c.Store.List(ctx)
}

type fixture struct {
	svc    *notes.Service
	store  *countingStore
	events *recorder
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "notes")
	tokensPath := filepath.Join(root, "tokens.txt")
	require.NoError(t, os.WriteFile(tokensPath, []byte(validToken+"\n"), 0600))

	ids, err := idalloc.NewFile(dir, 1)
	require.NoError(t, err)
	fs, err := filesystem.NewStore(dir, ids)
	require.NoError(t, err)

	store := &countingStore{Store: fs}
	events := &recorder{}
	svc := notes.NewService(auth.NewFileTokens(tokensPath), store, events, zerolog.Nop())
	return &fixture{svc: svc, store: store, events: events, dir: dir}
}

func TestService_Walkthrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	note, err := f.svc.Create(ctx, validToken, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), note.ID)

	got, err := f.svc.Read(ctx, validToken, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "hello", got.Text)

	_, err = f.svc.Update(ctx, validToken, 1, "bye")
	require.NoError(t, err)
	got, err = f.svc.Read(ctx, validToken, 1)
	require.NoError(t, err)
	assert.Equal(t, "bye", got.Text)

	require.NoError(t, f.svc.Delete(ctx, validToken, 1))
	_, err = f.svc.Read(ctx, validToken, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []recordedEvent{
		{ws.NoteCreated, 1},
		{ws.NoteUpdated, 1},
		{ws.NoteDeleted, 1},
	}, f.events.events)
}

func TestService_InfoTracksUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	note, err := f.svc.Create(ctx, validToken, "hello")
	require.NoError(t, err)

	before, err := f.svc.Info(ctx, validToken, note.ID)
	require.NoError(t, err)
	assert.True(t, before.CreatedAt.Equal(before.UpdatedAt))

	updated, err := f.svc.Update(ctx, validToken, note.ID, "changed")
	require.NoError(t, err)

	after, err := f.svc.Info(ctx, validToken, note.ID)
	require.NoError(t, err)
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))
	assert.True(t, after.UpdatedAt.Equal(updated.UpdatedAt))
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.svc.Create(ctx, validToken, text)
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.Delete(ctx, validToken, 2))

	ids, err := f.svc.List(ctx, validToken)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	// Deleting note 2 must not let the next create collide with note 3.
	note, err := f.svc.Create(ctx, validToken, "four")
	require.NoError(t, err)
	assert.Equal(t, int64(4), note.ID)
}

func TestService_UnauthorizedPerformsNoWork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	note, err := f.svc.Create(ctx, validToken, "keep me")
	require.NoError(t, err)
	f.store.calls = 0
	f.events.events = nil

	for _, token := range []string{"", "wrong", validToken + " "} {
		_, err := f.svc.Create(ctx, token, "x")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = f.svc.Read(ctx, token, note.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = f.svc.Info(ctx, token, note.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = f.svc.Update(ctx, token, note.ID, "x")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		err = f.svc.Delete(ctx, token, note.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = f.svc.List(ctx, token)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = f.svc.Render(ctx, token, note.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}

	assert.Zero(t, f.store.calls)
	assert.Empty(t, f.events.events)

	got, err := f.svc.Read(ctx, validToken, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep me", got.Text)
}

func TestService_MissingTokenFile(t *testing.T) {
	dir := t.TempDir()
	ids, err := idalloc.NewFile(dir, 1)
	require.NoError(t, err)
	fs, err := filesystem.NewStore(dir, ids)
	require.NoError(t, err)

	svc := notes.NewService(auth.NewFileTokens(filepath.Join(dir, "absent.txt")), fs, nil, zerolog.Nop())
	_, err = svc.Create(context.Background(), validToken, "x")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestService_InvalidID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Read(ctx, validToken, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = f.svc.Update(ctx, validToken, -1, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	assert.ErrorIs(t, f.svc.Delete(ctx, validToken, 0), domain.ErrInvalidID)
	assert.Zero(t, f.store.calls)
}

func TestService_NotFoundPublishesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Update(ctx, validToken, 9, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, validToken, 9), domain.ErrNotFound)
	assert.Empty(t, f.events.events)
}

func TestService_Render(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	note, err := f.svc.Create(ctx, validToken, "# Title\n\nsome *text*")
	require.NoError(t, err)

	html, err := f.svc.Render(ctx, validToken, note.ID)
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<em>text</em>")
}

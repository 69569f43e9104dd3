package auth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ViniZap4/lumi-notes/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func writeTokens(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestFileTokens_Verify(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.txt")
	tokens := NewFileTokens(path)

	t.Run("Missing File", func(t *testing.T) {
		assert.ErrorIs(t, tokens.Verify(ctx, "secret"), domain.ErrUnauthorized)
	})

	writeTokens(t, path, "#team\nsecret\r\nother\n\n")

	t.Run("Exact Line Matches", func(t *testing.T) {
		assert.NoError(t, tokens.Verify(ctx, "secret"))
		assert.NoError(t, tokens.Verify(ctx, "other"))
	})

	t.Run("Partial Or Padded Token Rejected", func(t *testing.T) {
		assert.ErrorIs(t, tokens.Verify(ctx, "secre"), domain.ErrUnauthorized)
		assert.ErrorIs(t, tokens.Verify(ctx, " secret"), domain.ErrUnauthorized)
		assert.ErrorIs(t, tokens.Verify(ctx, "secret\nother"), domain.ErrUnauthorized)
	})

	t.Run("Empty Token Rejected", func(t *testing.T) {
		assert.ErrorIs(t, tokens.Verify(ctx, ""), domain.ErrUnauthorized)
	})

	t.Run("Any Line Is A Token", func(t *testing.T) {
		assert.NoError(t, tokens.Verify(ctx, "#team"))
	})

	t.Run("Reads File On Every Call", func(t *testing.T) {
		writeTokens(t, path, "rotated\n")
		assert.ErrorIs(t, tokens.Verify(ctx, "secret"), domain.ErrUnauthorized)
		assert.NoError(t, tokens.Verify(ctx, "rotated"))
	})
}

func TestFileTokens_LongLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.txt")
	long := strings.Repeat("x", 70000)
	writeTokens(t, path, "#team\n"+long+"\nlater\n")

	tokens := NewFileTokens(path)
	assert.NoError(t, tokens.Verify(ctx, "#team"))
	assert.NoError(t, tokens.Verify(ctx, long))
	assert.NoError(t, tokens.Verify(ctx, "later"))
}

func TestFileTokens_BcryptLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.txt")

	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	writeTokens(t, path, string(hash)+"\n")

	t.Run("Exact Match Only By Default", func(t *testing.T) {
		tokens := NewFileTokens(path)
		assert.ErrorIs(t, tokens.Verify(ctx, "hashed-secret"), domain.ErrUnauthorized)
		assert.NoError(t, tokens.Verify(ctx, string(hash)))
	})

	t.Run("Hashed Lines Enabled", func(t *testing.T) {
		tokens := NewFileTokens(path, WithHashedLines(true))
		assert.NoError(t, tokens.Verify(ctx, "hashed-secret"))
		assert.NoError(t, tokens.Verify(ctx, string(hash)))
		assert.ErrorIs(t, tokens.Verify(ctx, "wrong"), domain.ErrUnauthorized)
	})
}

func TestAddToken(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.txt")

	require.NoError(t, AddToken(path, "first", false))

	// A file without a trailing newline must not merge lines.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("manual")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, AddToken(path, "second", false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nmanual\nsecond\n", string(data))

	tokens := NewFileTokens(path)
	for _, tok := range []string{"first", "manual", "second"} {
		assert.NoError(t, tokens.Verify(ctx, tok), tok)
	}
}

func TestAddToken_Hashed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	require.NoError(t, AddToken(path, "s3cret", true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
	assert.NoError(t, NewFileTokens(path, WithHashedLines(true)).Verify(context.Background(), "s3cret"))
}

func TestAddToken_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	assert.Error(t, AddToken(path, "   ", false))
	assert.Error(t, AddToken(path, "two\nlines", false))
	assert.NoFileExists(t, path)
}

func TestCachedTokens_ReloadsOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "tokens.txt")
	writeTokens(t, path, "before\n")

	cached, err := NewCachedTokens(path, zerolog.Nop())
	require.NoError(t, err)
	defer cached.Close()
	go cached.Run(ctx)

	require.NoError(t, cached.Verify(ctx, "before"))
	assert.ErrorIs(t, cached.Verify(ctx, "after"), domain.ErrUnauthorized)

	writeTokens(t, path, "after\n")
	assert.Eventually(t, func() bool {
		return cached.Verify(ctx, "after") == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, cached.Verify(ctx, "before"), domain.ErrUnauthorized)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return cached.Verify(ctx, "after") != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCachedTokens_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")

	cached, err := NewCachedTokens(path, zerolog.Nop())
	require.NoError(t, err)
	defer cached.Close()

	assert.ErrorIs(t, cached.Verify(context.Background(), "any"), domain.ErrUnauthorized)
}

// Package auth verifies bearer tokens against a line-delimited token file.
package auth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ViniZap4/lumi-notes/domain"
	"golang.org/x/crypto/bcrypt"
)

// tokenSet is the parsed content of a token file. Every line is a token
// matched exactly; lines that look like bcrypt hashes are kept aside as well
// and only consulted when hashed lines are enabled.
type tokenSet struct {
	lines  [][]byte
	hashed [][]byte
}

func parseTokens(data []byte) tokenSet {
	var set tokenSet
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}
		set.lines = append(set.lines, line)
		if isBcrypt(string(line)) {
			set.hashed = append(set.hashed, line)
		}
	}
	return set
}

func isBcrypt(line string) bool {
	return strings.HasPrefix(line, "$2a$") ||
		strings.HasPrefix(line, "$2b$") ||
		strings.HasPrefix(line, "$2y$")
}

func (s tokenSet) contains(token string, hashed bool) bool {
	if token == "" {
		return false
	}
	candidate := []byte(token)
	for _, l := range s.lines {
		if subtle.ConstantTimeCompare(l, candidate) == 1 {
			return true
		}
	}
	if !hashed {
		return false
	}
	for _, h := range s.hashed {
		if bcrypt.CompareHashAndPassword(h, candidate) == nil {
			return true
		}
	}
	return false
}

// Option configures a token store.
type Option func(*options)

type options struct {
	hashed bool
}

// WithHashedLines also accepts a token whose bcrypt hash is a line of the
// file. Exact line matches are accepted either way.
func WithHashedLines(enabled bool) Option {
	return func(o *options) { o.hashed = enabled }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FileTokens reads the token file on every Verify call.
type FileTokens struct {
	path string
	opts options
}

func NewFileTokens(path string, opts ...Option) *FileTokens {
	return &FileTokens{path: path, opts: newOptions(opts)}
}

// Verify fails with domain.ErrUnauthorized when the file is absent or has
// no line matching token.
func (f *FileTokens) Verify(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}

	if !parseTokens(data).contains(token, f.opts.hashed) {
		return domain.ErrUnauthorized
	}
	return nil
}

// AddToken appends token to the file at path, creating it when missing.
// With hash set, the bcrypt hash of the token is stored instead; such lines
// only verify through a store built WithHashedLines.
func AddToken(path, token string, hash bool) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is empty")
	}
	if strings.ContainsAny(token, "\r\n") {
		return fmt.Errorf("token may not contain line breaks")
	}

	line := token
	if hash {
		h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash token: %w", err)
		}
		line = string(h)
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(line + "\n")
	return err
}

package cli

import (
	"context"
	"fmt"

	"github.com/ViniZap4/lumi-notes/auth"
	"github.com/ViniZap4/lumi-notes/config"
	"github.com/ViniZap4/lumi-notes/filesystem"
	"github.com/ViniZap4/lumi-notes/idalloc"
	"github.com/ViniZap4/lumi-notes/notes"
	"github.com/rs/zerolog"
)

// openService builds the note service from cfg. The returned cleanup
// releases the allocator and token watcher; background work stops with ctx.
func openService(ctx context.Context, cfg config.Config, events notes.Publisher, log zerolog.Logger) (*notes.Service, func(), error) {
	highest, err := filesystem.MaxID(cfg.NotesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan notes directory: %w", err)
	}

	ids, err := idalloc.Open(ctx, idalloc.Options{
		Backend:     cfg.IDBackend,
		Dir:         cfg.NotesDir,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		Floor:       highest + 1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open id allocator: %w", err)
	}

	store, err := filesystem.NewStore(cfg.NotesDir, ids)
	if err != nil {
		ids.Close()
		return nil, nil, err
	}

	hashed := auth.WithHashedLines(cfg.TokenHashes)
	var tokens notes.TokenVerifier = auth.NewFileTokens(cfg.TokensFile, hashed)
	closeTokens := func() {}
	if cfg.TokenCache {
		cached, err := auth.NewCachedTokens(cfg.TokensFile, log, hashed)
		if err != nil {
			ids.Close()
			return nil, nil, err
		}
		go cached.Run(ctx)
		tokens = cached
		closeTokens = func() { cached.Close() }
	}

	log.Info().
		Str("notes_dir", cfg.NotesDir).
		Str("id_backend", cfg.IDBackend).
		Bool("token_cache", cfg.TokenCache).
		Bool("token_hashes", cfg.TokenHashes).
		Msg("note store ready")

	cleanup := func() {
		closeTokens()
		if err := ids.Close(); err != nil {
			log.Warn().Err(err).Msg("close id allocator")
		}
	}
	return notes.NewService(tokens, store, events, log), cleanup, nil
}

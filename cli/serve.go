package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	httphandlers "github.com/ViniZap4/lumi-notes/http"
	"github.com/ViniZap4/lumi-notes/ws"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	svc, cleanup, err := openService(ctx, cfg, hub, log)
	if err != nil {
		return err
	}
	defer cleanup()

	server := httphandlers.NewServer(svc, hub, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Listen(cfg.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server shutdown error")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

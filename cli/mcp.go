package cli

import (
	"errors"
	"os"

	mcpserver "github.com/ViniZap4/lumi-notes/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the note tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}
	cmd.Flags().String("token", "", "Token used for every tool call (default: $LUMI_TOKEN)")

	RootCmd.AddCommand(cmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("LUMI_TOKEN")
	}
	if token == "" {
		return errors.New("a token is required (--token or LUMI_TOKEN)")
	}

	svc, cleanup, err := openService(cmd.Context(), cfg, nil, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Authorize(cmd.Context(), token); err != nil {
		return err
	}

	log.Info().Msg("mcp server listening on stdio")
	return server.ServeStdio(mcpserver.NewServer(svc, token))
}

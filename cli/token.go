package cli

import (
	"fmt"

	"github.com/ViniZap4/lumi-notes/auth"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the token file",
	}

	add := &cobra.Command{
		Use:   "add [token]",
		Short: "Append a token to the token file",
		Long:  "Append a token to the token file. Without an argument a random token is generated and printed.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTokenAdd,
	}
	add.Flags().Bool("hash", false, "Store a bcrypt hash instead of the plain token (verified only with token_hashes enabled)")

	tokenCmd.AddCommand(add)
	RootCmd.AddCommand(tokenCmd)
}

func runTokenAdd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	hash, _ := cmd.Flags().GetBool("hash")

	token := uuid.NewString()
	if len(args) == 1 {
		token = args[0]
	}

	if err := auth.AddToken(cfg.TokensFile, token, hash); err != nil {
		return fmt.Errorf("add token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

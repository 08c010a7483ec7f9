package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphmail/graphmail/internal/config"
	"github.com/graphmail/graphmail/internal/msauth"
)

// loginTimeout bounds the interactive browser flow.
const loginTimeout = 5 * time.Minute

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Microsoft and cache a token",
		Long: `Run the interactive OAuth2 login flow against Microsoft Entra ID.

A browser window opens for sign-in; the resulting token is stored in the
local token cache and refreshed automatically from then on. Run this once
before starting the server.

Configuration is read from the environment (or a .env file):
  MICROSOFT_CLIENT_ID, MICROSOFT_CLIENT_SECRET, MICROSOFT_TENANT_ID`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
			defer cancel()

			manager := msauth.NewManager(cfg)
			if err := manager.Login(ctx); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Printf("Login successful. Token cached at %s\n", cfg.TokenFile)
			return nil
		},
	}
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wego-server/internal/auth"
	"wego-server/internal/shared/config"
)

func newTokenCmd() *cobra.Command {
	var (
		playerID string
		username string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development player token",
		Long: `Mint a JWT for a player, signed with JWT_SECRET from the environment
or .env file. Send it as "Authorization: Bearer <token>" or as the
auth_token cookie.

Examples:
  battlesim token --player alice
  battlesim token --player bob --ttl 30m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(); err != nil {
				return err
			}
			if ttl == 0 {
				ttl = config.GlobalConfig.Auth.TokenExpiration
			}

			issuer, err := auth.NewTokenIssuer(config.GlobalConfig.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			token, err := issuer.GenerateJWT(playerID, username)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&playerID, "player", "", "player id to embed in the token")
	cmd.Flags().StringVar(&username, "username", "", "optional display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_EXPIRATION_HOURS)")
	_ = cmd.MarkFlagRequired("player")

	return cmd
}

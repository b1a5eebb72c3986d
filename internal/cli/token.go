package cli

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/format"
	"taskboard/internal/server"
)

func newTokenCmd(app *App) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a server started with --jwt-secret",
		Example: strings.TrimSpace(`
taskboard token --jwt-secret dev-secret --subject alice
TASKBOARD_TOKEN=$(taskboard token --jwt-secret dev-secret | jq -r .data.token) taskboard
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := app.Config.Server.JWTSecret
			if strings.TrimSpace(secret) == "" {
				return writeErr(cmd, errors.New("no signing secret: pass --jwt-secret or set server.jwt_secret"))
			}
			if ttl <= 0 {
				ttl = time.Hour
			}
			tok, err := server.MintToken(secret, subject, ttl)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: map[string]any{
				"token":     tok,
				"subject":   subject,
				"expiresAt": time.Now().Add(ttl).UTC().Format(time.RFC3339),
			}})
		},
	}
	cmd.Flags().String("jwt-secret", "", "HS256 signing secret (same as serve --jwt-secret)")
	cmd.Flags().StringVar(&subject, "subject", "taskboard", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

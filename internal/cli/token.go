package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"anxiety-quiz-bot/internal/config"
	transport "anxiety-quiz-bot/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewWSTokenCmd issues a websocket token for a web user.
func NewWSTokenCmd(configPath *string) *cobra.Command {
	var (
		userID int64
		name   string
	)
	cmd := &cobra.Command{
		Use:   "ws-token",
		Short: "Issue a websocket token for a web user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWSToken(*configPath, userID, name, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "web user id (positive)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runWSToken(configPath string, userID int64, name string, out io.Writer) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Server.WSSecret == "" {
		return errors.New("server.ws_secret is not configured")
	}

	token, err := transport.NewWebAuth(cfg.Server.WSSecret, webTokenTTL(cfg)).IssueToken(userID, name)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func webTokenTTL(cfg config.Config) time.Duration {
	return config.TTLDuration(cfg.Server.WSTokenTTL, 24*time.Hour)
}

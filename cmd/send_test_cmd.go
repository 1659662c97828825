package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/formrelay/internal/config"
)

// NewSendTestCmd returns the "send-test" subcommand, which relays a fixed
// message through the configured provider and exits.
func NewSendTestCmd(cfg *config.AppConfig) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a test notification with the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := a.relay.TestNotification(ctx); err != nil {
				return fmt.Errorf("test notification failed: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent via %s.\n", cfg.MailProvider)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall time limit")
	return cmd
}

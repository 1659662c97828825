package cmd

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/formrelay/internal/config"
)

// Assets is set by main() before Execute() is called.
// It holds the embedded static files served by the HTTP server.
var Assets fs.FS

// NewRootCmd builds the command tree around an already loaded configuration.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "formrelay",
		Short: "Contact form relay",
		Long: `formrelay accepts contact form submissions over HTTP, validates them and
relays each one as a single email to the site owner through SMTP,
Microsoft Graph, Resend or Gmail.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(NewServeCmd(cfg))
	rootCmd.AddCommand(NewSendTestCmd(cfg))
	rootCmd.AddCommand(NewConfigCmd(cfg))
	rootCmd.AddCommand(NewVersionCmd())
	return rootCmd
}

// Execute loads the configuration and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/formrelay/internal/api"
	"github.com/shaharia-lab/formrelay/internal/build"
	"github.com/shaharia-lab/formrelay/internal/config"
	"github.com/shaharia-lab/formrelay/internal/scheduler"
	"github.com/shaharia-lab/formrelay/internal/server"
)

// NewServeCmd returns the "serve" subcommand that starts the HTTP server.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int
	var quiet bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the contact relay HTTP server",
		Long: `Start the HTTP server that accepts contact form submissions on
POST /contact and POST /send-contact-email.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if !quiet {
				printBanner(os.Stdout, build.Version, fmt.Sprintf("http://localhost:%d", cfg.Port), cfg.MailProvider)
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print the startup banner")

	return cmd
}

func runServe(cfg *config.AppConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if a.cache != nil {
		sched, err := scheduler.New(scheduler.Config{
			Cache:         a.cache,
			PruneInterval: cfg.SecretCachePruneInterval,
			Logger:        a.logger,
			OnPrune:       a.metrics.Pruned,
		})
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				a.logger.Warn("stopping scheduler", "error", err)
			}
		}()
	}

	apiSrv := api.New(a.relay, a.logger)
	srv := server.New(apiSrv, server.Options{
		Port:           cfg.Port,
		AllowedOrigins: cfg.Origins(),
		Assets:         Assets,
		Metrics:        a.metrics.Handler(),
		WriteTimeout:   writeTimeout(cfg.DeliveryTimeout),
	}, a.logger)

	a.logger.Info("server ready", "port", cfg.Port, "origins", cfg.Origins())
	return srv.Run(ctx)
}

// authHeadroom covers token and secret lookups, which run before the
// delivery timeout starts.
const authHeadroom = 45 * time.Second

// writeTimeout keeps the response writable until a relay that used its whole
// delivery budget has finished.
func writeTimeout(delivery time.Duration) time.Duration {
	return max(server.DefaultWriteTimeout, delivery+authHeadroom)
}

// Package cmd defines and implements the CLI commands for the statute crawler.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/statute-crawler/internal/audit"
	"github.com/JakeFAU/statute-crawler/internal/config"
	"github.com/JakeFAU/statute-crawler/internal/server"
	"github.com/JakeFAU/statute-crawler/internal/statute"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

const defaultCloseTimeout = 30 * time.Second

// App defines the application surface that commands use.
type App interface {
	Run(ctx context.Context) error
	Close(ctx context.Context) error
	ShutdownTimeout() time.Duration
	RunScrape(ctx context.Context, jurisdiction string, generic bool) (statute.RunResult, error)
	Audit(ctx context.Context) (audit.Report, error)
	Jurisdictions() []string
}

// newApp is the application factory. Tests replace it with a fake.
var newApp = func(ctx context.Context, cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	app, err := server.Build(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("build application: %w", err)
	}
	return app, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "statute-crawler",
		Short: "A polite, robots-aware crawler for state criminal statutes.",
		Long: `statute-crawler fetches criminal code sections from official state
legislature sites, honoring robots.txt and a minimum request spacing, and
records every run as a scrape session.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return nil //nolint:nilerr // nothing was built
			}
			timeout := appInstance.ShutdownTimeout()
			if timeout <= 0 {
				timeout = defaultCloseTimeout
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), timeout)
			defer cancel()
			if err := appInstance.Close(ctx); err != nil {
				return fmt.Errorf("close application: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); env vars use the STATUTES_ prefix")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newJurisdictionsCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package cli implements the archaeoseeker command line: an interactive
// catalog browser plus admin maintenance commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"stealthcompany.com/archaeoseeker/internal/config"
	"stealthcompany.com/archaeoseeker/internal/orchestrator"
	"stealthcompany.com/archaeoseeker/pkg/zerolog_config"
)

type App struct {
	LogLevel   string
	PrettyJSON bool

	// loadConfig and openServices are replaced in tests
	loadConfig   func() config.Config
	openServices func(ctx context.Context, cfg config.Config) (*orchestrator.Services, error)

	cfg      config.Config
	services *orchestrator.Services
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{
		loadConfig: func() config.Config {
			config.LoadDotEnv()
			return config.Load()
		},
		openServices: orchestrator.NewServices,
	})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "archaeoseeker",
		Short:        "Browse and maintain the ArchaeoSeeker catalog",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Browse the catalog interactively
  archaeoseeker browse

  # Patch items stored before visibility existed
  archaeoseeker backfill

  # Hash a password for ADMIN_PASSWORD_HASH
  archaeoseeker passwd
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.cfg = app.loadConfig()
		zerolog_config.SetAppPrefix("archaeoseeker")
		return zerolog_config.StartupWithEnv(app.cfg.ElasticsearchURL, "logs", app.LogLevel)
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.services == nil {
			return nil
		}
		err := app.services.Close()
		app.services = nil
		return err
	}

	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("ARCHAEOSEEKER_LOG_LEVEL", "error"), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newBrowseCmd(app))
	cmd.AddCommand(newBackfillCmd(app))
	cmd.AddCommand(newIngestCmd(app))
	cmd.AddCommand(newPasswdCmd(app))

	return cmd
}

// servicesFor opens the configured backends once per command
func (app *App) servicesFor(ctx context.Context) (*orchestrator.Services, error) {
	if app.services != nil {
		return app.services, nil
	}
	sm, err := app.openServices(ctx, app.cfg)
	if err != nil {
		return nil, err
	}
	app.services = sm
	return sm, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

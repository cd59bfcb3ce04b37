package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"stealthcompany.com/archaeoseeker/internal/auth"
	"stealthcompany.com/archaeoseeker/internal/ingest"
)

func newBackfillCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Mark items without a visibility flag as visible",
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := app.servicesFor(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			items, patched, err := sm.Dashboard.Backfill(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"items":   len(items),
				"patched": patched,
			})
		},
	}
}

func newIngestCmd(app *App) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ingest <file-or-url>",
		Short: "Import items and requests from a JSON bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sm, err := app.servicesFor(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			client := ingest.NewClient(timeout, sm.Catalog, sm.Store)
			result, err := client.Ingest(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, result)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout when the bundle is a URL")
	return cmd
}

func newPasswdCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Read a password from stdin and print its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				if err != nil {
					return writeErr(cmd, fmt.Errorf("failed to read password: %w", err))
				}
				return writeErr(cmd, fmt.Errorf("empty password"))
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return writeErr(cmd, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

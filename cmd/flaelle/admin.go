package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flaelle/flaelle/cmd/flaelle/cli"
	"github.com/flaelle/flaelle/internal/app"
	"github.com/flaelle/flaelle/internal/auth"
	"github.com/flaelle/flaelle/internal/platform/db"
	"github.com/flaelle/flaelle/jobs"
	"github.com/flaelle/flaelle/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := app.NewLogger(cfg)
			pool, err := db.New(cmd.Context(), cfg.PGDSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			applied, err := db.Migrate(cmd.Context(), pool, migrations.Files)
			if err != nil {
				return err
			}
			logger.Info("migrations applied", slog.Any("versions", applied))
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash for ADMIN_PASSWORD_HASH (password read from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hash, err := hashFromReader(cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

func hashFromReader(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil {
		return "", err
	}
	password := strings.TrimRight(string(raw), "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return auth.HashPassword(password)
}

func newJobsCmd() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	jobsCmd.AddCommand(
		&cobra.Command{
			Use:       "trigger <job>",
			Short:     "Enqueue a job now",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{jobs.TaskIdempotencyCleanup},
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := app.LoadConfig()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				c, err := cli.NewJobsCLI(cfg.RedisAddr)
				if err != nil {
					return err
				}
				defer func() { _ = c.Close() }()
				info, err := c.Trigger(cmd.Context(), args[0], cfg.IdempotencyTTL)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s)\n", info.Type, info.ID)
				return err
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show default queue counters",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := app.LoadConfig()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				c, err := cli.NewJobsCLI(cfg.RedisAddr)
				if err != nil {
					return err
				}
				defer func() { _ = c.Close() }()
				stats, err := c.InspectQueue(cmd.Context())
				if err != nil {
					return err
				}
				return stats.Print(cmd.OutOrStdout())
			},
		},
	)
	return jobsCmd
}

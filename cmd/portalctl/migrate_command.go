package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := ctx.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
				return err
			}
			return printVersion(cmd, ctx)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := ctx.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.MigrateDown(cfg.Database.MigrationsPath); err != nil {
				return err
			}
			return printVersion(cmd, ctx)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "goto <version>",
		Short: "Migrate up or down to an exact version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			db, cfg, err := ctx.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.MigrateToVersion(cfg.Database.MigrationsPath, uint(version)); err != nil {
				return err
			}
			return printVersion(cmd, ctx)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd, ctx)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, ctx *commandContext) error {
	db, cfg, err := ctx.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := db.MigrationVersion(cfg.Database.MigrationsPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Version", "Dirty"},
		[][]string{{strconv.FormatUint(uint64(version), 10), strconv.FormatBool(dirty)}},
		[]columnAlignment{alignRight, alignLeft},
	))
	return nil
}

package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var migrationsFlag string

	ctx := newCommandContext(&migrationsFlag)

	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Operator tooling for the content review API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&migrationsFlag, "migrations", "", "Migrations directory (overrides MIGRATIONS_PATH)")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newPublishDueCommand(ctx))
	rootCmd.AddCommand(newResolveScheduleCommand())
	rootCmd.AddCommand(newVocabularyCommand())
	rootCmd.AddCommand(newGraphCommand())

	return rootCmd
}

package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/content-review-api/internal/database"
	"github.com/content-review-api/internal/notify"
	"github.com/content-review-api/internal/repository"
	"github.com/content-review-api/internal/service"
	"github.com/spf13/cobra"
)

func newPublishDueCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "publish-due",
		Short: "Publish every approved record whose scheduled time has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == "memory" {
				return fmt.Errorf("publish-due needs the postgres storage driver")
			}

			db, err := database.New(&cfg.Database, ctx.log)
			if err != nil {
				return err
			}
			defer db.Close()
			repos := repository.New(db)

			dispatcher := notify.NewManager(1, cfg.Notification.QueueSize, ctx.log, nil)
			dispatcher.Subscribe(notify.NewLogObserver(ctx.log))
			if cfg.Notification.StoreEvents {
				dispatcher.Subscribe(notify.NewStoreObserver(repos.Event))
			}
			if cfg.Notification.WebhookURL != "" {
				dispatcher.Subscribe(notify.NewWebhookObserver(cfg.Notification.WebhookURL, cfg.Notification.WebhookTimeout))
			}
			defer dispatcher.Shutdown()

			services := service.NewServices(repos, cfg, ctx.log, dispatcher, nil)
			summary, err := services.Publisher.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(cmd, summary, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func printSummary(cmd *cobra.Command, summary *service.PublishSummary, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Due", "Published", "Failed"},
		[][]string{{strconv.Itoa(summary.Due), strconv.Itoa(len(summary.Published)), strconv.Itoa(len(summary.Failed))}},
		[]columnAlignment{alignRight, alignRight, alignRight},
	))
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/workflow"
	"github.com/spf13/cobra"
)

var lifecycle = []models.Status{
	models.StatusDraft,
	models.StatusPendingReview,
	models.StatusApproved,
	models.StatusRejected,
	models.StatusPublished,
}

func newVocabularyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vocabulary",
		Short: "List the persisted status spelling of each kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0)
			for _, r := range models.Vocabulary() {
				rows = append(rows, []string{string(r.Kind), string(r.Status), r.Spelling})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Kind", "Status", "Stored as"}, rows, nil))
			return nil
		},
	}
}

func newGraphCommand() *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the transition graph with the roles allowed on each edge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"From", "Transition", "To", "Roles"},
				graphRows(kind),
				nil,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", string(models.KindBlogPost), "Content kind")
	return cmd
}

func graphRows(kind models.Kind) [][]string {
	roles := []models.Role{models.RoleAgency, models.RoleClient, models.RoleSystem}
	var rows [][]string
	for _, from := range lifecycle {
		for _, t := range workflow.Outgoing(kind, from) {
			to, _ := workflow.Target(kind, from, t)
			var allowed []string
			for _, role := range roles {
				for _, a := range workflow.AllowedFor(kind, from, role) {
					if a == t {
						allowed = append(allowed, string(role))
					}
				}
			}
			rows = append(rows, []string{spell(kind, from), string(t), spell(kind, to), strings.Join(allowed, ",")})
		}
	}
	return rows
}

func spell(kind models.Kind, status models.Status) string {
	s, err := models.Spelling(kind, status)
	if err != nil {
		return string(status)
	}
	return s
}

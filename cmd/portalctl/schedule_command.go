package main

import (
	"fmt"
	"time"

	"github.com/content-review-api/internal/scheduling"
	"github.com/spf13/cobra"
)

func newResolveScheduleCommand() *cobra.Command {
	var date, clock, tz string

	cmd := &cobra.Command{
		Use:   "resolve-schedule",
		Short: "Show the UTC instant a portal schedule entry resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := scheduling.Resolve(date, clock, tz)
			if err != nil {
				return err
			}
			zone := tz
			if zone == "" {
				zone = "UTC"
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Timezone", "Local", "UTC"},
				[][]string{{zone, scheduling.Display(at, tz), at.Format(time.RFC3339)}},
				nil,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD")
	cmd.Flags().StringVar(&clock, "time", "", "Time as HH:MM or HH:MM:SS")
	cmd.Flags().StringVar(&tz, "tz", "", "IANA timezone label (default UTC)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

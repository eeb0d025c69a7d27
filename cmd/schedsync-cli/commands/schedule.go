package commands

import (
	"context"
	"sort"
	"time"

	"schedsync-backend/lib/scrapers/bookwidget"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var flagDays int

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the live class schedule for a discovered site.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute*2)
		defer cancel()

		client, err := bookwidget.NewClient(bookwidget.ClientOptions{BaseUrl: flagBaseUrl})
		if err != nil {
			return err
		}

		from := time.Now()
		sessions, err := client.FetchSessions(ctx, flagSiteID, from, from.AddDate(0, 0, flagDays))
		if err != nil {
			return err
		}

		byDate := map[string][]bookwidget.SessionOccurrence{}
		for _, occ := range sessions {
			byDate[occ.Date] = append(byDate[occ.Date], occ)
		}
		dates := make([]string, 0, len(byDate))
		for date := range byDate {
			dates = append(dates, date)
		}
		sort.Strings(dates)

		t := newTable()
		t.AppendHeader(table.Row{"date", "time", "class", "instructor", "status", "spots"})
		for _, date := range dates {
			for _, occ := range byDate[date] {
				t.AppendRow(table.Row{
					date,
					occ.StartTime + "-" + occ.EndTime,
					occ.Name,
					occ.Instructor,
					occ.Status,
					occ.Remaining,
				})
			}
			t.AppendSeparator()
		}
		t.Render()
		return nil
	},
}

func init() {
	scheduleCmd.Flags().IntVar(&flagDays, "days", 7, "How many days ahead to fetch.")
	rootCmd.AddCommand(scheduleCmd)
}

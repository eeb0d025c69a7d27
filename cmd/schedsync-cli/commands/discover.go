package commands

import (
	"context"
	"fmt"
	"time"

	"schedsync-backend/lib/scrapers/bookwidget"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <widget page url>",
	Short: "Drive a headless browser over the widget page and report the discovered site identity.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute*2)
		defer cancel()

		result, err := bookwidget.Discover(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("site identity: %s\n\n", result.SiteID)

		t := newTable()
		t.AppendHeader(table.Row{"captured", "count"})
		settings := 0
		if result.Settings != nil {
			settings = 1
		}
		t.AppendRows([]table.Row{
			{"settings", settings},
			{"sessions", len(result.Sessions)},
			{"packages", len(result.Packages)},
		})
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

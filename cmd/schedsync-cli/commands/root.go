package commands

import (
	"fmt"
	"os"

	"schedsync-backend/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var flagBaseUrl string
var flagSiteID string
var flagDatabase string
var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "schedsync-cli",
	Short: "schedsync-cli drives discovery and sync for the scheduling widget integration.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseUrl, "base-url", "", "Override the vendor API base url.")
	rootCmd.PersistentFlags().StringVar(&flagSiteID, "site", "", "A previously discovered site identity.")
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "db", ".data/records.db", "Path to the record store sqlite database.")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging.")
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

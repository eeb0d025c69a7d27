package commands

import (
	"context"
	"database/sql"
	"time"

	"schedsync-backend/lib/recordstore"
	"schedsync-backend/lib/scrapers/bookwidget"
	"schedsync-backend/services/schedsync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var flagSkipPackages bool
var flagSkipClasses bool
var flagSkipBusiness bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the vendor catalog over the direct API and reconcile it into the record store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute*5)
		defer cancel()

		db, err := sql.Open("sqlite", flagDatabase)
		if err != nil {
			return err
		}
		defer db.Close()
		_, err = db.Exec(recordstore.Schema)
		if err != nil {
			return err
		}

		client, err := bookwidget.NewClient(bookwidget.ClientOptions{BaseUrl: flagBaseUrl})
		if err != nil {
			return err
		}

		service := schedsync.NewService(schedsync.ServiceOptions{
			SiteID: flagSiteID,
			Client: client,
			Store:  recordstore.NewSqliteStore(db),
		})

		result, err := service.Refresh(ctx, schedsync.SyncOptions{
			BusinessDetails: !flagSkipBusiness,
			Packages:        !flagSkipPackages,
			Classes:         !flagSkipClasses,
		})
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"entity", "created", "updated"})
		t.AppendRows([]table.Row{
			{"packages", result.PackagesCreated, result.PackagesUpdated},
			{"classes", result.ClassesCreated, result.ClassesUpdated},
		})
		t.AppendFooter(table.Row{"business details written", result.BusinessDetailsWritten, ""})
		t.Render()
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&flagSkipPackages, "skip-packages", false, "Leave package records untouched.")
	syncCmd.Flags().BoolVar(&flagSkipClasses, "skip-classes", false, "Leave class records untouched.")
	syncCmd.Flags().BoolVar(&flagSkipBusiness, "skip-business", false, "Leave the business details record untouched.")
	rootCmd.AddCommand(syncCmd)
}

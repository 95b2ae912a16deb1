package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"strava_sync/internal/auth"
	"strava_sync/internal/scheduler"
	"strava_sync/internal/service"
	"strava_sync/internal/source/strava"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Append Strava activities missing from the record store",
	Long: `Export fetches every activity older than the oldest one already in the
record store and appends it. An empty or missing store exports the whole
history.

Example usage:
  stravasync export --file activities.csv
  stravasync export --file activities.csv --interval 6h`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		file, _ := cmd.Flags().GetString("file")
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval == 0 {
			interval = cfg.Sync.Interval
		}

		a := &app{}
		defer func() { err = a.finish(ctx, err) }()

		store, recorder, err := a.activityStore(file)
		if err != nil {
			return err
		}
		pub, err := a.publisher()
		if err != nil {
			return err
		}
		client, err := a.stravaClient(ctx, auth.ScopeRead)
		if err != nil {
			return err
		}

		exportService := service.NewExportService(store, func(opts strava.ReaderOptions) service.ActivityReader {
			return strava.NewReader(client, opts, logger)
		}, pub, recorder, logger)

		if interval > 0 {
			return scheduler.NewScheduler(exportService, interval, cfg.Sync.RunTimeout, logger).Start(ctx)
		}

		stats, err := exportService.Export(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Appended %d activities\n", stats.Appended)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("file", "f", "", "csv file to append activities to (created if needed)")
	exportCmd.Flags().Duration("interval", 0, "run the export periodically with this interval")
	rootCmd.AddCommand(exportCmd)
}

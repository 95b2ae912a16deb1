package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"strava_sync/internal/auth"
	"strava_sync/internal/service"
	"strava_sync/internal/source/strava"
)

const dateLayout = "2006-01-02"

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Correct type, gear and trainer flag of uploaded activities",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()

		after, err := dateFlag(cmd, "after")
		if err != nil {
			return err
		}
		before, err := dateFlag(cmd, "before")
		if err != nil {
			return err
		}
		if !after.Before(before) {
			return errors.New("--after must be before --before")
		}

		a := &app{}
		defer func() { err = a.finish(ctx, err) }()

		client, err := a.stravaClient(ctx, auth.ScopeReadWrite)
		if err != nil {
			return err
		}

		fixService := service.NewFixService(func(opts strava.ReaderOptions) service.ActivityReader {
			return strava.NewReader(client, opts, logger)
		}, client, a.executor(), cfg.Upload.Gear, cfg.Fix, logger)

		stats, err := fixService.Fix(ctx, after, before)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d of %d activities\n", stats.Updated, stats.Scanned)
		return nil
	},
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	value, _ := cmd.Flags().GetString(name)
	t, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}

func init() {
	fixCmd.Flags().String("after", "2009-01-01", "fix activities started after this date")
	fixCmd.Flags().String("before", "2016-01-01", "fix activities started before this date")
	rootCmd.AddCommand(fixCmd)
}

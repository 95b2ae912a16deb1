package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"strava_sync/internal/auth"
	"strava_sync/internal/fitfile"
	"strava_sync/internal/service"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload activity files from a directory to Strava",
	Long: `Upload sends every .fit, .tcx and .gpx file (optionally gzipped) in the
directory to Strava, five at a time. Once Strava has processed a file the new
activity gets its type, gear and trainer flag from the file content and name.

One line per file is printed with the upload result.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		dir, _ := cmd.Flags().GetString("directory")

		a := &app{}
		defer func() { err = a.finish(ctx, err) }()

		paths, err := fitfile.ListFiles(dir)
		if err != nil {
			return err
		}
		pub, err := a.publisher()
		if err != nil {
			return err
		}
		client, err := a.stravaClient(ctx, auth.ScopeReadWrite)
		if err != nil {
			return err
		}

		var opts []service.UploadOption
		if pub != nil {
			opts = append(opts, service.WithPublisher(pub))
		}
		uploadService := service.NewUploadService(
			client,
			client,
			fitfile.NewDecoder(),
			a.executor(),
			cfg.Upload.Gear,
			cmd.OutOrStdout(),
			logger,
			opts...,
		)

		report, err := uploadService.UploadAll(ctx, paths)
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			logger.Warn("some files failed", "failed", report.Failed, "total", len(report.Outcomes))
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Uploaded %d of %d files\n", report.Succeeded, len(report.Outcomes))
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringP("directory", "d", "", "directory path of activity files")
	_ = uploadCmd.MarkFlagRequired("directory")
	rootCmd.AddCommand(uploadCmd)
}

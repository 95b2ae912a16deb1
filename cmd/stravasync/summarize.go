package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"strava_sync/internal/fitfile"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Write a csv summary of the FIT files in a directory",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		dir, _ := cmd.Flags().GetString("directory")
		csvFile, _ := cmd.Flags().GetString("csv-file")

		paths, err := fitfile.ListFiles(dir)
		if err != nil {
			return err
		}

		f, err := os.Create(csvFile)
		if err != nil {
			return fmt.Errorf("create csv file: %w", err)
		}
		defer func() { err = multierr.Append(err, f.Close()) }()

		return fitfile.WriteSummaryCSV(f, paths, fitfile.NewDecoder(), logger)
	},
}

func init() {
	summarizeCmd.Flags().StringP("directory", "d", "", "directory path of fit files")
	summarizeCmd.Flags().StringP("csv-file", "c", "", "path of output csv file")
	_ = summarizeCmd.MarkFlagRequired("directory")
	_ = summarizeCmd.MarkFlagRequired("csv-file")
	rootCmd.AddCommand(summarizeCmd)
}

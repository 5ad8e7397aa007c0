package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/paddy.report/internal/db"
	"github.com/banshee-data/paddy.report/internal/timeutil"
)

func openStore(path string) (*db.DB, *db.CalibrationRunStore, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return database, db.NewCalibrationRunStore(database.DB, timeutil.RealClock{}), nil
}

func newRunsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded calibration runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, store, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			runs, err := store.List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				for _, r := range runs {
					r.ResultJSON = nil
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				printf(cmd, "No calibration runs recorded in %s\n", dbPath)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tCREATED\tT\tECE BEFORE\tECE AFTER\tSAMPLES\tAPPLIED")
			for _, r := range runs {
				applied := "-"
				if r.AppliedAt != nil {
					applied = r.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.4f\t%.4f\t%d\t%s\n",
					r.RunID, r.CreatedAt.UTC().Format(time.RFC3339), r.Temperature,
					r.ECEBefore, r.ECEAfter, r.SampleCount, applied)
			}
			return tw.Flush()
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "paddy.db", "SQLite database recording calibration runs")
	cmd.Flags().IntVar(&limit, "limit", db.DefaultListLimit, "maximum runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "show RUN_ID|latest",
		Short: "Print one calibration run with its full result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, store, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			var run *db.CalibrationRun
			if args[0] == "latest" {
				run, err = store.Latest()
			} else {
				run, err = store.Get(args[0])
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		},
	})
	return cmd
}

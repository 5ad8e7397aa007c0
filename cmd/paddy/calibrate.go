package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/banshee-data/paddy.report/internal/calibration"
	"github.com/banshee-data/paddy.report/internal/config"
	"github.com/banshee-data/paddy.report/internal/dataset"
	"github.com/banshee-data/paddy.report/internal/db"
	"github.com/banshee-data/paddy.report/internal/monitoring"
	"github.com/banshee-data/paddy.report/internal/report"
	"github.com/banshee-data/paddy.report/internal/timeutil"
)

type calibrateOptions struct {
	data      string
	out       string
	dbPath    string
	reportDir string
	apply     bool
}

func newCalibrateCmd(root *rootOptions) *cobra.Command {
	o := &calibrateOptions{}
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Fit the softmax temperature on labeled validation outputs",
		Long: `Calibrate loads labeled raw outputs from --data (a folder per class, a .jsonl
file or a packed .msgpack batch), sweeps the temperature grid, refines the
best point and reports ECE before and after scaling.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalibrate(cmd, root, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.data, "data", "", "labeled samples: directory, .jsonl, .json or .msgpack")
	f.StringVar(&o.out, "out", "calibration_result.json", "result file (empty to skip)")
	f.StringVar(&o.dbPath, "db", "", "SQLite database recording calibration runs")
	f.StringVar(&o.reportDir, "report", "", "directory for PNG and HTML reports")
	f.BoolVar(&o.apply, "apply", false, "write the fitted temperature into the config file")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runCalibrate(cmd *cobra.Command, root *rootOptions, o *calibrateOptions) error {
	cfg, cfgPath, err := root.loadConfig()
	if err != nil {
		return err
	}
	if o.apply && cfgPath == "" {
		return errors.New("--apply needs a config file; pass --config")
	}
	labels, err := root.loadLabels(cfg)
	if err != nil {
		return err
	}
	samples, err := dataset.Load(o.data, labels)
	if err != nil {
		return err
	}

	res, err := calibration.New(cfg.CalibratorOptions()...).Fit(cmd.Context(), samples, labels.Len())
	if err != nil {
		return err
	}
	printResult(cmd, res)

	if o.out != "" {
		if err := calibration.WriteResultFile(o.out, res); err != nil {
			return err
		}
		printf(cmd, "Results saved to %s\n", o.out)
	}

	var (
		store *db.CalibrationRunStore
		run   *db.CalibrationRun
	)
	if o.dbPath != "" {
		database, err := db.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer database.Close()

		store = db.NewCalibrationRunStore(database.DB, timeutil.RealClock{})
		if run, err = db.NewCalibrationRun(res, o.data); err != nil {
			return err
		}
		if err := store.Insert(run); err != nil {
			return err
		}
		printf(cmd, "Recorded run %s\n", run.RunID)
	}

	if o.reportDir != "" {
		name := "calibration_" + res.CalibratedAt.UTC().Format("20060102T150405Z")
		if run != nil {
			name = "calibration_" + run.RunID
		}
		paths, err := report.WriteAll(o.reportDir, name, res)
		if err != nil {
			return err
		}
		for _, p := range paths {
			printf(cmd, "Report: %s\n", p)
		}
	}

	if !o.apply {
		printf(cmd, "\nTo apply, set temperature = %.3f in %s (or rerun with --apply)\n",
			res.RecommendedTemperature(), displayPath(cfgPath))
		return nil
	}
	if res.Worsened() {
		warnColor.Fprintf(cmd.ErrOrStderr(), "ECE got worse after scaling; not applying T=%.3f\n", res.Temperature)
		return nil
	}
	applied, err := config.ApplyTemperature(cfgPath, res.Temperature)
	if err != nil {
		return err
	}
	okColor.Fprintf(cmd.OutOrStdout(), "Applied temperature %.3f to %s\n", applied, cfgPath)
	if store != nil {
		if err := store.MarkApplied(run.RunID, cfgPath); err != nil {
			return err
		}
	}
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return config.DefaultConfigPath
	}
	return p
}

func printResult(cmd *cobra.Command, res calibration.Result) {
	printf(cmd, "Samples:      %d across %d classes\n", res.SampleCount, res.LabelCount)
	printf(cmd, "Temperature:  %.4f (grid %.4f, refiner %s, refined=%t)\n",
		res.Temperature, res.GridTemperature, res.Refiner, res.Refined)
	printf(cmd, "NLL:          %.4f -> %.4f\n", res.NLLBefore, res.NLLAfter)
	printf(cmd, "ECE:          %.4f -> %.4f (improvement %.4f)\n", res.ECEBefore, res.ECEAfter, res.Improvement())
	if res.Worsened() {
		warnColor.Fprintln(cmd.ErrOrStderr(), "Warning: ECE got worse. Check the validation data.")
	}
	monitoring.Debugf("[Calibrator] fit took %s", res.Duration)
}

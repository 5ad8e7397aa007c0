// Command paddy decides whether rice-disease classifier outputs are
// confident enough to report and fits the softmax temperature that keeps
// those decisions calibrated.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/banshee-data/paddy.report/internal/config"
	"github.com/banshee-data/paddy.report/internal/diagnosis"
	"github.com/banshee-data/paddy.report/internal/monitoring"
	"github.com/banshee-data/paddy.report/internal/version"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	okColor   = color.New(color.FgGreen)
)

type rootOptions struct {
	configPath string
	labelsPath string
	debug      bool
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "paddy",
		Short:         "Rice disease diagnosis decisions and temperature calibration",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			monitoring.SetDebug(opts.debug)
			if opts.quiet {
				monitoring.SetLogger(nil)
			} else {
				monitoring.SetLogger(log.Printf)
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "diagnosis config (.json or .toml); "+config.DefaultConfigPath+" is used when present")
	pf.StringVar(&opts.labelsPath, "labels", "", "labels file, one class per line (default: labels_path from the config)")
	pf.BoolVar(&opts.debug, "debug", false, "log per-decision debug lines")
	pf.BoolVar(&opts.quiet, "quiet", false, "suppress log output")

	cmd.AddCommand(
		newDiagnoseCmd(opts),
		newCalibrateCmd(opts),
		newRunsCmd(),
		newInitSamplesCmd(opts),
		newPackCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig returns the active config and the file it came from. The path
// is empty when built-in defaults are used.
func (o *rootOptions) loadConfig() (*config.DiagnosisConfig, string, error) {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			monitoring.Debugf("[Config] %s not found, using built-in defaults", config.DefaultConfigPath)
			return config.DefaultConfig(), "", nil
		}
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func (o *rootOptions) loadLabels(cfg *config.DiagnosisConfig) (diagnosis.LabelSet, error) {
	path := o.labelsPath
	if path == "" {
		path = cfg.GetLabelsPath()
	}
	return config.LoadLabels(path)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			warnColor.Fprintln(os.Stderr, "interrupted")
		} else {
			errColor.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printf(cmd *cobra.Command, format string, a ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}

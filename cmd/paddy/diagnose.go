package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/paddy.report/internal/dataset"
	"github.com/banshee-data/paddy.report/internal/diagnosis"
	"github.com/banshee-data/paddy.report/internal/security"
)

// parseCSVFloatSlice parses a comma-separated list of floats.
func parseCSVFloatSlice(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func newDiagnoseCmd(root *rootOptions) *cobra.Command {
	var (
		input   string
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "diagnose [v1,v2,...]",
		Short: "Decide whether one classifier output is a confident diagnosis",
		Long: `Diagnose reads one raw classifier output, either as a comma-separated
argument or from --input (.json or .msgpack), and prints the decision as JSON.
Outputs starting with a negative value must follow "--".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (input == "") == (len(args) == 0) {
				return errors.New("pass either a comma-separated output or --input")
			}

			cfg, _, err := root.loadConfig()
			if err != nil {
				return err
			}
			labels, err := root.loadLabels(cfg)
			if err != nil {
				return err
			}

			var raw diagnosis.RawOutput
			if input != "" {
				path, err := security.CheckInputFile(input, []string{".json", ".msgpack"}, security.MaxInputFileSize)
				if err != nil {
					return err
				}
				if raw, err = dataset.ReadRawOutput(path); err != nil {
					return err
				}
			} else {
				if raw, err = parseCSVFloatSlice(args[0]); err != nil {
					return err
				}
			}

			d := diagnosis.NewDiagnoser(labels, cfg.Params(), cfg.Engine())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if explain {
				ex, err := d.Explain(raw)
				if err != nil {
					return err
				}
				return enc.Encode(ex)
			}
			out, err := d.Diagnose(raw)
			if err != nil {
				return err
			}
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "file holding the raw output")
	cmd.Flags().BoolVar(&explain, "explain", false, "print every intermediate value of the decision")
	return cmd
}

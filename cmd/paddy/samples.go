package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/paddy.report/internal/dataset"
)

func newInitSamplesCmd(root *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init-samples",
		Short: "Create an empty folder-per-class layout for validation outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.loadConfig()
			if err != nil {
				return err
			}
			labels, err := root.loadLabels(cfg)
			if err != nil {
				return err
			}
			if err := dataset.CreateLayout(dir, labels); err != nil {
				return err
			}
			printf(cmd, "Created %d class folders in %s\n", labels.Len(), dir)
			printf(cmd, "Add labeled outputs, then run: paddy calibrate --data %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "ml/val_samples", "layout root")
	return cmd
}

func newPackCmd(root *rootOptions) *cobra.Command {
	var data, out string
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack labeled outputs into a single msgpack batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.loadConfig()
			if err != nil {
				return err
			}
			labels, err := root.loadLabels(cfg)
			if err != nil {
				return err
			}
			samples, err := dataset.Load(data, labels)
			if err != nil {
				return err
			}
			if err := dataset.SaveBatch(out, labels, samples); err != nil {
				return err
			}
			printf(cmd, "Packed %d samples into %s\n", len(samples), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "labeled samples: directory or .jsonl")
	cmd.Flags().StringVar(&out, "out", "batch.msgpack", "output batch")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

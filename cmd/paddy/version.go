package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/paddy.report/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printf(cmd, "%s\n", version.String())
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/workbot/core/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Summary("workbot"))
		},
	}
}

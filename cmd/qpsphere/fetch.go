package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RI-imaging/qpsphere/pkg/models/bhfield"
)

// NewFetchCmd creates the fetch command.
func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-bhfield",
		Short: "Download the BHFIELD binaries for the Mie models",
		Long: `Fetch downloads the BHFIELD program used by the mie and mie-avg
models and verifies its checksum. The binaries are stored in the user
cache directory and found automatically afterwards.

Set the ` + bhfield.EnvBinary + ` environment variable to use a custom
BHFIELD build instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Fetching BHFIELD binaries to %s\n", bhfield.CacheDir())
			paths, err := bhfield.FetchBinaries()
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for qpsphere.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qpsphere",
		Short: "Sphere analysis for quantitative phase imaging",
		Long: `qpsphere determines the refractive index and radius of spherical
phase objects (cells, beads, droplets) from quantitative phase images.

A phase image is fitted either via its detected contour (fast) or via a
full 2D fit against a light-scattering model (accurate). Phase images
are read from and written to CSV files, one image row per line.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML configuration file")

	// Add subcommands
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewSimulateCmd())
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RI-imaging/qpsphere/pkg/analysis"
	"github.com/RI-imaging/qpsphere/pkg/config"
	"github.com/RI-imaging/qpsphere/pkg/edgefit"
	"github.com/RI-imaging/qpsphere/pkg/imagefit"
	"github.com/RI-imaging/qpsphere/pkg/models"
	"github.com/RI-imaging/qpsphere/pkg/models/bhfield"
	"github.com/RI-imaging/qpsphere/pkg/qpimage"
	"github.com/RI-imaging/qpsphere/pkg/trace"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [phase-image.csv]",
		Short: "Determine refractive index and radius of a sphere",
		Long: `Analyze fits a sphere to a quantitative phase image and reports its
refractive index and radius.

The edge method detects the sphere contour and inverts the projection
model analytically; the image method refines the edge result with a
full 2D fit against the chosen light-scattering model.

Examples:
  # fast contour-based analysis
  qpsphere analyze --radius 5e-6 phase.csv

  # accurate 2D fit with the Rytov model, tracing every iteration
  qpsphere analyze --radius 5e-6 --method image --model rytov \
      --trace fit.sqlite phase.csv

  # write the background mask for downstream correction
  qpsphere analyze --radius 5e-6 --mask bg.csv phase.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().Float64("radius", 0, "Approximate sphere radius [m] (required)")
	cmd.Flags().String("method", "edge", "Fitting method: edge or image")
	cmd.Flags().String("model", "projection", "Light-scattering model for the image method")
	cmd.Flags().Float64("medium-index", 0, "Refractive index of the medium (overrides config)")
	cmd.Flags().Float64("wavelength", 0, "Vacuum wavelength [m] (overrides config)")
	cmd.Flags().Float64("pixel-size", 0, "Pixel size [m] (overrides config)")
	cmd.Flags().String("trace", "", "Record every fit iteration to this SQLite file")
	cmd.Flags().String("mask", "", "Write the background mask (0/1 CSV) to this file")
	cmd.Flags().Float64("mask-clearance", 1.1, "Radial clearance factor of the background mask")
	cmd.Flags().String("plot", "", "Render the fitted model image to this file (png, pdf, svg)")
	_ = cmd.MarkFlagRequired("radius")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if cfg.BHField.Binary != "" {
		os.Setenv(bhfield.EnvBinary, cfg.BHField.Binary)
	}

	methodName, _ := cmd.Flags().GetString("method")
	method, err := analysis.ParseMethod(methodName)
	if err != nil {
		return err
	}
	modelName, _ := cmd.Flags().GetString("model")
	kind, err := models.ParseKind(modelName)
	if err != nil {
		return err
	}

	pha, nx, ny, err := loadPhaseCSV(args[0])
	if err != nil {
		return err
	}
	meta := qpimage.Meta{
		PixelSize:   cfg.Imaging.PixelSize,
		Wavelength:  cfg.Imaging.Wavelength,
		MediumIndex: cfg.Imaging.MediumIndex,
	}
	if v, _ := cmd.Flags().GetFloat64("pixel-size"); v > 0 {
		meta.PixelSize = v
	}
	if v, _ := cmd.Flags().GetFloat64("wavelength"); v > 0 {
		meta.Wavelength = v
	}
	if v, _ := cmd.Flags().GetFloat64("medium-index"); v > 0 {
		meta.MediumIndex = v
	}
	qpi, err := qpimage.NewFromPhase(pha, nx, ny, meta)
	if err != nil {
		return err
	}

	opts := analysis.Options{
		Edge: edgefit.ContourOptions{
			MultCoarse: cfg.Edge.MultCoarse,
			MultFine:   cfg.Edge.MultFine,
			ClipRMin:   cfg.Edge.ClipRMin,
			ClipRMax:   cfg.Edge.ClipRMax,
			MaxIter:    cfg.Edge.MaxIter,
		},
		Image: imagefit.Options{
			NRel:    cfg.ImageFit.NRel,
			RRel:    cfg.ImageFit.RRel,
			CRel:    cfg.ImageFit.CRel,
			StopDn:  cfg.ImageFit.StopDn,
			StopDr:  cfg.ImageFit.StopDr,
			StopDc:  cfg.ImageFit.StopDc,
			MinIter: cfg.ImageFit.MinIter,
			MaxIter: cfg.ImageFit.MaxIter,
		},
	}

	tracePath, _ := cmd.Flags().GetString("trace")
	if tracePath == "" {
		tracePath = cfg.ImageFit.TracePath
	}
	if tracePath != "" {
		sink, err := trace.NewSQLiteSink(tracePath)
		if err != nil {
			return err
		}
		defer sink.Close()
		opts.Image.Trace = sink
	}

	r0, _ := cmd.Flags().GetFloat64("radius")
	start := time.Now()
	res, err := analysis.Analyze(qpi, r0, method, kind, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Analysis completed in %.2f seconds (%s method, %s model)\n",
		time.Since(start).Seconds(), method, kind)
	fmt.Fprintf(cmd.OutOrStdout(), "  refractive index: %.5f\n", res.Index)
	fmt.Fprintf(cmd.OutOrStdout(), "  radius:           %.4e m\n", res.Radius)
	fmt.Fprintf(cmd.OutOrStdout(), "  center:           (%.2f, %.2f) px\n", res.CenterX, res.CenterY)
	if method == analysis.MethodImage {
		fmt.Fprintf(cmd.OutOrStdout(), "  phase offset:     %.5f rad\n", res.PhaOffset)
		fmt.Fprintf(cmd.OutOrStdout(), "  iterations:       %d\n", res.Iterations)
		if !res.Converged {
			fmt.Fprintf(cmd.OutOrStdout(), "  warning: fit did not converge\n")
		}
	}

	if maskPath, _ := cmd.Flags().GetString("mask"); maskPath != "" {
		clearance, _ := cmd.Flags().GetFloat64("mask-clearance")
		mask, err := analysis.BackgroundMaskFromSim(res.Sim, clearance)
		if err != nil {
			return err
		}
		if err := saveMaskCSV(maskPath, mask, res.Sim.Nx, res.Sim.Ny); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Background mask saved to: %s\n", maskPath)
	}
	if plotPath, _ := cmd.Flags().GetString("plot"); plotPath != "" {
		title := fmt.Sprintf("fitted %s phase [rad]", kind)
		if err := savePhasePlot(plotPath, title, res.Sim.Pha, res.Sim.Nx, res.Sim.Ny); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Plot saved to: %s\n", plotPath)
	}
	return nil
}

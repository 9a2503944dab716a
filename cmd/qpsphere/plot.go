package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// phaseGrid adapts a row-major phase image to the plotter grid
// interface.
type phaseGrid struct {
	data   []float64
	nx, ny int
}

func (g phaseGrid) Dims() (c, r int)   { return g.nx, g.ny }
func (g phaseGrid) Z(c, r int) float64 { return g.data[c*g.ny+r] }
func (g phaseGrid) X(c int) float64    { return float64(c) }
func (g phaseGrid) Y(r int) float64    { return float64(r) }

// savePhasePlot renders a phase image as a heat map image file; the
// output format follows the file extension (png, pdf, svg).
func savePhasePlot(path, title string, data []float64, nx, ny int) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x [px]"
	p.Y.Label.Text = "y [px]"

	hm := plotter.NewHeatMap(phaseGrid{data: data, nx: nx, ny: ny}, palette.Heat(256, 1))
	p.Add(hm)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %v", err)
	}
	return nil
}

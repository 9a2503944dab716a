package analysis

import (
	"fmt"

	"github.com/RI-imaging/qpsphere/pkg/models"
	"github.com/RI-imaging/qpsphere/pkg/qpimage"
)

// BackgroundMaskFromSim computes the background mask of a simulated
// sphere image: true for pixels outside the sphere, false for pixels
// covered by it. radialClearance scales the sphere radius; a value of
// 1.1 keeps a safety margin around the fitted circle. The simulation
// metadata (fitted center and radius) must be attached to sim.
func BackgroundMaskFromSim(sim *qpimage.QPImage, radialClearance float64) ([]bool, error) {
	if sim.Sim == nil {
		return nil, fmt.Errorf("failed to compute background mask: no simulation metadata attached")
	}
	if sim.Meta.PixelSize <= 0 {
		return nil, fmt.Errorf("failed to compute background mask: pixel size not set")
	}
	cx := sim.Sim.CenterX
	cy := sim.Sim.CenterY
	rpx := sim.Sim.Radius / sim.Meta.PixelSize * radialClearance
	mask := make([]bool, sim.Nx*sim.Ny)
	for x := 0; x < sim.Nx; x++ {
		for y := 0; y < sim.Ny; y++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			mask[x*sim.Ny+y] = dx*dx+dy*dy > rpx*rpx
		}
	}
	return mask, nil
}

// BackgroundMaskFor fits a sphere to the phase image and returns the
// background mask derived from the fit. The fitting arguments match
// Analyze.
func BackgroundMaskFor(qpi *qpimage.QPImage, r0 float64, method Method, kind models.Kind, opts Options, radialClearance float64) ([]bool, error) {
	res, err := Analyze(qpi, r0, method, kind, opts)
	if err != nil {
		return nil, err
	}
	return BackgroundMaskFromSim(res.Sim, radialClearance)
}

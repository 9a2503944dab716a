// Package fft2 provides 2D complex Fourier transforms and frequency
// bookkeeping for the wave-propagation code. Transforms are built on
// gonum's complex FFT, applied row-wise and then column-wise.
package fft2

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT2 computes the 2D discrete Fourier transform of a row-major
// complex grid with nx rows and ny columns. The input is not modified.
func FFT2(data []complex128, nx, ny int) []complex128 {
	out := make([]complex128, len(data))
	copy(out, data)

	rowFFT := fourier.NewCmplxFFT(ny)
	row := make([]complex128, ny)
	for i := 0; i < nx; i++ {
		copy(row, out[i*ny:(i+1)*ny])
		rowFFT.Coefficients(out[i*ny:(i+1)*ny], row)
	}

	colFFT := fourier.NewCmplxFFT(nx)
	col := make([]complex128, nx)
	colOut := make([]complex128, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			col[i] = out[i*ny+j]
		}
		colFFT.Coefficients(colOut, col)
		for i := 0; i < nx; i++ {
			out[i*ny+j] = colOut[i]
		}
	}
	return out
}

// IFFT2 computes the normalized 2D inverse discrete Fourier transform,
// so that IFFT2(FFT2(x)) == x up to round-off.
func IFFT2(data []complex128, nx, ny int) []complex128 {
	out := make([]complex128, len(data))
	copy(out, data)

	rowFFT := fourier.NewCmplxFFT(ny)
	row := make([]complex128, ny)
	for i := 0; i < nx; i++ {
		copy(row, out[i*ny:(i+1)*ny])
		rowFFT.Sequence(out[i*ny:(i+1)*ny], row)
	}

	colFFT := fourier.NewCmplxFFT(nx)
	col := make([]complex128, nx)
	colOut := make([]complex128, nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			col[i] = out[i*ny+j]
		}
		colFFT.Sequence(colOut, col)
		for i := 0; i < nx; i++ {
			out[i*ny+j] = colOut[i]
		}
	}

	norm := complex(1/float64(nx*ny), 0)
	for i := range out {
		out[i] *= norm
	}
	return out
}

// Freq returns the discrete Fourier transform sample frequencies for a
// grid of n points with unit sample spacing: 0, 1/n, ..., followed by
// the negative frequencies.
func Freq(n int) []float64 {
	f := make([]float64, n)
	half := (n + 1) / 2
	for i := 0; i < half; i++ {
		f[i] = float64(i) / float64(n)
	}
	for i := half; i < n; i++ {
		f[i] = float64(i-n) / float64(n)
	}
	return f
}

// FreqCentered returns Freq(n) reordered so that frequencies increase
// monotonically with the zero frequency at index n/2.
func FreqCentered(n int) []float64 {
	return roll(Freq(n), n/2)
}

// Shift2D applies a 2D FFT shift to a row-major grid, moving the zero
// frequency component to the grid center. With inverse set, the
// operation is undone (relevant for odd grid sizes).
func Shift2D(data []complex128, nx, ny int, inverse bool) []complex128 {
	kx, ky := nx/2, ny/2
	if inverse {
		kx, ky = nx-kx, ny-ky
	}
	out := make([]complex128, len(data))
	for i := 0; i < nx; i++ {
		ii := (i + kx) % nx
		for j := 0; j < ny; j++ {
			jj := (j + ky) % ny
			out[ii*ny+jj] = data[i*ny+j]
		}
	}
	return out
}

// roll shifts a float slice cyclically to the right by k positions.
func roll(v []float64, k int) []float64 {
	n := len(v)
	out := make([]float64, n)
	for i := range v {
		out[(i+k)%n] = v[i]
	}
	return out
}

// Package bhfield wraps the external BHFIELD program, which evaluates
// the electric field around a dielectric sphere from the full Mie
// series. Every evaluation is an independent process invocation in a
// fresh temporary directory; the package parses the field table the
// program writes and surfaces any failure as a typed error with the
// command context attached. No state is shared between invocations.
package bhfield

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Request describes one BHFIELD evaluation. Lateral sizes and offsets
// are given in micrometers, the wavelength in nanometers, matching the
// program's command line.
type Request struct {
	// RadiusUm is the sphere radius [um].
	RadiusUm float64

	// SizeXUm and SizeYUm give the lateral extent of the sampled
	// area [um].
	SizeXUm, SizeYUm float64

	// GridX and GridY are the number of lateral grid points.
	GridX, GridY int

	// MediumIndex and SphereIndex are the refractive indices.
	MediumIndex, SphereIndex float64

	// PositionUm is the axial measurement position [um].
	PositionUm float64

	// WavelengthNm is the vacuum wavelength [nm].
	WavelengthNm float64

	// OffsetXUm and OffsetYUm shift the sphere center laterally [um].
	OffsetXUm, OffsetYUm float64
}

// ExecError reports a failed BHFIELD invocation with enough context to
// diagnose it: the command line, the captured output, and the
// underlying error (including a missing binary).
type ExecError struct {
	Cmd    string
	Output string
	Err    error
}

func (e *ExecError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("bhfield: %v (cmd: %s, output: %s)", e.Err, e.Cmd, e.Output)
	}
	return fmt.Sprintf("bhfield: %v (cmd: %s)", e.Err, e.Cmd)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Runner invokes a BHFIELD binary. The zero value resolves the binary
// lazily on first use, preferring arbitrary precision.
type Runner struct {
	// Path is the binary location. Empty means resolve via
	// LocateBinary on first use.
	Path string

	// ARP selects the arbitrary-precision binary when resolving.
	ARP bool

	// MPDigit is the arbitrary-precision digit count. Zero means 16.
	MPDigit int

	// Timeout bounds one invocation. Zero means 10 minutes.
	Timeout time.Duration
}

// Default returns a runner that uses the arbitrary-precision binary
// found on this system at call time.
func Default() *Runner {
	return &Runner{ARP: true}
}

// fieldFile is the output table holding the complex E-field snapshots.
const fieldFile = "V_0Ereim.dat"

// Solve runs one BHFIELD evaluation and returns the complex Ex field
// on the requested grid, indexed x*GridY + y.
func (r *Runner) Solve(req Request) ([]complex128, error) {
	path := r.Path
	if path == "" {
		var err error
		path, err = LocateBinary(r.ARP)
		if err != nil {
			return nil, err
		}
	}

	// a 1-point axis must span zero width
	sizeX, sizeY := req.SizeXUm, req.SizeYUm
	if req.GridX == 1 {
		sizeX = 0
	}
	if req.GridY == 1 {
		sizeY = 0
	}

	args := make([]string, 0, 20)
	if r.ARP {
		mp := r.MPDigit
		if mp == 0 {
			mp = 16
		}
		args = append(args, strconv.Itoa(mp))
	}
	wlUm := req.WavelengthNm / 1000
	args = append(args,
		fmtF(wlUm), fmtF(req.RadiusUm), fmtF(req.RadiusUm),
		strconv.Itoa(req.GridX), fmtF(-sizeX/2-req.OffsetXUm), fmtF(sizeX/2-req.OffsetXUm),
		strconv.Itoa(req.GridY), fmtF(-sizeY/2-req.OffsetYUm), fmtF(sizeY/2-req.OffsetYUm),
		"1", fmtF(req.PositionUm), fmtF(req.PositionUm),
		"other", "0",
		fmtF(req.MediumIndex), fmtF(req.SphereIndex), "0",
		fmtF(req.MediumIndex), "0",
	)

	wdir, err := os.MkdirTemp("", "qpsphere_bhfield_")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer os.RemoveAll(wdir)

	timeout := r.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = wdir
	out, err := cmd.CombinedOutput()
	cmdline := path + " " + strings.Join(args, " ")
	if err != nil {
		return nil, &ExecError{Cmd: cmdline, Output: string(out), Err: err}
	}

	// Check the field table to make sure the run produced usable
	// output despite a clean exit status.
	ff := filepath.Join(wdir, fieldFile)
	st, err := os.Stat(ff)
	if err != nil || st.Size() < 130 {
		return nil, &ExecError{Cmd: cmdline, Output: string(out),
			Err: fmt.Errorf("output %s missing or too small", fieldFile)}
	}

	field, err := ParseFieldTable(ff, req.GridX, req.GridY)
	if err != nil {
		return nil, &ExecError{Cmd: cmdline, Err: err}
	}
	return field, nil
}

// ParseFieldTable reads a V_0Ereim.dat field table and returns the
// complex Ex component on an nx x ny grid indexed x*ny + y. The table
// lists one grid point per line with the x index varying fastest;
// columns four and seven hold the real and imaginary snapshots of Ex.
func ParseFieldTable(path string, nx, ny int) ([]complex128, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field table: %w", err)
	}
	field := make([]complex128, nx*ny)
	row := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Fields(line)
		if len(cols) < 9 {
			return nil, fmt.Errorf("field table row %d has %d columns, expected 9",
				row, len(cols))
		}
		re, err1 := strconv.ParseFloat(cols[3], 64)
		im, err2 := strconv.ParseFloat(cols[6], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("field table row %d is not numeric", row)
		}
		if row >= nx*ny {
			return nil, fmt.Errorf("field table has more than %d rows", nx*ny)
		}
		// file order: x varies fastest
		x := row % nx
		y := row / nx
		field[x*ny+y] = complex(re, im)
		row++
	}
	if row != nx*ny {
		return nil, fmt.Errorf("field table has %d rows, expected %d", row, nx*ny)
	}
	for _, v := range field {
		if math.IsNaN(real(v)) || math.IsNaN(imag(v)) {
			return nil, fmt.Errorf("field table contains NaN values")
		}
	}
	return field, nil
}

func fmtF(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// loadPhaseCSV reads a phase image from a CSV file. Each line holds one
// image row; the returned slice is row-major with index x*ny+y.
func loadPhaseCSV(path string) (data []float64, nx, ny int, err error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open phase image: %v", err)
	}
	defer fd.Close()

	records, err := csv.NewReader(fd).ReadAll()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to parse phase image %s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, 0, 0, fmt.Errorf("failed to parse phase image %s: no rows", path)
	}
	nx = len(records)
	ny = len(records[0])
	data = make([]float64, nx*ny)
	for x, row := range records {
		if len(row) != ny {
			return nil, 0, 0, fmt.Errorf("failed to parse phase image %s: row %d has %d columns, expected %d",
				path, x, len(row), ny)
		}
		for y, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, 0, 0, fmt.Errorf("failed to parse phase image %s at (%d, %d): %v",
					path, x, y, err)
			}
			data[x*ny+y] = v
		}
	}
	return data, nx, ny, nil
}

// savePhaseCSV writes a row-major phase image to a CSV file.
func savePhaseCSV(path string, data []float64, nx, ny int) error {
	fd, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %v", err)
	}
	defer fd.Close()

	w := csv.NewWriter(fd)
	row := make([]string, ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			row[y] = strconv.FormatFloat(data[x*ny+y], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write output file: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write output file: %v", err)
	}
	return nil
}

// saveMaskCSV writes a row-major boolean mask as 0/1 values.
func saveMaskCSV(path string, mask []bool, nx, ny int) error {
	data := make([]float64, len(mask))
	for i, on := range mask {
		if on {
			data[i] = 1
		}
	}
	return savePhaseCSV(path, data, nx, ny)
}

// Package main provides the entry point for the qpsphere CLI.
//
// qpsphere determines the refractive index and radius of spherical
// phase objects, such as cells or microgel beads, from quantitative
// phase images.
//
// Usage:
//
//	qpsphere analyze --radius 5e-6 phase.csv
//	qpsphere simulate --model rytov --radius 5e-6 --index 1.36
//
// See --help for all available options.
package main

// main is the entry point for qpsphere.
func main() {
	Execute()
}

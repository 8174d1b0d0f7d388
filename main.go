// Package main provides the entry point for rvsim.
// rvsim is an RV64IMAC instruction-set simulator with a memory-mapped UART.
//
// For the full CLI, use: go run ./cmd/rvsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvsim - RV64IMAC Instruction-Set Simulator")
	fmt.Println("")
	fmt.Println("Usage: rvsim [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to machine configuration (.json or .star)")
	fmt.Println("  -boot      Boot image loaded at the boot base")
	fmt.Println("  -program   Program image loaded at the RAM base")
	fmt.Println("  -timing    Path to timing configuration JSON file")
	fmt.Println("  -l1d       Model an L1 data cache")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvsim' instead.")
	}
}

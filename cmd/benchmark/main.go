// Command benchmark runs the rvsim microbenchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags] [image ...]
//
// Flags:
//
//	-csv        Output results in CSV format (default: human-readable)
//	-json       Output results as a JSON report
//	-no-dcache  Disable data cache simulation
//	-no-bpred   Charge every taken branch the redirect penalty
//	-timing     Path to a timing configuration JSON file
//	-core       Run only the core subset
//
// Extra arguments are flat binaries or RISC-V ELF files run after the
// built-in programs.
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sarchlab/rvsim/benchmarks"
	"github.com/sarchlab/rvsim/timing/latency"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	noDCache := flag.Bool("no-dcache", false, "Disable data cache simulation")
	noBPred := flag.Bool("no-bpred", false, "Disable the branch predictor")
	timingPath := flag.String("timing", "", "Path to timing configuration JSON file")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	flag.Parse()

	// Configure harness
	config := benchmarks.DefaultConfig()
	config.EnableDCache = !*noDCache
	config.EnableBranchPredictor = !*noBPred
	config.Output = os.Stdout
	if *timingPath != "" {
		timing, err := latency.LoadConfig(*timingPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
		config.Timing = timing
	}

	// Create harness and add benchmarks
	harness := benchmarks.NewHarness(config)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	for _, path := range flag.Args() {
		name := filepath.Base(path)
		bench, err := benchmarks.BenchmarkFromImage(name, "external image "+path, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", path, err)
			os.Exit(1)
		}
		harness.AddBenchmark(bench)
	}

	// Print configuration
	if !*csvOutput && !*jsonOutput {
		fmt.Println("rvsim Timing Benchmark Harness")
		fmt.Println("==============================")
		fmt.Printf("D-Cache: %v\n", config.EnableDCache)
		fmt.Printf("Branch predictor: %v\n", config.EnableBranchPredictor)
		fmt.Println("")
	}

	// Run benchmarks
	results := harness.RunAll()

	// Output results
	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	if err := harness.Check(results); err != nil {
		fmt.Fprintf(os.Stderr, "Benchmark check failed:\n%v\n", err)
		os.Exit(1)
	}
}

// Package main provides a profiling wrapper for rvsim to identify
// performance bottlenecks in the instruction loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/machine"
)

var (
	configPath  = flag.String("config", "", "Path to machine configuration (.json or .star)")
	mode        = flag.String("mode", "cpu", "Profile kind: cpu, mem, block, mutex or trace")
	profileDir  = flag.String("dir", ".", "Directory to write the profile to")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 100_000_000, "max instructions to execute (0 = unlimited)")
	dataCache   = flag.Bool("l1d", false, "Model an L1 data cache in front of RAM")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 && *configPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <boot-image>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	kind, err := profileMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	m, err := machine.New(config,
		machine.WithOutput(io.Discard),
		machine.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating machine: %v\n", err)
		os.Exit(1)
	}
	if err := m.Boot(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading images: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	p := profile.Start(kind, profile.ProfilePath(*profileDir), profile.NoShutdownHook, profile.Quiet)
	start := time.Now()
	runErr := m.Run(ctx)
	elapsed := time.Since(start)
	p.Stop()

	stats := m.Stats()
	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Instructions executed: %d\n", stats.Instructions)
	fmt.Printf("Estimated cycles: %d\n", stats.Cycles)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if stats.Instructions > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(stats.Instructions)/elapsed.Seconds())
	}
	if runErr != nil {
		fmt.Printf("Stopped: %v\n", runErr)
	}
}

func loadConfig() (*machine.Config, error) {
	config := machine.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = machine.LoadAnyConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	if flag.NArg() > 0 {
		config.BootImage = flag.Arg(0)
		config.ProgramImage = ""
	}
	if flag.NArg() > 1 {
		config.ProgramImage = flag.Arg(1)
	}
	config.MaxInstructions = *instruction
	config.ReportIntervalSec = 0
	if *dataCache {
		config.DataCache = true
	}

	return config, config.Validate()
}

// profileMode maps a -mode value to a profile option.
func profileMode(name string) (func(*profile.Profile), error) {
	switch name {
	case "cpu":
		return profile.CPUProfile, nil
	case "mem":
		return profile.MemProfile, nil
	case "block":
		return profile.BlockProfile, nil
	case "mutex":
		return profile.MutexProfile, nil
	case "trace":
		return profile.TraceProfile, nil
	default:
		return nil, fmt.Errorf("unknown profile mode %q", name)
	}
}

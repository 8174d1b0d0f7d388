// Package main provides the entry point for rvsim, an RV64IMAC
// instruction-set simulator with a memory-mapped UART.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/console"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/machine"
)

var (
	configPath  = flag.String("config", "", "Path to machine configuration (.json or .star)")
	bootPath    = flag.String("boot", "", "Boot image, overrides the config")
	programPath = flag.String("program", "", "Program image, overrides the config")
	timingPath  = flag.String("timing", "", "Path to timing configuration JSON file")
	maxInstr    = flag.Uint64("max-instr", 0, "Max instructions to execute (0 = unlimited)")
	dataCache   = flag.Bool("l1d", false, "Model an L1 data cache in front of RAM")
	bpred       = flag.Bool("bpred", false, "Charge redirects only on branch mispredictions")
	cADDIW      = flag.Bool("c-addiw", false, "Decode the c.jal slot as c.addiw")
	sizedLink   = flag.Bool("jalr-sized-link", false, "Link c.jalr to pc+2 instead of pc+4")
	noStdin     = flag.Bool("no-stdin", false, "Do not forward stdin to the UART")
	screen      = flag.Bool("console", false, "Render UART output on an 80x25 console grid at exit")
	plotPath    = flag.String("ips-plot", "", "Write the instructions-per-second samples as a PNG")
	trace       = flag.Bool("trace", false, "Log every executed instruction")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if *trace {
		logger.SetLevel(logrus.TraceLevel)
	}

	config, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	var grid *console.Console
	if *screen {
		grid = console.NewDefault()
		out = grid
	}

	opts := []machine.Option{
		machine.WithOutput(out),
		machine.WithLogger(logger),
	}
	if *trace {
		opts = append(opts, machine.WithTracer(newTracer(logger)))
	}
	if !*noStdin {
		opts = append(opts, machine.WithInput(readInput(os.Stdin)))
	}

	m, err := machine.New(config, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating machine: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := boot(ctx, m)

	if grid != nil {
		if err := grid.Render(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering console: %v\n", err)
		}
	}

	if *verbose {
		printStats(os.Stderr, m.Stats())
	}

	if *plotPath != "" {
		if err := machine.PlotRate(m.Samples(), *plotPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing plot: %v\n", err)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// buildConfig loads the config file, if any, and applies flag overrides.
func buildConfig() (*machine.Config, error) {
	config := machine.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = machine.LoadAnyConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	applyFlags(config, flagOverrides{
		boot:      *bootPath,
		program:   *programPath,
		timing:    *timingPath,
		maxInstr:  *maxInstr,
		dataCache: *dataCache,
		bpred:     *bpred,
		cADDIW:    *cADDIW,
		sizedLink: *sizedLink,
	})

	return config, config.Validate()
}

type flagOverrides struct {
	boot      string
	program   string
	timing    string
	maxInstr  uint64
	dataCache bool
	bpred     bool
	cADDIW    bool
	sizedLink bool
}

func applyFlags(config *machine.Config, o flagOverrides) {
	if o.boot != "" {
		config.BootImage = o.boot
	}
	if o.program != "" {
		config.ProgramImage = o.program
	}
	if o.timing != "" {
		config.TimingConfig = o.timing
	}
	if o.maxInstr != 0 {
		config.MaxInstructions = o.maxInstr
	}
	if o.dataCache {
		config.DataCache = true
	}
	if o.bpred {
		config.BranchPredictor = true
	}
	if o.cADDIW {
		config.CompressedADDIW = true
	}
	if o.sizedLink {
		config.SizedJALRLink = true
	}
}

func boot(ctx context.Context, m *machine.Machine) error {
	if err := m.Boot(); err != nil {
		return err
	}
	return m.Run(ctx)
}

// readInput forwards r byte by byte until EOF.
func readInput(r io.Reader) <-chan byte {
	input := make(chan byte, 64)

	go func() {
		defer close(input)
		br := bufio.NewReader(r)
		for {
			b, err := br.ReadByte()
			if err != nil {
				return
			}
			input <- b
		}
	}()

	return input
}

func newTracer(logger logrus.FieldLogger) emu.Tracer {
	return func(pc uint64, inst *insts.Instruction) {
		logger.WithFields(logrus.Fields{
			"pc":   fmt.Sprintf("0x%x", pc),
			"inst": inst.String(),
		}).Trace("CPU step")
	}
}

func printStats(w io.Writer, stats machine.Stats) {
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Instructions: %d\n", stats.Instructions)
	_, _ = fmt.Fprintf(w, "Est. cycles:  %d\n", stats.Cycles)
	if stats.Instructions > 0 {
		_, _ = fmt.Fprintf(w, "CPI:          %.2f\n",
			float64(stats.Cycles)/float64(stats.Instructions))
	}
	_, _ = fmt.Fprintf(w, "Elapsed:      %v\n", stats.Elapsed)
	_, _ = fmt.Fprintf(w, "MIPS:         %.2f\n", stats.IPS/1e6)

	if stats.Cache != nil {
		_, _ = fmt.Fprintf(w, "\n")
		_, _ = fmt.Fprintf(w, "L1D hits:     %d\n", stats.Cache.Hits)
		_, _ = fmt.Fprintf(w, "L1D misses:   %d\n", stats.Cache.Misses)
		_, _ = fmt.Fprintf(w, "L1D hit rate: %.1f%%\n", 100*stats.Cache.HitRate())
		_, _ = fmt.Fprintf(w, "L1D cycles:   %d\n", stats.CacheCycles)
	}

	if stats.Branch != nil {
		_, _ = fmt.Fprintf(w, "\n")
		_, _ = fmt.Fprintf(w, "Branches:     %d\n", stats.Branch.Predictions)
		_, _ = fmt.Fprintf(w, "Mispredicts:  %d\n", stats.Branch.Mispredictions)
		_, _ = fmt.Fprintf(w, "Accuracy:     %.1f%%\n", stats.Branch.Accuracy())
	}
}

// Package benchmarks provides microbenchmark programs and a harness that
// reports retired instructions, estimated cycles and simulation speed.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/mem"
	"github.com/sarchlab/rvsim/timing/branch"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
)

// Memory layout used for every benchmark.
const (
	MemoryBase   uint64 = 0
	MemorySize   uint64 = 0x20000
	ProgramAddr  uint64 = 0x1000
	StackPointer uint64 = 0x10000
)

// DefaultMaxInstructions bounds runaway benchmarks.
const DefaultMaxInstructions = 10_000_000

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// EstimatedCycles is the cycle counter after the run
	EstimatedCycles uint64 `json:"estimated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// DCacheCycles is the accumulated data cache access latency
	DCacheCycles uint64 `json:"dcache_cycles,omitempty"`

	// BranchPredictions/Mispredictions (if the predictor is enabled)
	BranchPredictions    uint64 `json:"branch_predictions,omitempty"`
	BranchMispredictions uint64 `json:"branch_mispredictions,omitempty"`

	// ExitCode is a0 when the program halted
	ExitCode uint64 `json:"exit_code"`

	// Error is set when the run faulted or hit the instruction limit
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`

	// IPS is instructions per wall-clock second
	IPS float64 `json:"ips"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares registers and memory before the run
	Setup func(regFile *emu.RegFile, bus *mem.Bus) error

	// Program is RV64 machine code loaded at ProgramAddr
	Program []byte

	// Image is a loaded image used instead of Program when set
	Image *loader.Program

	// ExpectedExit is the expected value of a0 at the halt
	ExpectedExit uint64
}

// BenchmarkFromImage builds a benchmark from a flat binary or RISC-V ELF.
// Flat binaries are placed at ProgramAddr.
func BenchmarkFromImage(name, description, path string) (Benchmark, error) {
	prog, err := loader.LoadFile(path, ProgramAddr)
	if err != nil {
		return Benchmark{}, err
	}

	return Benchmark{
		Name:        name,
		Description: description,
		Image:       prog,
	}, nil
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableDCache enables data cache simulation
	EnableDCache bool

	// EnableBranchPredictor charges redirects only on mispredictions
	EnableBranchPredictor bool

	// Timing is the cycle cost table. Default: latency.DefaultTimingConfig.
	Timing *latency.TimingConfig

	// MaxInstructions bounds each run.
	MaxInstructions uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDCache:          true,
		EnableBranchPredictor: true,
		Timing:                latency.DefaultTimingConfig(),
		MaxInstructions:       DefaultMaxInstructions,
		Output:                os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	if config.MaxInstructions == 0 {
		config.MaxInstructions = DefaultMaxInstructions
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "ran %s: %d instructions\n",
				result.Name, result.InstructionsRetired)
		}
		results = append(results, result)
	}

	return results
}

func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	ram, err := mem.NewRAM(MemoryBase, MemorySize)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var region mem.Region = ram
	var dcache *cache.Region
	if h.config.EnableDCache {
		dcache, err = cache.NewRegion(ram, MemorySize, cache.ConfigFromTiming(h.config.Timing))
		if err != nil {
			result.Error = err.Error()
			return result
		}
		region = dcache
	}

	bus := mem.NewBus()
	bus.AddNamedRegion("ram", region, MemoryBase, MemoryBase+MemorySize)

	image := bench.Image
	if image == nil {
		image = loader.Flat(bench.Program, ProgramAddr)
	}
	if err := image.LoadInto(bus); err != nil {
		result.Error = err.Error()
		return result
	}

	opts := []emu.CPUOption{
		emu.WithEntryPoint(image.EntryPoint),
		emu.WithLatencyTable(latency.NewTableWithConfig(h.config.Timing)),
		emu.WithMaxInstructions(h.config.MaxInstructions),
	}

	var bpred *branch.Predictor
	if h.config.EnableBranchPredictor {
		bpred, err = branch.NewPredictor(branch.DefaultConfig())
		if err != nil {
			result.Error = err.Error()
			return result
		}
		opts = append(opts, emu.WithBranchPredictor(bpred))
	}

	cpu := emu.NewCPU(bus, opts...)
	cpu.RegFile().WriteReg(2, StackPointer)

	if bench.Setup != nil {
		if err := bench.Setup(cpu.RegFile(), bus); err != nil {
			result.Error = err.Error()
			return result
		}
	}

	start := time.Now()
	for {
		step := cpu.Step()
		if step.Err != nil {
			result.Error = step.Err.Error()
			break
		}
		if step.Halted {
			break
		}
	}
	result.WallTime = time.Since(start)

	result.InstructionsRetired = cpu.InstructionCount()
	result.EstimatedCycles = cpu.CycleCount()
	result.ExitCode = cpu.RegFile().ReadReg(10)
	if result.InstructionsRetired > 0 {
		result.CPI = float64(result.EstimatedCycles) / float64(result.InstructionsRetired)
	}
	if secs := result.WallTime.Seconds(); secs > 0 {
		result.IPS = float64(result.InstructionsRetired) / secs
	}

	if dcache != nil {
		stats := dcache.Stats()
		result.DCacheHits = stats.Hits
		result.DCacheMisses = stats.Misses
		result.DCacheCycles = dcache.Cycles()
	}

	if bpred != nil {
		stats := bpred.Stats()
		result.BranchPredictions = stats.Predictions
		result.BranchMispredictions = stats.Mispredictions
	}

	return result
}

// Check compares each result against its benchmark's expected exit value.
func (h *Harness) Check(results []BenchmarkResult) error {
	var errs []error
	for i, r := range results {
		if i >= len(h.benchmarks) {
			break
		}
		bench := h.benchmarks[i]
		switch {
		case r.Error != "":
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Error))
		case bench.Image == nil && r.ExitCode != bench.ExpectedExit:
			errs = append(errs, fmt.Errorf("%s: exit %d, expected %d",
				r.Name, r.ExitCode, bench.ExpectedExit))
		}
	}
	return errors.Join(errs...)
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== rvsim Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Exit Code: %d\n", r.ExitCode)
		if r.Error != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Estimated Cycles:     %d\n", r.EstimatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
			_, _ = fmt.Fprintf(h.config.Output, "  Cycles: %d\n", r.DCacheCycles)
		}

		if r.BranchPredictions > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Branch Predictor ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Predictions:    %d\n", r.BranchPredictions)
			_, _ = fmt.Fprintf(h.config.Output, "  Mispredictions: %d\n", r.BranchMispredictions)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintf(h.config.Output, "  MIPS:      %.2f\n", r.IPS/1e6)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,dcache_hits,dcache_misses,dcache_cycles,branch_mispredictions,exit_code,wall_time_ns")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.EstimatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.DCacheHits,
			r.DCacheMisses,
			r.DCacheCycles,
			r.BranchMispredictions,
			r.ExitCode,
			r.WallTime.Nanoseconds(),
		)
	}
}

// Builder assembles 16- and 32-bit instructions into a little-endian
// program image.
type Builder struct {
	buf []byte
}

// Word appends 32-bit instructions.
func (b *Builder) Word(words ...uint32) *Builder {
	for _, w := range words {
		b.buf = binary.LittleEndian.AppendUint32(b.buf, w)
	}
	return b
}

// Half appends compressed instructions.
func (b *Builder) Half(halves ...uint16) *Builder {
	for _, h := range halves {
		b.buf = binary.LittleEndian.AppendUint16(b.buf, h)
	}
	return b
}

// Len returns the current program size in bytes.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Bytes returns the assembled program.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// BuildProgram assembles 32-bit instruction words into a byte slice.
func BuildProgram(instrs ...uint32) []byte {
	return (&Builder{}).Word(instrs...).Bytes()
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	DCacheEnabled          bool                  `json:"dcache_enabled"`
	BranchPredictorEnabled bool                  `json:"branch_predictor_enabled"`
	Timing                 *latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all estimated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.EstimatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config: BenchmarkConfig{
				DCacheEnabled:          h.config.EnableDCache,
				BranchPredictorEnabled: h.config.EnableBranchPredictor,
				Timing:                 h.config.Timing,
			},
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

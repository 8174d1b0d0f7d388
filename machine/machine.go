// Package machine assembles a CPU, memory map and UART into a runnable
// computer and drives it in fixed-size ticks.
package machine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/mem"
	"github.com/sarchlab/rvsim/timing/branch"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
	"github.com/sarchlab/rvsim/uart"
)

// RateSample is one instructions-per-second measurement.
type RateSample struct {
	// Elapsed is the wall-clock time since Boot.
	Elapsed time.Duration
	// IPS is the rate over the interval ending at Elapsed.
	IPS float64
}

// Stats summarizes a run.
type Stats struct {
	Instructions uint64
	Cycles       uint64
	Elapsed      time.Duration
	// IPS is the average rate since Boot.
	IPS float64
	// Cache is nil unless the data cache is enabled.
	Cache *cache.Statistics
	// CacheCycles is the accumulated data cache access latency.
	CacheCycles uint64
	// Branch is nil unless the branch predictor is enabled.
	Branch *branch.Stats
}

// Machine is a single-hart RV64 computer.
type Machine struct {
	config *Config
	logger logrus.FieldLogger
	output io.Writer
	clock  func() time.Time
	timing *latency.TimingConfig
	tracer emu.Tracer
	input  <-chan byte

	// pending holds input bytes the receive FIFO had no room for.
	pending []byte

	bus    *mem.Bus
	ram    *mem.RAM
	dcache *cache.Region
	bpred  *branch.Predictor
	uart   *uart.UART
	cpu    *emu.CPU

	halted      bool
	started     time.Time
	lastReport  time.Time
	lastInstret uint64
	samples     []RateSample
}

// Option is a functional option for configuring the Machine.
type Option func(*Machine)

// WithOutput sets where UART transmit bytes go. Default: os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Machine) {
		m.output = w
	}
}

// WithLogger sets the logger for boot, rate and halt events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithClock replaces time.Now for rate measurement.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) {
		m.clock = clock
	}
}

// WithTimingConfig charges instructions by class in the cycle counter.
func WithTimingConfig(timing *latency.TimingConfig) Option {
	return func(m *Machine) {
		m.timing = timing
	}
}

// WithTracer observes every instruction the CPU executes.
func WithTracer(tracer emu.Tracer) Option {
	return func(m *Machine) {
		m.tracer = tracer
	}
}

// WithInput feeds host bytes to the UART receiver at the start of every
// Tick. Bytes are held back while the receive FIFO is full.
func WithInput(input <-chan byte) Option {
	return func(m *Machine) {
		m.input = input
	}
}

// New builds the memory map described by config. Images are not loaded
// until Boot.
func New(config *Config, opts ...Option) (*Machine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		config: config.Clone(),
		logger: logrus.StandardLogger(),
		output: os.Stdout,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.timing == nil && m.config.TimingConfig != "" {
		timing, err := latency.LoadConfig(m.config.TimingConfig)
		if err != nil {
			return nil, err
		}
		m.timing = timing
	}

	if m.timing == nil && m.config.BranchPredictor {
		m.timing = latency.DefaultTimingConfig()
	}

	if m.timing != nil {
		if err := m.timing.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}

	if err := m.buildBus(); err != nil {
		return nil, err
	}

	var decoderOpts []insts.DecoderOption
	if m.config.CompressedADDIW {
		decoderOpts = append(decoderOpts, insts.WithCompressedADDIW())
	}

	cpuOpts := []emu.CPUOption{
		emu.WithDecoder(insts.NewDecoder(decoderOpts...)),
		emu.WithEntryPoint(m.config.BootBase),
		emu.WithMaxInstructions(m.config.MaxInstructions),
	}
	if m.timing != nil {
		cpuOpts = append(cpuOpts, emu.WithLatencyTable(latency.NewTableWithConfig(m.timing)))
	}
	if m.config.BranchPredictor {
		bpred, err := branch.NewPredictor(branch.DefaultConfig())
		if err != nil {
			return nil, err
		}
		m.bpred = bpred
		cpuOpts = append(cpuOpts, emu.WithBranchPredictor(bpred))
	}
	if m.config.SizedJALRLink {
		cpuOpts = append(cpuOpts, emu.WithSizedJALRLink())
	}
	if m.tracer != nil {
		cpuOpts = append(cpuOpts, emu.WithTracer(m.tracer))
	}

	m.cpu = emu.NewCPU(m.bus, cpuOpts...)

	return m, nil
}

func (m *Machine) buildBus() error {
	c := m.config
	m.bus = mem.NewBus()

	ram, err := mem.NewRAM(c.RAMBase, c.RAMSize)
	if err != nil {
		return err
	}
	m.ram = ram

	var ramRegion mem.Region = ram
	if c.DataCache {
		cacheConfig := cache.DefaultL1DConfig()
		if m.timing != nil {
			cacheConfig = cache.ConfigFromTiming(m.timing)
		}

		m.dcache, err = cache.NewRegion(ram, c.RAMSize, cacheConfig)
		if err != nil {
			return err
		}
		ramRegion = m.dcache
	}
	m.bus.AddNamedRegion("ram", ramRegion, c.RAMBase, c.RAMBase+c.RAMSize)

	var boot mem.Region
	if c.BootROM {
		boot = mem.NewROM(c.BootBase, c.BootSize)
	} else {
		bootRAM, err := mem.NewRAM(c.BootBase, c.BootSize)
		if err != nil {
			return err
		}
		boot = bootRAM
	}
	m.bus.AddNamedRegion("boot", boot, c.BootBase, c.BootBase+c.BootWindow)

	m.uart = uart.New(uart.WithSink(m.transmit))
	m.bus.AddNamedRegion("uart", m.uart, c.UARTBase, c.UARTBase+c.UARTSize)

	return nil
}

// transmit forwards each byte the guest queues to the host output.
func (m *Machine) transmit(b byte) {
	if _, err := m.output.Write([]byte{b}); err != nil {
		m.logger.WithError(err).Warn("UART output failed")
	}
}

// Boot loads the configured images and resets the CPU. With a boot image
// execution starts at BootBase, otherwise at the program's entry point.
func (m *Machine) Boot() error {
	c := m.config
	m.cpu.Reset()
	m.uart.Reset()
	m.halted = false

	if c.ProgramImage != "" {
		prog, err := m.load(c.ProgramImage, c.RAMBase)
		if err != nil {
			return err
		}
		if c.BootImage == "" {
			m.cpu.SetPC(prog.EntryPoint)
		}
	}

	if c.BootImage != "" {
		prog, err := m.load(c.BootImage, c.BootBase)
		if err != nil {
			return err
		}
		m.cpu.SetPC(prog.EntryPoint)
	}

	m.started = m.clock()
	m.lastReport = m.started
	m.lastInstret = 0
	m.samples = nil

	m.logger.WithFields(logrus.Fields{
		"pc":      fmt.Sprintf("0x%x", m.cpu.PC()),
		"ram":     fmt.Sprintf("0x%x+0x%x", c.RAMBase, c.RAMSize),
		"uart":    fmt.Sprintf("0x%x", c.UARTBase),
		"l1d":     c.DataCache,
		"c_addiw": c.CompressedADDIW,
	}).Info("Machine booted")

	return nil
}

func (m *Machine) load(path string, base uint64) (*loader.Program, error) {
	prog, err := loader.LoadFile(path, base)
	if err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}

	if err := prog.LoadInto(m.bus); err != nil {
		return nil, fmt.Errorf("boot %s: %w", path, err)
	}

	m.logger.WithFields(logrus.Fields{
		"image":    path,
		"entry":    fmt.Sprintf("0x%x", prog.EntryPoint),
		"segments": len(prog.Segments),
		"bytes":    prog.Size(),
	}).Debug("Image loaded")

	return prog, nil
}

// Tick executes up to CyclesPerTick instructions, drains the UART and
// updates the rate report. It returns the number of instructions executed.
// After the CPU halts, Tick does nothing.
func (m *Machine) Tick() (uint64, error) {
	if m.halted {
		return 0, nil
	}

	m.pollInput()

	var done uint64
	var err error
	for done < m.config.CyclesPerTick {
		if err = m.cpu.DoCycle(); err != nil {
			break
		}
		done++

		// Keep the transmit FIFO empty so the guest never sees it full.
		if m.uart.TransmitLen() > 0 {
			m.uart.DrainTransmit()
		}

		if m.config.StopOnIdle && m.cpu.Idle() {
			m.halted = true
			break
		}
	}

	m.uart.DrainTransmit()
	m.report(false)

	switch {
	case errors.Is(err, emu.ErrMaxInstructions):
		m.halted = true
		m.logger.WithField("instructions", m.cpu.InstructionCount()).
			Info("Instruction limit reached")
		return done, nil
	case err != nil:
		m.halted = true
		m.logger.WithError(err).WithField("pc", fmt.Sprintf("0x%x", m.cpu.PC())).
			Error("CPU fault")
		return done, err
	case m.halted:
		m.logger.WithFields(logrus.Fields{
			"pc":           fmt.Sprintf("0x%x", m.cpu.PC()),
			"instructions": m.cpu.InstructionCount(),
		}).Info("CPU halted")
	}

	return done, nil
}

func (m *Machine) pollInput() {
	for len(m.pending) > 0 {
		if !m.uart.Receive(m.pending[0]) {
			return
		}
		m.pending = m.pending[1:]
	}

	if m.input == nil {
		return
	}

	for {
		select {
		case b, ok := <-m.input:
			if !ok {
				m.input = nil
				return
			}
			if !m.uart.Receive(b) {
				m.pending = append(m.pending, b)
				return
			}
		default:
			return
		}
	}
}

// Run ticks until the CPU halts, faults or ctx is cancelled. Dirty cache
// lines are written back before it returns.
func (m *Machine) Run(ctx context.Context) error {
	defer m.report(true)

	for !m.halted {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, m.Flush())
		}

		if _, err := m.Tick(); err != nil {
			return errors.Join(err, m.Flush())
		}
	}

	return m.Flush()
}

func (m *Machine) report(final bool) {
	interval := time.Duration(m.config.ReportIntervalSec * float64(time.Second))
	if interval == 0 {
		return
	}

	now := m.clock()
	elapsed := now.Sub(m.lastReport)
	if elapsed <= 0 || (!final && elapsed < interval) {
		return
	}

	instret := m.cpu.InstructionCount()
	ips := float64(instret-m.lastInstret) / elapsed.Seconds()
	m.samples = append(m.samples, RateSample{Elapsed: now.Sub(m.started), IPS: ips})
	m.lastReport = now
	m.lastInstret = instret

	m.logger.WithFields(logrus.Fields{
		"mips":         fmt.Sprintf("%.2f", ips/1e6),
		"instructions": instret,
	}).Info("CPU frequency")
}

// Flush writes dirty data cache lines back to RAM.
func (m *Machine) Flush() error {
	if m.dcache == nil {
		return nil
	}
	return m.dcache.Flush()
}

// Input delivers a byte to the UART receiver. It reports false when the
// receive FIFO is full.
func (m *Machine) Input(b byte) bool {
	return m.uart.Receive(b)
}

// Halted reports whether the run is over.
func (m *Machine) Halted() bool {
	return m.halted
}

// CPU returns the processor.
func (m *Machine) CPU() *emu.CPU {
	return m.cpu
}

// Bus returns the system bus.
func (m *Machine) Bus() *mem.Bus {
	return m.bus
}

// UART returns the serial device.
func (m *Machine) UART() *uart.UART {
	return m.uart
}

// Config returns a copy of the configuration.
func (m *Machine) Config() *Config {
	return m.config.Clone()
}

// Samples returns the rate measurements taken so far.
func (m *Machine) Samples() []RateSample {
	return m.samples
}

// Stats returns the counters of the current run.
func (m *Machine) Stats() Stats {
	s := Stats{
		Instructions: m.cpu.InstructionCount(),
		Cycles:       m.cpu.CycleCount(),
		Elapsed:      m.clock().Sub(m.started),
	}
	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.IPS = float64(s.Instructions) / secs
	}
	if m.dcache != nil {
		cs := m.dcache.Stats()
		s.Cache = &cs
		s.CacheCycles = m.dcache.Cycles()
	}
	if m.bpred != nil {
		bs := m.bpred.Stats()
		s.Branch = &bs
	}
	return s
}

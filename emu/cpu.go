package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/branch"
	"github.com/sarchlab/rvsim/timing/latency"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if the instruction jumped to itself, the idle loop
	// that bare-metal programs park in once they are done.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// Tracer observes every instruction before it executes.
type Tracer func(pc uint64, inst *insts.Instruction)

// CPU executes RV64 instructions functionally, one per DoCycle call.
type CPU struct {
	regFile *RegFile
	csrs    *CSRFile
	bus     Bus
	decoder *insts.Decoder
	latency *latency.Table
	bpred   *branch.Predictor
	tracer  Tracer

	sizedJALRLink bool

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit
	atomicUnit *AtomicUnit
	systemUnit *SystemUnit

	// Execution state
	entryPoint       uint64
	instructionCount uint64
	cycleCount       uint64
	maxInstructions  uint64 // 0 means no limit
	idle             bool
}

// CPUOption is a functional option for configuring the CPU.
type CPUOption func(*CPU)

// WithDecoder sets the instruction decoder, for example one built with
// insts.WithCompressedADDIW.
func WithDecoder(decoder *insts.Decoder) CPUOption {
	return func(c *CPU) {
		c.decoder = decoder
	}
}

// WithLatencyTable charges each instruction its estimated cost in the
// cycle counter instead of one cycle.
func WithLatencyTable(table *latency.Table) CPUOption {
	return func(c *CPU) {
		c.latency = table
	}
}

// WithBranchPredictor charges the redirect penalty only when the predictor
// mispredicts a branch or jump. Without it every taken transfer pays it.
func WithBranchPredictor(predictor *branch.Predictor) CPUOption {
	return func(c *CPU) {
		c.bpred = predictor
	}
}

// WithSizedJALRLink makes JALR link to the next instruction, so c.jalr
// returns to pc + 2. By default JALR always links to pc + 4.
func WithSizedJALRLink() CPUOption {
	return func(c *CPU) {
		c.sizedJALRLink = true
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) CPUOption {
	return func(c *CPU) {
		c.maxInstructions = max
	}
}

// WithTracer installs a callback invoked for every decoded instruction.
func WithTracer(tracer Tracer) CPUOption {
	return func(c *CPU) {
		c.tracer = tracer
	}
}

// WithEntryPoint sets the PC used at creation and after Reset.
func WithEntryPoint(pc uint64) CPUOption {
	return func(c *CPU) {
		c.entryPoint = pc
	}
}

// NewCPU creates a CPU that fetches from and accesses memory through bus.
func NewCPU(bus Bus, opts ...CPUOption) *CPU {
	c := &CPU{
		regFile: &RegFile{},
		csrs:    &CSRFile{},
		bus:     bus,
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.alu = NewALU(c.regFile)
	c.lsu = NewLoadStoreUnit(c.regFile, bus)
	c.branchUnit = NewBranchUnit(c.regFile)
	c.branchUnit.sizedLink = c.sizedJALRLink
	c.atomicUnit = NewAtomicUnit(c.regFile, bus)
	c.systemUnit = NewSystemUnit(c.regFile, c.csrs)
	c.regFile.PC = c.entryPoint

	return c
}

// RegFile returns the CPU's register file.
func (c *CPU) RegFile() *RegFile {
	return c.regFile
}

// CSRs returns the CPU's control and status registers.
func (c *CPU) CSRs() *CSRFile {
	return c.csrs
}

// PC returns the address of the next instruction.
func (c *CPU) PC() uint64 {
	return c.regFile.PC
}

// SetPC moves the program counter.
func (c *CPU) SetPC(pc uint64) {
	c.regFile.PC = pc
	c.idle = false
}

// InstructionCount returns the number of instructions retired.
func (c *CPU) InstructionCount() uint64 {
	return c.instructionCount
}

// CycleCount returns the estimated number of cycles spent.
func (c *CPU) CycleCount() uint64 {
	return c.cycleCount
}

// Idle reports whether the last instruction jumped to itself.
func (c *CPU) Idle() bool {
	return c.idle
}

// Reset clears registers, CSRs and counters and returns to the entry point.
// Memory is left untouched.
func (c *CPU) Reset() {
	*c.regFile = RegFile{PC: c.entryPoint}
	c.csrs.Reset()
	if c.bpred != nil {
		c.bpred.Reset()
	}
	c.instructionCount = 0
	c.cycleCount = 0
	c.idle = false
}

// Step executes a single instruction.
// Returns a StepResult indicating whether execution should continue.
func (c *CPU) Step() StepResult {
	err := c.DoCycle()
	return StepResult{
		Halted: err == nil && c.idle,
		Err:    err,
	}
}

// Run executes up to n instructions and returns how many retired. It stops
// early on the first error.
func (c *CPU) Run(n uint64) (uint64, error) {
	var done uint64
	for done < n {
		if err := c.DoCycle(); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

// DoCycle fetches, decodes and executes exactly one instruction.
//
// Fetch, decode and execute failures are returned as an *ExecError
// carrying the PC of the faulting instruction. x0 is cleared even when
// execution fails.
func (c *CPU) DoCycle() error {
	if c.maxInstructions > 0 && c.instructionCount >= c.maxInstructions {
		return ErrMaxInstructions
	}

	pc := c.regFile.PC

	// 1. Fetch
	word, err := c.fetch(pc)
	if err != nil {
		return &ExecError{PC: pc, Err: err}
	}

	// 2. Decode
	inst, err := c.decoder.Decode(word)
	if err != nil {
		return &ExecError{PC: pc, Opcode: insts.Opcode(word & 0x7f), Err: err}
	}

	if c.tracer != nil {
		c.tracer(pc, inst)
	}

	// 3. Execute
	redirected, err := c.execute(inst, pc)
	c.regFile.X[0] = 0

	if err != nil {
		return c.wrapError(err, inst, pc)
	}

	// 4. Advance
	if !redirected {
		c.regFile.PC = pc + inst.Size()
	}

	c.idle = redirected && c.regFile.PC == pc
	c.retire(inst, pc, redirected)

	return nil
}

// fetch reads 32 bits at pc. A compressed instruction in the last two
// bytes of a region cannot be fetched as a word, so a failed word fetch
// falls back to a half-word.
func (c *CPU) fetch(pc uint64) (uint32, error) {
	word, err := c.bus.Read32(pc)
	if err == nil {
		return word, nil
	}

	half, halfErr := c.bus.Read16(pc)
	if halfErr != nil || half&0b11 == 0b11 {
		return 0, err
	}

	return uint32(half), nil
}

func (c *CPU) wrapError(err error, inst *insts.Instruction, pc uint64) error {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		execErr.PC = pc
		return execErr
	}

	return &ExecError{
		PC:     pc,
		Opcode: inst.Opcode,
		Funct3: inst.Funct3,
		Funct7: inst.Funct7,
		Err:    err,
	}
}

func (c *CPU) retire(inst *insts.Instruction, pc uint64, redirected bool) {
	cost := uint64(1)
	if c.latency != nil {
		cost = c.latency.GetLatency(inst)
		if c.penalized(inst, pc, redirected) {
			cost += c.latency.RedirectPenalty()
		}
	}

	c.instructionCount++
	c.cycleCount += cost

	c.csrs.Write(CSRCycle, c.cycleCount)
	c.csrs.Write(CSRInstret, c.instructionCount)
}

func (c *CPU) penalized(inst *insts.Instruction, pc uint64, redirected bool) bool {
	if c.bpred == nil || !c.latency.IsBranchOp(inst) {
		return redirected
	}
	return c.bpred.Resolve(pc, redirected, c.regFile.PC)
}

// execute dispatches on the major opcode. It reports whether the
// instruction wrote the PC itself.
func (c *CPU) execute(inst *insts.Instruction, pc uint64) (bool, error) {
	switch inst.Opcode {
	case insts.OpLUI:
		c.alu.LUI(inst)
	case insts.OpAUIPC:
		c.alu.AUIPC(inst, pc)
	case insts.OpJAL:
		c.branchUnit.JAL(inst)
		return true, nil
	case insts.OpJALR:
		c.branchUnit.JALR(inst)
		return true, nil
	case insts.OpBRANCH:
		return c.branchUnit.Branch(inst)
	case insts.OpLOAD:
		return false, c.lsu.Load(inst)
	case insts.OpSTORE:
		return false, c.lsu.Store(inst)
	case insts.OpIMM:
		return false, c.alu.OPIMM(inst)
	case insts.OpIMM32:
		return false, c.alu.OPIMM32(inst)
	case insts.OpOP:
		return false, c.alu.OP(inst)
	case insts.OpOP32:
		return false, c.alu.OP32(inst)
	case insts.OpAMO:
		return false, c.atomicUnit.Execute(inst)
	case insts.OpMISCMEM:
		// FENCE and FENCE.I: a single in-order hart has nothing to order.
	case insts.OpSYSTEM:
		return false, c.systemUnit.Execute(inst)
	default:
		return false, dispatchError(insts.ErrUnknownOpcode, inst)
	}

	return false, nil
}

// String dumps the register file and counters.
func (c *CPU) String() string {
	return fmt.Sprintf("%sinstret = %d  cycles = %d\n",
		c.regFile.String(), c.instructionCount, c.cycleCount)
}

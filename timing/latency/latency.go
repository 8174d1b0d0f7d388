// Package latency provides estimated per-instruction cycle costs.
//
// The values are rough in-order core estimates and can be configured via
// TimingConfig.
package latency

import (
	"github.com/sarchlab/rvsim/insts"
)

// Class groups instructions that share a cost.
type Class uint8

// Instruction classes.
const (
	ClassUnknown Class = iota
	ClassALU
	ClassBranch
	ClassJump
	ClassLoad
	ClassStore
	ClassMultiply
	ClassDivide
	ClassAtomic
	ClassSystem
)

var classNames = [...]string{
	ClassUnknown:  "unknown",
	ClassALU:      "alu",
	ClassBranch:   "branch",
	ClassJump:     "jump",
	ClassLoad:     "load",
	ClassStore:    "store",
	ClassMultiply: "multiply",
	ClassDivide:   "divide",
	ClassAtomic:   "atomic",
	ClassSystem:   "system",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// Classify returns the cost class of a decoded instruction.
func Classify(inst *insts.Instruction) Class {
	if inst == nil {
		return ClassUnknown
	}

	switch inst.Opcode {
	case insts.OpLUI, insts.OpAUIPC, insts.OpIMM, insts.OpIMM32:
		return ClassALU
	case insts.OpOP, insts.OpOP32:
		if inst.Funct7 != insts.Funct7MulDiv {
			return ClassALU
		}
		if inst.Funct3 < insts.Funct3DIV {
			return ClassMultiply
		}
		return ClassDivide
	case insts.OpBRANCH:
		return ClassBranch
	case insts.OpJAL, insts.OpJALR:
		return ClassJump
	case insts.OpLOAD:
		return ClassLoad
	case insts.OpSTORE:
		return ClassStore
	case insts.OpAMO:
		return ClassAtomic
	case insts.OpSYSTEM, insts.OpMISCMEM:
		return ClassSystem
	default:
		return ClassUnknown
	}
}

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given instruction.
// For variable-latency operations, returns the typical/expected latency.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	switch Classify(inst) {
	case ClassALU:
		return t.config.ALULatency
	case ClassBranch, ClassJump:
		return t.config.BranchLatency
	case ClassLoad:
		return t.config.LoadLatency
	case ClassStore:
		return t.config.StoreLatency
	case ClassMultiply:
		return t.config.MultiplyLatency
	case ClassDivide:
		return (t.config.DivideLatencyMin + t.config.DivideLatencyMax) / 2
	case ClassAtomic:
		return t.config.AtomicLatency
	case ClassSystem:
		return t.config.SystemLatency
	default:
		return 1
	}
}

// GetMinLatency returns the minimum execution latency for variable-latency operations.
func (t *Table) GetMinLatency(inst *insts.Instruction) uint64 {
	if Classify(inst) == ClassDivide {
		return t.config.DivideLatencyMin
	}
	return t.GetLatency(inst)
}

// GetMaxLatency returns the maximum execution latency for variable-latency operations.
func (t *Table) GetMaxLatency(inst *insts.Instruction) uint64 {
	if Classify(inst) == ClassDivide {
		return t.config.DivideLatencyMax
	}
	return t.GetLatency(inst)
}

// RedirectPenalty returns the extra cycles charged when an instruction
// changes control flow.
func (t *Table) RedirectPenalty() uint64 {
	return t.config.BranchTakenPenalty
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	switch Classify(inst) {
	case ClassLoad, ClassStore, ClassAtomic:
		return true
	default:
		return false
	}
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	return Classify(inst) == ClassLoad
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	return Classify(inst) == ClassStore
}

// IsBranchOp returns true if the instruction is a branch or jump.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	switch Classify(inst) {
	case ClassBranch, ClassJump:
		return true
	default:
		return false
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}

package emu

import (
	"github.com/sarchlab/rvsim/insts"
)

// LoadStoreUnit implements RV64 load and store operations.
type LoadStoreUnit struct {
	regFile *RegFile
	bus     Bus
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and bus.
func NewLoadStoreUnit(regFile *RegFile, bus Bus) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		bus:     bus,
	}
}

// EffectiveAddress returns rs1 + sext12(imm).
func (lsu *LoadStoreUnit) EffectiveAddress(inst *insts.Instruction) uint64 {
	return lsu.regFile.ReadReg(inst.Rs1) + SignExtend(uint64(inst.Imm), 12)
}

// Load performs LB, LH, LW, LD, LBU, LHU or LWU: rd = mem[rs1 + offset].
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction) error {
	addr := lsu.EffectiveAddress(inst)

	var (
		value uint64
		err   error
	)

	switch inst.Funct3 {
	case insts.Funct3LB:
		var v uint8
		v, err = lsu.bus.Read8(addr)
		value = SignExtend(uint64(v), 8)
	case insts.Funct3LH:
		var v uint16
		v, err = lsu.bus.Read16(addr)
		value = SignExtend(uint64(v), 16)
	case insts.Funct3LW:
		var v uint32
		v, err = lsu.bus.Read32(addr)
		value = SignExtend(uint64(v), 32)
	case insts.Funct3LD:
		value, err = lsu.bus.Read64(addr)
	case insts.Funct3LBU:
		var v uint8
		v, err = lsu.bus.Read8(addr)
		value = ZeroExtend(uint64(v), 8)
	case insts.Funct3LHU:
		var v uint16
		v, err = lsu.bus.Read16(addr)
		value = ZeroExtend(uint64(v), 16)
	case insts.Funct3LWU:
		var v uint32
		v, err = lsu.bus.Read32(addr)
		value = ZeroExtend(uint64(v), 32)
	default:
		return dispatchError(ErrUnknownFunct3, inst)
	}

	if err != nil {
		return err
	}

	lsu.regFile.WriteReg(inst.Rd, value)
	return nil
}

// Store performs SB, SH, SW or SD: mem[rs1 + offset] = rs2 (truncated).
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction) error {
	addr := lsu.EffectiveAddress(inst)
	value := lsu.regFile.ReadReg(inst.Rs2)

	switch inst.Funct3 {
	case insts.Funct3SB:
		return lsu.bus.Write8(addr, uint8(value))
	case insts.Funct3SH:
		return lsu.bus.Write16(addr, uint16(value))
	case insts.Funct3SW:
		return lsu.bus.Write32(addr, uint32(value))
	case insts.Funct3SD:
		return lsu.bus.Write64(addr, value)
	default:
		return dispatchError(ErrUnknownFunct3, inst)
	}
}

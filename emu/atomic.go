package emu

import (
	"github.com/sarchlab/rvsim/insts"
)

// AtomicUnit implements the A extension as plain read-modify-write
// sequences. There is a single hart, so LR/SC never lose a reservation.
type AtomicUnit struct {
	regFile *RegFile
	bus     Bus
}

// NewAtomicUnit creates a new AtomicUnit connected to the given register
// file and bus.
func NewAtomicUnit(regFile *RegFile, bus Bus) *AtomicUnit {
	return &AtomicUnit{
		regFile: regFile,
		bus:     bus,
	}
}

// Execute performs the AMO selected by funct7[6:2] at address rs1. The
// old memory value is written to rd; SC writes 0 to rd.
func (u *AtomicUnit) Execute(inst *insts.Instruction) error {
	switch inst.Funct3 {
	case insts.Funct3AMOW:
		return u.execute32(inst)
	case insts.Funct3AMOD:
		return u.execute64(inst)
	default:
		return dispatchError(ErrUnknownFunct3, inst)
	}
}

func (u *AtomicUnit) execute64(inst *insts.Instruction) error {
	addr := u.regFile.ReadReg(inst.Rs1)
	src := u.regFile.ReadReg(inst.Rs2)
	op := inst.Funct7 >> 2

	if op == insts.AMOSC {
		if err := u.bus.Write64(addr, src); err != nil {
			return err
		}
		u.regFile.WriteReg(inst.Rd, 0)
		return nil
	}

	old, err := u.bus.Read64(addr)
	if err != nil {
		return err
	}

	if op != insts.AMOLR {
		result, ok := amo64(op, old, src)
		if !ok {
			return dispatchError(ErrUnknownFunct7, inst)
		}
		if err := u.bus.Write64(addr, result); err != nil {
			return err
		}
	}

	u.regFile.WriteReg(inst.Rd, old)
	return nil
}

func (u *AtomicUnit) execute32(inst *insts.Instruction) error {
	addr := u.regFile.ReadReg(inst.Rs1)
	src := u.regFile.ReadReg32(inst.Rs2)
	op := inst.Funct7 >> 2

	if op == insts.AMOSC {
		if err := u.bus.Write32(addr, src); err != nil {
			return err
		}
		u.regFile.WriteReg(inst.Rd, 0)
		return nil
	}

	old, err := u.bus.Read32(addr)
	if err != nil {
		return err
	}

	if op != insts.AMOLR {
		result, ok := amo32(op, old, src)
		if !ok {
			return dispatchError(ErrUnknownFunct7, inst)
		}
		if err := u.bus.Write32(addr, result); err != nil {
			return err
		}
	}

	u.regFile.WriteReg32(inst.Rd, old)
	return nil
}

func amo64(op uint8, old, src uint64) (uint64, bool) {
	switch op {
	case insts.AMOSWAP:
		return src, true
	case insts.AMOADD:
		return old + src, true
	case insts.AMOXOR:
		return old ^ src, true
	case insts.AMOAND:
		return old & src, true
	case insts.AMOOR:
		return old | src, true
	case insts.AMOMIN:
		if Reg64(src).Signed(64) < Reg64(old).Signed(64) {
			return src, true
		}
		return old, true
	case insts.AMOMAX:
		if Reg64(src).Signed(64) > Reg64(old).Signed(64) {
			return src, true
		}
		return old, true
	case insts.AMOMINU:
		return min(old, src), true
	case insts.AMOMAXU:
		return max(old, src), true
	}
	return 0, false
}

func amo32(op uint8, old, src uint32) (uint32, bool) {
	switch op {
	case insts.AMOMIN:
		if Reg64(src).Signed(32) < Reg64(old).Signed(32) {
			return src, true
		}
		return old, true
	case insts.AMOMAX:
		if Reg64(src).Signed(32) > Reg64(old).Signed(32) {
			return src, true
		}
		return old, true
	}

	result, ok := amo64(op, uint64(old), uint64(src))
	return uint32(result), ok
}

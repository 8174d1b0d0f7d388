package emu

import (
	"math/bits"

	"github.com/sarchlab/rvsim/insts"
)

// ALU implements the RV64I integer and M-extension arithmetic operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// LUI loads the upper immediate: rd = sext32(imm << 12).
func (a *ALU) LUI(inst *insts.Instruction) {
	a.regFile.WriteReg(inst.Rd, SignExtend(uint64(inst.Imm)<<12, 32))
}

// AUIPC adds the upper immediate to the PC of the instruction:
// rd = pc + (sext20(imm) << 12).
func (a *ALU) AUIPC(inst *insts.Instruction, pc uint64) {
	a.regFile.WriteReg(inst.Rd, pc+SignExtend(uint64(inst.Imm), 20)<<12)
}

// OPIMM executes the register-immediate group (ADDI, SLTI, SLTIU, XORI,
// ORI, ANDI, SLLI, SRLI, SRAI).
func (a *ALU) OPIMM(inst *insts.Instruction) error {
	src := a.regFile.ReadReg(inst.Rs1)
	imm := SignExtend(uint64(inst.Imm), 12)
	shamt := uint(inst.Shamt & 0x3f)

	var result uint64

	switch inst.Funct3 {
	case insts.Funct3ADD:
		result = src + imm
	case insts.Funct3SLT:
		result = boolToUint64(Reg64(src).Signed(64) < Reg64(imm).Signed(64))
	case insts.Funct3SLTU:
		result = boolToUint64(src < imm)
	case insts.Funct3XOR:
		result = src ^ imm
	case insts.Funct3OR:
		result = src | imm
	case insts.Funct3AND:
		result = src & imm
	case insts.Funct3SLL:
		if inst.Funct7>>1 != 0 {
			return dispatchError(ErrUnknownFunct7, inst)
		}
		result = src << shamt
	case insts.Funct3SRL:
		switch inst.Funct7 >> 1 {
		case insts.Funct7Base >> 1:
			result = src >> shamt
		case insts.Funct7Alt >> 1:
			result = uint64(Reg64(src).Signed(64) >> shamt)
		default:
			return dispatchError(ErrUnknownFunct7, inst)
		}
	default:
		return dispatchError(ErrUnknownFunct3, inst)
	}

	a.regFile.WriteReg(inst.Rd, result)
	return nil
}

// OPIMM32 executes ADDIW, SLLIW, SRLIW and SRAIW. Results are 32-bit and
// sign-extended to 64 bits.
func (a *ALU) OPIMM32(inst *insts.Instruction) error {
	src := a.regFile.ReadReg32(inst.Rs1)
	shamt := uint(inst.Shamt & 0x1f)

	var result uint32

	switch inst.Funct3 {
	case insts.Funct3ADD:
		result = src + uint32(SignExtend(uint64(inst.Imm), 12))
	case insts.Funct3SLL:
		if inst.Funct7 != insts.Funct7Base {
			return dispatchError(ErrUnknownFunct7, inst)
		}
		result = src << shamt
	case insts.Funct3SRL:
		switch inst.Funct7 {
		case insts.Funct7Base:
			result = src >> shamt
		case insts.Funct7Alt:
			result = uint32(Reg64(src).Signed(32) >> shamt)
		default:
			return dispatchError(ErrUnknownFunct7, inst)
		}
	default:
		return dispatchError(ErrUnknownFunct3, inst)
	}

	a.regFile.WriteReg32(inst.Rd, result)
	return nil
}

// OP executes the register-register group, including the M extension
// when funct7 is 0b0000001.
func (a *ALU) OP(inst *insts.Instruction) error {
	op1 := a.regFile.ReadReg(inst.Rs1)
	op2 := a.regFile.ReadReg(inst.Rs2)

	if inst.Funct7 == insts.Funct7MulDiv {
		a.regFile.WriteReg(inst.Rd, mulDiv64(inst.Funct3, op1, op2))
		return nil
	}

	var result uint64

	switch inst.Funct3 {
	case insts.Funct3ADD:
		switch inst.Funct7 {
		case insts.Funct7Base:
			result = op1 + op2
		case insts.Funct7Alt:
			result = op1 - op2
		default:
			return dispatchError(ErrUnknownFunct7, inst)
		}
	case insts.Funct3SRL:
		switch inst.Funct7 {
		case insts.Funct7Base:
			result = op1 >> (op2 & 0x3f)
		case insts.Funct7Alt:
			result = uint64(Reg64(op1).Signed(64) >> (op2 & 0x3f))
		default:
			return dispatchError(ErrUnknownFunct7, inst)
		}
	default:
		if inst.Funct7 != insts.Funct7Base {
			return dispatchError(ErrUnknownFunct7, inst)
		}
		result = logic64(inst.Funct3, op1, op2)
	}

	a.regFile.WriteReg(inst.Rd, result)
	return nil
}

// logic64 covers the funct3 values of OP that take no funct7 variant.
func logic64(funct3 uint8, op1, op2 uint64) uint64 {
	switch funct3 {
	case insts.Funct3SLL:
		return op1 << (op2 & 0x3f)
	case insts.Funct3SLT:
		return boolToUint64(Reg64(op1).Signed(64) < Reg64(op2).Signed(64))
	case insts.Funct3SLTU:
		return boolToUint64(op1 < op2)
	case insts.Funct3XOR:
		return op1 ^ op2
	case insts.Funct3OR:
		return op1 | op2
	default: // AND
		return op1 & op2
	}
}

// OP32 executes the word-size register-register group (ADDW, SUBW, SLLW,
// SRLW, SRAW and the M-extension *W forms).
func (a *ALU) OP32(inst *insts.Instruction) error {
	op1 := a.regFile.ReadReg32(inst.Rs1)
	op2 := a.regFile.ReadReg32(inst.Rs2)

	var result uint32

	switch inst.Funct7 {
	case insts.Funct7MulDiv:
		var ok bool
		result, ok = mulDiv32(inst.Funct3, op1, op2)
		if !ok {
			return dispatchError(ErrUnknownFunct3, inst)
		}
	case insts.Funct7Base:
		switch inst.Funct3 {
		case insts.Funct3ADD:
			result = op1 + op2
		case insts.Funct3SLL:
			result = op1 << (op2 & 0x1f)
		case insts.Funct3SRL:
			result = op1 >> (op2 & 0x1f)
		default:
			return dispatchError(ErrUnknownFunct3, inst)
		}
	case insts.Funct7Alt:
		switch inst.Funct3 {
		case insts.Funct3ADD:
			result = op1 - op2
		case insts.Funct3SRL:
			result = uint32(Reg64(op1).Signed(32) >> (op2 & 0x1f))
		default:
			return dispatchError(ErrUnknownFunct3, inst)
		}
	default:
		return dispatchError(ErrUnknownFunct7, inst)
	}

	a.regFile.WriteReg32(inst.Rd, result)
	return nil
}

// mulDiv64 implements MUL, MULH, MULHSU, MULHU, DIV, DIVU, REM and REMU.
// Division and remainder by zero yield 0.
func mulDiv64(funct3 uint8, op1, op2 uint64) uint64 {
	switch funct3 {
	case insts.Funct3MUL:
		return op1 * op2
	case insts.Funct3MULH:
		hi, _ := bits.Mul64(op1, op2)
		if Reg64(op1).Signed(64) < 0 {
			hi -= op2
		}
		if Reg64(op2).Signed(64) < 0 {
			hi -= op1
		}
		return hi
	case insts.Funct3MULHSU:
		hi, _ := bits.Mul64(op1, op2)
		if Reg64(op1).Signed(64) < 0 {
			hi -= op2
		}
		return hi
	case insts.Funct3MULHU:
		hi, _ := bits.Mul64(op1, op2)
		return hi
	case insts.Funct3DIV:
		if op2 == 0 {
			return 0
		}
		return uint64(Reg64(op1).Signed(64) / Reg64(op2).Signed(64))
	case insts.Funct3DIVU:
		if op2 == 0 {
			return 0
		}
		return op1 / op2
	case insts.Funct3REM:
		if op2 == 0 {
			return 0
		}
		return uint64(Reg64(op1).Signed(64) % Reg64(op2).Signed(64))
	default: // REMU
		if op2 == 0 {
			return 0
		}
		return op1 % op2
	}
}

// mulDiv32 implements MULW, DIVW, DIVUW, REMW and REMUW.
func mulDiv32(funct3 uint8, op1, op2 uint32) (uint32, bool) {
	switch funct3 {
	case insts.Funct3MUL:
		return op1 * op2, true
	case insts.Funct3DIV:
		if op2 == 0 {
			return 0, true
		}
		return uint32(Reg64(op1).Signed(32) / Reg64(op2).Signed(32)), true
	case insts.Funct3DIVU:
		if op2 == 0 {
			return 0, true
		}
		return op1 / op2, true
	case insts.Funct3REM:
		if op2 == 0 {
			return 0, true
		}
		return uint32(Reg64(op1).Signed(32) % Reg64(op2).Signed(32)), true
	case insts.Funct3REMU:
		if op2 == 0 {
			return 0, true
		}
		return op1 % op2, true
	}
	return 0, false
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

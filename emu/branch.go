package emu

import (
	"github.com/sarchlab/rvsim/insts"
)

// BranchUnit implements RV64 jumps and conditional branches.
type BranchUnit struct {
	regFile *RegFile

	// sizedLink makes JALR link to pc + Size() instead of pc + 4.
	sizedLink bool
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// JAL saves the address of the next instruction in rd and jumps to
// pc + sext21(imm).
func (b *BranchUnit) JAL(inst *insts.Instruction) {
	pc := b.regFile.PC
	b.regFile.WriteReg(inst.Rd, pc+inst.Size())
	b.regFile.PC = pc + SignExtend(uint64(inst.Imm), 21)
}

// JALR jumps to (rs1 + sext12(imm)) with bit 0 cleared and saves pc + 4
// in rd, even for c.jalr. The target is computed first, so rd may equal rs1.
func (b *BranchUnit) JALR(inst *insts.Instruction) {
	pc := b.regFile.PC
	target := (b.regFile.ReadReg(inst.Rs1) + SignExtend(uint64(inst.Imm), 12)) &^ 1

	link := pc + 4
	if b.sizedLink {
		link = pc + inst.Size()
	}

	b.regFile.WriteReg(inst.Rd, link)
	b.regFile.PC = target
}

// Branch evaluates a conditional branch and, if taken, moves the PC to
// pc + sext13(imm). It reports whether the branch was taken.
func (b *BranchUnit) Branch(inst *insts.Instruction) (bool, error) {
	taken, err := b.CheckCondition(inst)
	if err != nil || !taken {
		return false, err
	}

	b.regFile.PC += SignExtend(uint64(inst.Imm), 13)
	return true, nil
}

// CheckCondition evaluates the branch condition without changing the PC.
func (b *BranchUnit) CheckCondition(inst *insts.Instruction) (bool, error) {
	op1 := b.regFile.ReadReg(inst.Rs1)
	op2 := b.regFile.ReadReg(inst.Rs2)

	switch inst.Funct3 {
	case insts.Funct3BEQ:
		return op1 == op2, nil
	case insts.Funct3BNE:
		return op1 != op2, nil
	case insts.Funct3BLT:
		return Reg64(op1).Signed(64) < Reg64(op2).Signed(64), nil
	case insts.Funct3BGE:
		return Reg64(op1).Signed(64) >= Reg64(op2).Signed(64), nil
	case insts.Funct3BLTU:
		return op1 < op2, nil
	case insts.Funct3BGEU:
		return op1 >= op2, nil
	default:
		return false, dispatchError(ErrUnknownFunct3, inst)
	}
}

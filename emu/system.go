package emu

import (
	"github.com/sarchlab/rvsim/insts"
)

// SystemUnit implements the SYSTEM opcode: the Zicsr instructions and the
// privileged encodings, which execute as no-ops.
type SystemUnit struct {
	regFile *RegFile
	csrs    *CSRFile
}

// NewSystemUnit creates a new SystemUnit.
func NewSystemUnit(regFile *RegFile, csrs *CSRFile) *SystemUnit {
	return &SystemUnit{
		regFile: regFile,
		csrs:    csrs,
	}
}

// Execute runs a SYSTEM instruction.
//
// For CSRRW/CSRRS/CSRRC the source is rs1; for the immediate forms it is
// the 5-bit rs1 field itself. rd receives the old CSR value. Set and clear
// with a zero source register field perform no write.
func (s *SystemUnit) Execute(inst *insts.Instruction) error {
	if inst.Funct3 == insts.Funct3PRIV {
		return nil // ECALL, EBREAK, xRET, WFI
	}

	var src uint64
	if inst.Funct3&0b100 != 0 {
		src = uint64(inst.Rs1)
	} else {
		src = s.regFile.ReadReg(inst.Rs1)
	}

	csr := inst.CSR()
	old := s.csrs.Read(csr)

	switch inst.Funct3 & 0b011 {
	case 0b01: // CSRRW, CSRRWI
		s.csrs.Write(csr, src)
	case 0b10: // CSRRS, CSRRSI
		if inst.Rs1 != 0 {
			s.csrs.Write(csr, old|src)
		}
	case 0b11: // CSRRC, CSRRCI
		if inst.Rs1 != 0 {
			s.csrs.Write(csr, old&^src)
		}
	default:
		return dispatchError(ErrUnknownFunct3, inst)
	}

	s.regFile.WriteReg(inst.Rd, old)
	return nil
}

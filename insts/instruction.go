package insts

import (
	"fmt"
)

// Instruction represents a decoded RV64 instruction.
//
// Compressed instructions are expanded into their 32-bit equivalents, so
// every field below is in standard-encoding form regardless of
// IsCompressed.
type Instruction struct {
	Opcode Opcode // Major opcode, bits [6:0]
	Format Format // Encoding format

	Rd     uint8 // Destination register, bits [11:7]
	Rs1    uint8 // First source register, bits [19:15]
	Rs2    uint8 // Second source register, bits [24:20]
	Funct3 uint8 // bits [14:12]
	Funct7 uint8 // bits [31:25]
	Shamt  uint8 // bits [25:20], RV64 6-bit shift amount

	// Imm holds the raw immediate bits, reassembled but not sign-extended.
	// Its width depends on Format: I/S 12 bits, B 13 bits, U 20 bits
	// (unshifted) and J 21 bits. R-format instructions carry 0.
	Imm uint32

	IsCompressed bool   // true if fetched as a 16-bit encoding
	Raw          uint32 // original encoding (low 16 bits for compressed)
}

// Size returns the number of bytes the instruction occupies in memory.
func (i *Instruction) Size() uint64 {
	if i.IsCompressed {
		return 2
	}
	return 4
}

// CSR returns the CSR address of a SYSTEM instruction.
func (i *Instruction) CSR() uint16 {
	return uint16(i.Imm & 0xfff)
}

// String returns a short human-readable rendering for traces and errors.
func (i *Instruction) String() string {
	prefix := ""
	if i.IsCompressed {
		prefix = "c:"
	}

	switch i.Format {
	case FormatR:
		return fmt.Sprintf("%s%v f3=%d f7=0x%02x x%d, x%d, x%d",
			prefix, i.Opcode, i.Funct3, i.Funct7, i.Rd, i.Rs1, i.Rs2)
	case FormatI:
		return fmt.Sprintf("%s%v f3=%d x%d, x%d, 0x%03x",
			prefix, i.Opcode, i.Funct3, i.Rd, i.Rs1, i.Imm)
	case FormatS:
		return fmt.Sprintf("%s%v f3=%d x%d, 0x%03x(x%d)",
			prefix, i.Opcode, i.Funct3, i.Rs2, i.Imm, i.Rs1)
	case FormatB:
		return fmt.Sprintf("%s%v f3=%d x%d, x%d, 0x%04x",
			prefix, i.Opcode, i.Funct3, i.Rs1, i.Rs2, i.Imm)
	case FormatU:
		return fmt.Sprintf("%s%v x%d, 0x%05x", prefix, i.Opcode, i.Rd, i.Imm)
	case FormatJ:
		return fmt.Sprintf("%s%v x%d, 0x%06x", prefix, i.Opcode, i.Rd, i.Imm)
	default:
		return fmt.Sprintf("%s%v 0x%08x", prefix, i.Opcode, i.Raw)
	}
}

// Package emu provides functional RV64 emulation.
package emu

import (
	"fmt"
	"strings"
)

// RegFile represents the RV64 integer register file and program counter.
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// x0 is hardwired to zero; the CPU clears it after every instruction.
	X [32]Reg64

	// PC is the program counter.
	PC uint64
}

// ReadReg reads a register value. Register indices are masked to 5 bits.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	return uint64(r.X[reg&0x1f])
}

// WriteReg writes a value to a register.
//
// Writes to x0 are stored and then discarded by the CPU at the end of the
// instruction, so an instruction may observe its own x0 write.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	r.X[reg&0x1f] = Reg64(value)
}

// ReadReg32 reads the lower 32 bits of a register.
func (r *RegFile) ReadReg32(reg uint8) uint32 {
	return uint32(r.X[reg&0x1f].ZeroExtend(32))
}

// WriteReg32 writes a 32-bit result sign-extended to 64 bits, as the
// RV64 *W instructions do.
func (r *RegFile) WriteReg32(reg uint8, value uint32) {
	r.WriteReg(reg, SignExtend(uint64(value), 32))
}

// ABINames are the calling-convention names of x0-x31.
var ABINames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// String dumps the PC and all registers, four per line.
func (r *RegFile) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "pc   = 0x%016x\n", r.PC)
	for i := 0; i < 32; i++ {
		fmt.Fprintf(&sb, "x%-2d %-4s= %v", i, ABINames[i], r.X[i])
		if i%4 == 3 {
			sb.WriteByte('\n')
		} else {
			sb.WriteString("  ")
		}
	}

	return sb.String()
}

package emu

import "fmt"

// Reg64 is a 64-bit register cell. It carries no signedness; the views
// below interpret its low bits as a signed or unsigned field.
type Reg64 uint64

// SignExtend views the low bits of the register as a two's-complement
// value and replicates bit bits-1 into the upper bits.
func (r Reg64) SignExtend(bits uint) uint64 {
	return SignExtend(uint64(r), bits)
}

// ZeroExtend keeps the low bits of the register and clears the rest.
func (r Reg64) ZeroExtend(bits uint) uint64 {
	return ZeroExtend(uint64(r), bits)
}

// Signed returns the SignExtend view as a two's-complement integer.
func (r Reg64) Signed(bits uint) int64 {
	return int64(r.SignExtend(bits))
}

func (r Reg64) String() string {
	return fmt.Sprintf("0x%016x", uint64(r))
}

// SignExtend replicates bit bits-1 of value into bits [63:bits].
// Widths of 64 or more return value unchanged.
func SignExtend(value uint64, bits uint) uint64 {
	if bits == 0 {
		return 0
	}
	if bits >= 64 {
		return value
	}
	shift := 64 - bits
	return uint64(int64(value<<shift) >> shift)
}

// ZeroExtend keeps bits [bits-1:0] of value and clears the rest.
func ZeroExtend(value uint64, bits uint) uint64 {
	if bits >= 64 {
		return value
	}
	return value & (1<<bits - 1)
}

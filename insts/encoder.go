package insts

// Encoders for building machine code in tests, benchmarks and boot stubs.
// Immediates are truncated to their field width; range checking is the
// caller's responsibility.

// EncodeR encodes an R-format instruction.
func EncodeR(op Opcode, rd, funct3, rs1, rs2, funct7 uint8) uint32 {
	return uint32(funct7&0x7f)<<25 |
		uint32(rs2&0x1f)<<20 |
		uint32(rs1&0x1f)<<15 |
		uint32(funct3&0x7)<<12 |
		uint32(rd&0x1f)<<7 |
		uint32(op&0x7f)
}

// EncodeI encodes an I-format instruction with a 12-bit immediate.
func EncodeI(op Opcode, rd, funct3, rs1 uint8, imm int32) uint32 {
	return (uint32(imm)&0xfff)<<20 |
		uint32(rs1&0x1f)<<15 |
		uint32(funct3&0x7)<<12 |
		uint32(rd&0x1f)<<7 |
		uint32(op&0x7f)
}

// EncodeS encodes an S-format (store) instruction.
func EncodeS(funct3, rs1, rs2 uint8, imm int32) uint32 {
	u := uint32(imm) & 0xfff
	return (u>>5)<<25 |
		uint32(rs2&0x1f)<<20 |
		uint32(rs1&0x1f)<<15 |
		uint32(funct3&0x7)<<12 |
		(u&0x1f)<<7 |
		uint32(OpSTORE)
}

// EncodeB encodes a B-format (conditional branch) instruction. The offset
// is in bytes and must be even.
func EncodeB(funct3, rs1, rs2 uint8, offset int32) uint32 {
	u := uint32(offset) & 0x1fff
	return (u>>12&0x1)<<31 |
		(u>>5&0x3f)<<25 |
		uint32(rs2&0x1f)<<20 |
		uint32(rs1&0x1f)<<15 |
		uint32(funct3&0x7)<<12 |
		(u>>1&0xf)<<8 |
		(u>>11&0x1)<<7 |
		uint32(OpBRANCH)
}

// EncodeU encodes a U-format instruction. imm is the 20-bit upper value
// before the shift by 12.
func EncodeU(op Opcode, rd uint8, imm uint32) uint32 {
	return (imm&0xfffff)<<12 | uint32(rd&0x1f)<<7 | uint32(op&0x7f)
}

// EncodeJ encodes a JAL instruction with a byte offset.
func EncodeJ(rd uint8, offset int32) uint32 {
	u := uint32(offset) & 0x1fffff
	return (u>>20&0x1)<<31 |
		(u>>1&0x3ff)<<21 |
		(u>>11&0x1)<<20 |
		(u>>12&0xff)<<12 |
		uint32(rd&0x1f)<<7 |
		uint32(OpJAL)
}

// EncodeADDI encodes ADDI rd, rs1, imm.
func EncodeADDI(rd, rs1 uint8, imm int32) uint32 {
	return EncodeI(OpIMM, rd, Funct3ADD, rs1, imm)
}

// EncodeADD encodes ADD rd, rs1, rs2.
func EncodeADD(rd, rs1, rs2 uint8) uint32 {
	return EncodeR(OpOP, rd, Funct3ADD, rs1, rs2, Funct7Base)
}

// EncodeSUB encodes SUB rd, rs1, rs2.
func EncodeSUB(rd, rs1, rs2 uint8) uint32 {
	return EncodeR(OpOP, rd, Funct3ADD, rs1, rs2, Funct7Alt)
}

// EncodeMulDiv encodes an M-extension instruction selected by funct3.
func EncodeMulDiv(funct3, rd, rs1, rs2 uint8) uint32 {
	return EncodeR(OpOP, rd, funct3, rs1, rs2, Funct7MulDiv)
}

// EncodeShiftImm encodes SLLI/SRLI/SRAI with a 6-bit shift amount.
func EncodeShiftImm(funct3, rd, rs1, shamt uint8, arithmetic bool) uint32 {
	imm := int32(shamt & 0x3f)
	if arithmetic {
		imm |= 0x400
	}
	return EncodeI(OpIMM, rd, funct3, rs1, imm)
}

// EncodeLUI encodes LUI rd, imm.
func EncodeLUI(rd uint8, imm uint32) uint32 {
	return EncodeU(OpLUI, rd, imm)
}

// EncodeAUIPC encodes AUIPC rd, imm.
func EncodeAUIPC(rd uint8, imm uint32) uint32 {
	return EncodeU(OpAUIPC, rd, imm)
}

// EncodeJAL encodes JAL rd, offset.
func EncodeJAL(rd uint8, offset int32) uint32 {
	return EncodeJ(rd, offset)
}

// EncodeJALR encodes JALR rd, offset(rs1).
func EncodeJALR(rd, rs1 uint8, offset int32) uint32 {
	return EncodeI(OpJALR, rd, 0, rs1, offset)
}

// EncodeLoad encodes a load selected by funct3: rd = mem[rs1+offset].
func EncodeLoad(funct3, rd, rs1 uint8, offset int32) uint32 {
	return EncodeI(OpLOAD, rd, funct3, rs1, offset)
}

// EncodeStore encodes a store selected by funct3: mem[rs1+offset] = rs2.
func EncodeStore(funct3, rs1, rs2 uint8, offset int32) uint32 {
	return EncodeS(funct3, rs1, rs2, offset)
}

// EncodeCSR encodes a Zicsr instruction. For the immediate forms src is
// the 5-bit uimm, otherwise it is rs1.
func EncodeCSR(funct3, rd, src uint8, csr uint16) uint32 {
	return EncodeI(OpSYSTEM, rd, funct3, src, int32(csr&0xfff))
}

// EncodeAMO encodes an A-extension instruction. op is one of the AMO*
// sub-operation constants and funct3 selects the width.
func EncodeAMO(op, funct3, rd, rs1, rs2 uint8) uint32 {
	return EncodeR(OpAMO, rd, funct3, rs1, rs2, op<<2)
}

// EncodeNOP encodes the canonical NOP, ADDI x0, x0, 0.
func EncodeNOP() uint32 {
	return EncodeADDI(0, 0, 0)
}

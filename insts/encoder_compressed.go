package insts

// Compressed encoders for the forms programs most often need. Register
// arguments are full register numbers; the three-bit forms require
// x8..x15.

func cRegPrime(r uint8) uint16 {
	return uint16(r-8) & 0x7
}

// EncodeCADDI encodes C.ADDI rd, imm (imm in [-32, 31], non-zero).
func EncodeCADDI(rd uint8, imm int32) uint16 {
	u := uint16(imm) & 0x3f
	return (u>>5)<<12 | uint16(rd&0x1f)<<7 | (u&0x1f)<<2 | 0b01
}

// EncodeCLI encodes C.LI rd, imm (imm in [-32, 31]).
func EncodeCLI(rd uint8, imm int32) uint16 {
	u := uint16(imm) & 0x3f
	return 0b010<<13 | (u>>5)<<12 | uint16(rd&0x1f)<<7 | (u&0x1f)<<2 | 0b01
}

// EncodeCMV encodes C.MV rd, rs2.
func EncodeCMV(rd, rs2 uint8) uint16 {
	return 0b100<<13 | uint16(rd&0x1f)<<7 | uint16(rs2&0x1f)<<2 | 0b10
}

// EncodeCADD encodes C.ADD rd, rs2.
func EncodeCADD(rd, rs2 uint8) uint16 {
	return 0b100<<13 | 1<<12 | uint16(rd&0x1f)<<7 | uint16(rs2&0x1f)<<2 | 0b10
}

// EncodeCJ encodes C.J with a byte offset in [-2048, 2046].
func EncodeCJ(offset int32) uint16 {
	u := uint16(offset) & 0xffe
	return 0b101<<13 |
		(u>>11&1)<<12 |
		(u>>4&1)<<11 |
		(u>>8&0b11)<<9 |
		(u>>10&1)<<8 |
		(u>>6&1)<<7 |
		(u>>7&1)<<6 |
		(u>>1&0b111)<<3 |
		(u>>5&1)<<2 |
		0b01
}

func encodeCBranch(funct3 uint16, rs1 uint8, offset int32) uint16 {
	u := uint16(offset) & 0x1fe
	return funct3<<13 |
		(u>>8&1)<<12 |
		(u>>3&0b11)<<10 |
		cRegPrime(rs1)<<7 |
		(u>>6&0b11)<<5 |
		(u>>1&0b11)<<3 |
		(u>>5&1)<<2 |
		0b01
}

// EncodeCBEQZ encodes C.BEQZ rs1, offset (rs1 in x8..x15).
func EncodeCBEQZ(rs1 uint8, offset int32) uint16 {
	return encodeCBranch(0b110, rs1, offset)
}

// EncodeCBNEZ encodes C.BNEZ rs1, offset (rs1 in x8..x15).
func EncodeCBNEZ(rs1 uint8, offset int32) uint16 {
	return encodeCBranch(0b111, rs1, offset)
}

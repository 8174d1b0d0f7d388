package insts

// Compressed (RVC) decoding. Each 16-bit form is rewritten as the
// equivalent 32-bit word and decoded by the standard path, so immediates
// end up in the standard field width.

// Register numbers used by the compressed forms.
const (
	regZero uint8 = 0
	regRA   uint8 = 1
	regSP   uint8 = 2
)

// field extracts the bits of insn starting at srcLo and places them at
// [dstHi:dstLo] of the result.
func field(insn uint16, srcLo, dstLo, dstHi uint) uint32 {
	width := dstHi - dstLo + 1
	return (uint32(insn) >> srcLo) & (1<<width - 1) << dstLo
}

// sext sign-extends the low bits of v into an int32.
func sext(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// cReg maps a 3-bit compressed register field to x8..x15.
func cReg(insn uint16, lo uint) uint8 {
	return uint8((insn>>lo)&0x7) + 8
}

func (d *Decoder) decodeCompressed(insn uint16) (*Instruction, error) {
	var (
		word uint32
		err  error
	)

	switch insn & 0b11 {
	case 0b00:
		word, err = expandQuadrant0(insn)
	case 0b01:
		word, err = d.expandQuadrant1(insn)
	default:
		word, err = expandQuadrant2(insn)
	}

	if err != nil {
		return nil, err
	}

	inst, err := decodeStandard(word)
	if err != nil {
		return nil, err
	}

	inst.IsCompressed = true
	inst.Raw = uint32(insn)

	return inst, nil
}

func illegal(insn uint16, reason string) error {
	return &DecodeError{
		Word:       uint32(insn),
		Compressed: true,
		Reason:     reason,
		Err:        ErrIllegalCompressed,
	}
}

func expandQuadrant0(insn uint16) (uint32, error) {
	funct3 := insn >> 13
	rdp := cReg(insn, 2)
	rs1p := cReg(insn, 7)

	switch funct3 {
	case 0b000: // c.addi4spn
		imm := field(insn, 11, 4, 5) | field(insn, 7, 6, 9) |
			field(insn, 6, 2, 2) | field(insn, 5, 3, 3)
		if imm == 0 {
			return 0, illegal(insn, "c.addi4spn with zero immediate")
		}
		return EncodeADDI(rdp, regSP, int32(imm)), nil
	case 0b010: // c.lw
		imm := field(insn, 10, 3, 5) | field(insn, 6, 2, 2) | field(insn, 5, 6, 6)
		return EncodeLoad(Funct3LW, rdp, rs1p, int32(imm)), nil
	case 0b011: // c.ld
		imm := field(insn, 10, 3, 5) | field(insn, 5, 6, 7)
		return EncodeLoad(Funct3LD, rdp, rs1p, int32(imm)), nil
	case 0b110: // c.sw
		imm := field(insn, 10, 3, 5) | field(insn, 6, 2, 2) | field(insn, 5, 6, 6)
		return EncodeStore(Funct3SW, rs1p, rdp, int32(imm)), nil
	case 0b111: // c.sd
		imm := field(insn, 10, 3, 5) | field(insn, 5, 6, 7)
		return EncodeStore(Funct3SD, rs1p, rdp, int32(imm)), nil
	}

	return 0, illegal(insn, "")
}

func (d *Decoder) expandQuadrant1(insn uint16) (uint32, error) {
	funct3 := insn >> 13
	rd := uint8((insn >> 7) & 0x1f)
	imm6 := sext(field(insn, 12, 5, 5)|field(insn, 2, 0, 4), 6)

	switch funct3 {
	case 0b000: // c.addi, c.nop
		return EncodeADDI(rd, rd, imm6), nil
	case 0b001:
		if d.compressedADDIW {
			if rd == regZero {
				return 0, illegal(insn, "c.addiw with rd=x0")
			}
			return EncodeI(OpIMM32, rd, Funct3ADD, rd, imm6), nil
		}
		return EncodeJAL(regRA, cjOffset(insn)), nil
	case 0b010: // c.li
		return EncodeADDI(rd, regZero, imm6), nil
	case 0b011:
		if rd == regSP { // c.addi16sp
			imm := field(insn, 12, 9, 9) | field(insn, 6, 4, 4) |
				field(insn, 5, 6, 6) | field(insn, 3, 7, 8) | field(insn, 2, 5, 5)
			if imm == 0 {
				return 0, illegal(insn, "c.addi16sp with zero immediate")
			}
			return EncodeADDI(regSP, regSP, sext(imm, 10)), nil
		}
		// c.lui
		imm := field(insn, 12, 17, 17) | field(insn, 2, 12, 16)
		if imm == 0 {
			return 0, illegal(insn, "c.lui with zero immediate")
		}
		return EncodeLUI(rd, uint32(sext(imm, 18))>>12), nil
	case 0b100:
		return expandMiscALU(insn)
	case 0b101: // c.j
		return EncodeJAL(regZero, cjOffset(insn)), nil
	case 0b110, 0b111: // c.beqz, c.bnez
		imm := field(insn, 12, 8, 8) | field(insn, 10, 3, 4) |
			field(insn, 5, 6, 7) | field(insn, 3, 1, 2) | field(insn, 2, 5, 5)
		f3 := Funct3BEQ
		if funct3 == 0b111 {
			f3 = Funct3BNE
		}
		return EncodeB(f3, cReg(insn, 7), regZero, sext(imm, 9)), nil
	}

	return 0, illegal(insn, "")
}

func cjOffset(insn uint16) int32 {
	imm := field(insn, 12, 11, 11) | field(insn, 11, 4, 4) |
		field(insn, 9, 8, 9) | field(insn, 8, 10, 10) |
		field(insn, 7, 6, 6) | field(insn, 6, 7, 7) |
		field(insn, 3, 1, 3) | field(insn, 2, 5, 5)
	return sext(imm, 12)
}

// expandMiscALU handles quadrant 01 funct3 100: c.srli, c.srai, c.andi and
// the register-register group.
func expandMiscALU(insn uint16) (uint32, error) {
	rd := cReg(insn, 7)
	rs2 := cReg(insn, 2)
	shamt := uint8(field(insn, 12, 5, 5) | field(insn, 2, 0, 4))

	switch (insn >> 10) & 0b11 {
	case 0b00:
		return EncodeShiftImm(Funct3SRL, rd, rd, shamt, false), nil
	case 0b01:
		return EncodeShiftImm(Funct3SRL, rd, rd, shamt, true), nil
	case 0b10:
		imm := sext(field(insn, 12, 5, 5)|field(insn, 2, 0, 4), 6)
		return EncodeI(OpIMM, rd, Funct3AND, rd, imm), nil
	}

	switch ((insn >> 5) & 0b11) | ((insn >> 10) & 0b100) {
	case 0b000:
		return EncodeSUB(rd, rd, rs2), nil
	case 0b001:
		return EncodeR(OpOP, rd, Funct3XOR, rd, rs2, Funct7Base), nil
	case 0b010:
		return EncodeR(OpOP, rd, Funct3OR, rd, rs2, Funct7Base), nil
	case 0b011:
		return EncodeR(OpOP, rd, Funct3AND, rd, rs2, Funct7Base), nil
	case 0b100:
		return EncodeR(OpOP32, rd, Funct3ADD, rd, rs2, Funct7Alt), nil
	case 0b101:
		return EncodeR(OpOP32, rd, Funct3ADD, rd, rs2, Funct7Base), nil
	}

	return 0, illegal(insn, "")
}

func expandQuadrant2(insn uint16) (uint32, error) {
	funct3 := insn >> 13
	rd := uint8((insn >> 7) & 0x1f)
	rs2 := uint8((insn >> 2) & 0x1f)
	bit12 := (insn >> 12) & 0x1

	switch funct3 {
	case 0b000: // c.slli
		shamt := uint8(field(insn, 12, 5, 5) | field(insn, 2, 0, 4))
		if shamt == 0 {
			return 0, illegal(insn, "c.slli64 not implemented")
		}
		return EncodeShiftImm(Funct3SLL, rd, rd, shamt, false), nil
	case 0b010: // c.lwsp
		if rd == regZero {
			return 0, illegal(insn, "c.lwsp with rd=x0")
		}
		imm := field(insn, 12, 5, 5) | field(insn, 4, 2, 4) | field(insn, 2, 6, 7)
		return EncodeLoad(Funct3LW, rd, regSP, int32(imm)), nil
	case 0b011: // c.ldsp
		if rd == regZero {
			return 0, illegal(insn, "c.ldsp with rd=x0")
		}
		imm := field(insn, 12, 5, 5) | field(insn, 5, 3, 4) | field(insn, 2, 6, 8)
		return EncodeLoad(Funct3LD, rd, regSP, int32(imm)), nil
	case 0b100:
		switch {
		case bit12 == 0 && rs2 == 0: // c.jr
			if rd == regZero {
				return 0, illegal(insn, "c.jr with rs1=x0")
			}
			return EncodeJALR(regZero, rd, 0), nil
		case bit12 == 0: // c.mv
			return EncodeADD(rd, regZero, rs2), nil
		case rd == 0 && rs2 == 0:
			return WordEBREAK, nil
		case rs2 == 0: // c.jalr
			return EncodeJALR(regRA, rd, 0), nil
		default: // c.add
			return EncodeADD(rd, rd, rs2), nil
		}
	case 0b110: // c.swsp
		imm := field(insn, 9, 2, 5) | field(insn, 7, 6, 7)
		return EncodeStore(Funct3SW, regSP, rs2, int32(imm)), nil
	case 0b111: // c.sdsp
		imm := field(insn, 10, 3, 5) | field(insn, 7, 6, 8)
		return EncodeStore(Funct3SD, regSP, rs2, int32(imm)), nil
	}

	return 0, illegal(insn, "")
}

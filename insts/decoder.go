package insts

// Decoder decodes RV64 machine code into instructions.
//
// A Decoder holds no per-instruction state and may be shared.
type Decoder struct {
	compressedADDIW bool
}

// DecoderOption is a functional option for configuring the Decoder.
type DecoderOption func(*Decoder)

// WithCompressedADDIW selects the RV64C meaning of quadrant 01 funct3 001,
// c.addiw, in place of the default c.jal.
func WithCompressedADDIW() DecoderOption {
	return func(d *Decoder) {
		d.compressedADDIW = true
	}
}

// NewDecoder creates a new RV64 instruction decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode decodes a fetched 32-bit word.
//
// If the two low bits are not 0b11, the low half-word is decoded as a
// compressed instruction and the high half is ignored.
func (d *Decoder) Decode(word uint32) (*Instruction, error) {
	if word&0b11 != 0b11 {
		return d.decodeCompressed(uint16(word))
	}

	return decodeStandard(word)
}

func decodeStandard(word uint32) (*Instruction, error) {
	inst := &Instruction{
		Opcode: Opcode(word & 0x7f),
		Rd:     uint8((word >> 7) & 0x1f),
		Funct3: uint8((word >> 12) & 0x7),
		Rs1:    uint8((word >> 15) & 0x1f),
		Rs2:    uint8((word >> 20) & 0x1f),
		Funct7: uint8((word >> 25) & 0x7f),
		Shamt:  uint8((word >> 20) & 0x3f),
		Raw:    word,
	}

	switch inst.Opcode {
	case OpLUI, OpAUIPC:
		inst.Format = FormatU
		inst.Imm = word >> 12
	case OpJAL:
		inst.Format = FormatJ
		inst.Imm = immJ(word)
	case OpJALR, OpLOAD, OpIMM, OpIMM32, OpMISCMEM, OpSYSTEM:
		inst.Format = FormatI
		inst.Imm = word >> 20
	case OpBRANCH:
		inst.Format = FormatB
		inst.Imm = immB(word)
	case OpSTORE:
		inst.Format = FormatS
		inst.Imm = immS(word)
	case OpOP, OpOP32, OpAMO:
		inst.Format = FormatR
	default:
		return nil, &DecodeError{
			Word:   word,
			Opcode: inst.Opcode,
			Err:    ErrUnknownOpcode,
		}
	}

	return inst, nil
}

// immJ reassembles imm[20|10:1|11|19:12] from bits [31:12].
func immJ(word uint32) uint32 {
	return (word>>31&0x1)<<20 |
		(word>>12&0xff)<<12 |
		(word>>20&0x1)<<11 |
		(word>>21&0x3ff)<<1
}

// immB reassembles imm[12|10:5] from bits [31:25] and imm[4:1|11] from
// bits [11:7].
func immB(word uint32) uint32 {
	return (word>>31&0x1)<<12 |
		(word>>7&0x1)<<11 |
		(word>>25&0x3f)<<5 |
		(word>>8&0xf)<<1
}

func immS(word uint32) uint32 {
	return (word>>25&0x7f)<<5 | (word>>7)&0x1f
}

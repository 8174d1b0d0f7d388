package insts

// Opcode is the 7-bit major opcode in bits [6:0] of a 32-bit instruction.
type Opcode uint8

// RV64 major opcodes.
const (
	OpLOAD    Opcode = 0b0000011
	OpMISCMEM Opcode = 0b0001111 // FENCE, FENCE.I
	OpIMM     Opcode = 0b0010011 // ALU with immediate
	OpAUIPC   Opcode = 0b0010111
	OpIMM32   Opcode = 0b0011011 // word-size ALU with immediate
	OpSTORE   Opcode = 0b0100011
	OpAMO     Opcode = 0b0101111
	OpOP      Opcode = 0b0110011 // register-register ALU
	OpLUI     Opcode = 0b0110111
	OpOP32    Opcode = 0b0111011 // word-size register-register ALU
	OpBRANCH  Opcode = 0b1100011
	OpJALR    Opcode = 0b1100111
	OpJAL     Opcode = 0b1101111
	OpSYSTEM  Opcode = 0b1110011
	OpUnknown Opcode = 0
)

var opcodeNames = map[Opcode]string{
	OpLOAD:    "LOAD",
	OpMISCMEM: "MISC-MEM",
	OpIMM:     "OP-IMM",
	OpAUIPC:   "AUIPC",
	OpIMM32:   "OP-IMM-32",
	OpSTORE:   "STORE",
	OpAMO:     "AMO",
	OpOP:      "OP",
	OpLUI:     "LUI",
	OpOP32:    "OP-32",
	OpBRANCH:  "BRANCH",
	OpJALR:    "JALR",
	OpJAL:     "JAL",
	OpSYSTEM:  "SYSTEM",
}

// String returns the ISA manual name of the opcode group.
func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Branch funct3 values.
const (
	Funct3BEQ  uint8 = 0b000
	Funct3BNE  uint8 = 0b001
	Funct3BLT  uint8 = 0b100
	Funct3BGE  uint8 = 0b101
	Funct3BLTU uint8 = 0b110
	Funct3BGEU uint8 = 0b111
)

// Load funct3 values.
const (
	Funct3LB  uint8 = 0b000
	Funct3LH  uint8 = 0b001
	Funct3LW  uint8 = 0b010
	Funct3LD  uint8 = 0b011
	Funct3LBU uint8 = 0b100
	Funct3LHU uint8 = 0b101
	Funct3LWU uint8 = 0b110
)

// Store funct3 values.
const (
	Funct3SB uint8 = 0b000
	Funct3SH uint8 = 0b001
	Funct3SW uint8 = 0b010
	Funct3SD uint8 = 0b011
)

// ALU funct3 values, shared by OP, OP-IMM and their 32-bit forms.
const (
	Funct3ADD  uint8 = 0b000 // ADD, SUB, ADDI
	Funct3SLL  uint8 = 0b001
	Funct3SLT  uint8 = 0b010
	Funct3SLTU uint8 = 0b011
	Funct3XOR  uint8 = 0b100
	Funct3SRL  uint8 = 0b101 // SRL, SRA
	Funct3OR   uint8 = 0b110
	Funct3AND  uint8 = 0b111
)

// M extension funct3 values (OP / OP-32 with funct7 == Funct7MulDiv).
const (
	Funct3MUL    uint8 = 0b000
	Funct3MULH   uint8 = 0b001
	Funct3MULHSU uint8 = 0b010
	Funct3MULHU  uint8 = 0b011
	Funct3DIV    uint8 = 0b100
	Funct3DIVU   uint8 = 0b101
	Funct3REM    uint8 = 0b110
	Funct3REMU   uint8 = 0b111
)

// funct7 values.
const (
	Funct7Base   uint8 = 0b0000000
	Funct7Alt    uint8 = 0b0100000 // SUB, SRA, SRAI
	Funct7MulDiv uint8 = 0b0000001
)

// SYSTEM funct3 values.
const (
	Funct3PRIV   uint8 = 0b000 // ECALL, EBREAK, xRET, WFI
	Funct3CSRRW  uint8 = 0b001
	Funct3CSRRS  uint8 = 0b010
	Funct3CSRRC  uint8 = 0b011
	Funct3CSRRWI uint8 = 0b101
	Funct3CSRRSI uint8 = 0b110
	Funct3CSRRCI uint8 = 0b111
)

// AMO width funct3 values.
const (
	Funct3AMOW uint8 = 0b010
	Funct3AMOD uint8 = 0b011
)

// AMO sub-operations, held in funct7[6:2].
const (
	AMOADD  uint8 = 0b00000
	AMOSWAP uint8 = 0b00001
	AMOLR   uint8 = 0b00010
	AMOSC   uint8 = 0b00011
	AMOXOR  uint8 = 0b00100
	AMOOR   uint8 = 0b01000
	AMOAND  uint8 = 0b01100
	AMOMIN  uint8 = 0b10000
	AMOMAX  uint8 = 0b10100
	AMOMINU uint8 = 0b11000
	AMOMAXU uint8 = 0b11100
)

// Raw encodings of the fixed-pattern SYSTEM instructions.
const (
	WordECALL  uint32 = 0x00000073
	WordEBREAK uint32 = 0x00100073
)
